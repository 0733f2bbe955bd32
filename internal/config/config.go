package config

import (
	"os"
	"time"
)

// Config carries every credential and endpoint the components need. It is
// built once at process start and passed by reference into each constructor;
// a missing credential shows up as a not-configured error from the component
// that owns it, never as a nil client.
type Config struct {
	// Whisper-compatible transcription endpoint.
	WhisperAPIKey  string
	WhisperBaseURL string
	WhisperModel   string

	// OpenAI-compatible chat completions gateway.
	LLMGatewayURL string
	LLMAPIKey     string
	LLMModel      string

	// Notion note publishing.
	NotionAPIKey       string
	NotionParentPageID string

	// Google Calendar OAuth.
	GoogleClientID     string
	GoogleClientSecret string
	CredentialsFile    string
	TokenFile          string

	// Capture device selection, passed through to ffmpeg.
	AudioFormat string
	AudioInput  string

	// Time zone applied to published calendar events.
	Timezone string

	// Run-history workbook.
	HistoryFile string

	// Offline demo hooks.
	MockTranscribe bool
	MockLLM        bool
}

// FromEnv builds a Config from the process environment. Callers load .env
// beforehand (godotenv in main).
func FromEnv() *Config {
	return &Config{
		WhisperAPIKey:  os.Getenv("WHISPER_API_KEY"),
		WhisperBaseURL: os.Getenv("WHISPER_BASE_URL"),
		WhisperModel:   envOr("WHISPER_MODEL", "whisper-1"),

		LLMGatewayURL: os.Getenv("LLM_GATEWAY_URL"),
		LLMAPIKey:     os.Getenv("LLM_API_KEY"),
		LLMModel:      os.Getenv("LLM_MODEL"),

		NotionAPIKey:       os.Getenv("NOTION_API_KEY"),
		NotionParentPageID: os.Getenv("PARENT_PAGE_ID"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		CredentialsFile:    envOr("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		TokenFile:          envOr("GOOGLE_TOKEN_FILE", "token.json"),

		AudioFormat: os.Getenv("AUDIO_FORMAT"),
		AudioInput:  os.Getenv("AUDIO_INPUT"),

		Timezone: envOr("TIMEZONE", "America/Los_Angeles"),

		HistoryFile: envOr("HISTORY_FILE", "voice-events-history.xlsx"),

		MockTranscribe: os.Getenv("USE_MOCK_TRANSCRIBE") == "true",
		MockLLM:        os.Getenv("USE_MOCK_LLM") == "true",
	}
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
