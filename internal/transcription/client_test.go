package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voice-events-go/internal/audio"
	"voice-events-go/internal/config"
	"voice-events-go/internal/logger"
)

func writeTestClip(t *testing.T, data []byte) audio.Clip {
	t.Helper()
	path := filepath.Join(t.TempDir(), "note.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return audio.Clip{Path: path, SampleRate: audio.SampleRate, Channels: audio.Channels, BitDepth: audio.BitDepth}
}

func TestTranscribeUploadsMultipart(t *testing.T) {
	var gotModel, gotFile string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotFile = fmt.Sprintf("%s:%d", hdr.Filename, len(b))
		fmt.Fprint(w, `{"text": "hello world"}`)
	}))
	defer srv.Close()

	cfg := &config.Config{
		WhisperBaseURL: srv.URL,
		WhisperAPIKey:  "whisper-key",
		WhisperModel:   "whisper-1",
	}
	clip := writeTestClip(t, []byte("RIFFfake-wav-bytes"))

	text, err := NewClient(cfg, logger.New()).Transcribe(context.Background(), clip)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer whisper-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotModel != "whisper-1" {
		t.Errorf("model = %q", gotModel)
	}
	if !strings.HasSuffix(gotFile, ":18") || !strings.HasPrefix(gotFile, "note.wav") {
		t.Errorf("file = %q", gotFile)
	}
}

func TestTranscribeClientErrorIsPermanent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad audio", http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := &config.Config{WhisperBaseURL: srv.URL, WhisperAPIKey: "k", WhisperModel: "whisper-1"}
	clip := writeTestClip(t, []byte("x"))

	_, err := NewClient(cfg, logger.New()).Transcribe(context.Background(), clip)
	if err == nil {
		t.Fatal("want error on 400")
	}
	if calls != 1 {
		t.Errorf("calls = %d, client errors must not be retried", calls)
	}
}

func TestTranscribeEmptyFile(t *testing.T) {
	cfg := &config.Config{WhisperBaseURL: "http://unused", WhisperAPIKey: "k"}
	clip := writeTestClip(t, nil)

	_, err := NewClient(cfg, logger.New()).Transcribe(context.Background(), clip)
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("err = %v, want empty-file error", err)
	}
}

func TestTranscribeNotConfigured(t *testing.T) {
	clip := writeTestClip(t, []byte("x"))
	_, err := NewClient(&config.Config{}, logger.New()).Transcribe(context.Background(), clip)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestTranscribeMockMode(t *testing.T) {
	cfg := &config.Config{MockTranscribe: true}
	clip := writeTestClip(t, []byte("x"))
	text, err := NewClient(cfg, logger.New()).Transcribe(context.Background(), clip)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text == "" {
		t.Error("mock mode must return a transcript")
	}
}
