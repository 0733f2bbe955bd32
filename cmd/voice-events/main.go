package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"voice-events-go/internal/audio"
	"voice-events-go/internal/config"
	"voice-events-go/internal/extractor"
	"voice-events-go/internal/gcal"
	"voice-events-go/internal/history"
	"voice-events-go/internal/logger"
	"voice-events-go/internal/notion"
	"voice-events-go/internal/pipeline"
	"voice-events-go/internal/transcription"
)

func main() {
	_ = godotenv.Load() // loads .env

	app := &cli.App{
		Name:  "voice-events",
		Usage: "Turn voice notes into Notion notes and Google Calendar events.",
		Commands: []*cli.Command{
			authCommand(),
			runCommand(),
			onceCommand(),
			historyCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.New().WithError(err).Fatal("application failed")
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with Google and cache the calendar token.",
		Action: func(c *cli.Context) error {
			cfg := config.FromEnv()
			log := logger.New()

			conf, err := gcal.OAuthConfig(cfg)
			if err != nil {
				return err
			}

			authURL := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code:\n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := gcal.Exchange(c.Context, conf, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}
			if err := gcal.SaveToken(cfg.TokenFile, token); err != nil {
				return err
			}

			log.WithField("file", cfg.TokenFile).Info("token saved")
			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Interactive voice note loop.",
		Action: func(c *cli.Context) error {
			cfg := config.FromEnv()
			log := logger.New()
			p, err := buildPipeline(cfg, log)
			if err != nil {
				return err
			}

			fmt.Println("Voice Events started.")
			reader := bufio.NewReader(os.Stdin)
			for {
				fmt.Println("\nOptions:")
				fmt.Println("1. Record voice note (press Enter to stop)")
				fmt.Println("2. Record voice note (10 seconds)")
				fmt.Println("3. Record voice note (30 seconds)")
				fmt.Println("4. Quit")
				fmt.Print("\nEnter your choice (1-4): ")

				line, err := reader.ReadString('\n')
				if err != nil {
					return nil // stdin closed
				}

				var res pipeline.Result
				switch strings.TrimSpace(line) {
				case "1":
					fmt.Println("Recording... press Enter to stop.")
					stop := make(chan struct{})
					go func() {
						_, _ = reader.ReadString('\n')
						close(stop)
					}()
					res = p.Process(c.Context, 0, stop)
				case "2":
					res = p.Process(c.Context, 10*time.Second, nil)
				case "3":
					res = p.Process(c.Context, 30*time.Second, nil)
				case "4":
					fmt.Println("Goodbye!")
					return nil
				default:
					fmt.Println("Invalid choice. Please try again.")
					continue
				}
				printSummary(res)
			}
		},
	}
}

func onceCommand() *cli.Command {
	return &cli.Command{
		Name:  "once",
		Usage: "Record a single fixed-duration voice note and print the result as JSON.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "seconds", Value: 10, Usage: "Recording duration in seconds."},
		},
		Action: func(c *cli.Context) error {
			cfg := config.FromEnv()
			log := logger.New()
			p, err := buildPipeline(cfg, log)
			if err != nil {
				return err
			}

			res := p.Process(c.Context, time.Duration(c.Int("seconds"))*time.Second, nil)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Print previously processed voice notes.",
		Action: func(c *cli.Context) error {
			cfg := config.FromEnv()
			ledger := history.NewLedger(cfg.HistoryFile, logger.New())
			entries, err := ledger.Entries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No voice notes processed yet.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  %s %s-%s  [%s/%s]  %s\n",
					e.ProcessedAt.Format("2006-01-02 15:04"),
					e.Event.Date, e.Event.StartTime, e.Event.EndTime,
					e.Event.Category, e.Event.Priority, e.Event.Title)
			}
			return nil
		},
	}
}

func buildPipeline(cfg *config.Config, log *logger.Logger) (*pipeline.Pipeline, error) {
	cal, err := gcal.NewPublisher(cfg, log)
	if err != nil {
		return nil, err
	}
	dev := &audio.FFmpegDevice{Format: cfg.AudioFormat, Input: cfg.AudioInput}
	return pipeline.New(
		audio.NewRecorder(dev, log),
		transcription.NewClient(cfg, log),
		extractor.NewClient(cfg, log),
		notion.NewPublisher(cfg, log),
		cal,
		history.NewLedger(cfg.HistoryFile, log),
		log,
	), nil
}

func printSummary(res pipeline.Result) {
	if res.Status == pipeline.StatusSuccess {
		transcript := res.Transcript
		if len(transcript) > 100 {
			transcript = transcript[:100] + "..."
		}
		fmt.Println("\nProcessing Summary:")
		fmt.Printf("   Transcription: %s\n", transcript)
		fmt.Printf("   Event Title:   %s\n", res.Event.Title)
		if res.NoteURL != "" {
			fmt.Printf("   Note:          %s\n", res.NoteURL)
		}
		if res.EventLink != "" {
			fmt.Printf("   Calendar:      %s\n", res.EventLink)
		}
		return
	}
	fmt.Printf("\nError: %s\n", res.Error)
}
