package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"voice-events-go/internal/config"
	"voice-events-go/internal/extractor"
	"voice-events-go/internal/logger"
)

const calendarID = "primary"

// ErrNotConfigured means OAuth credentials or the cached token are missing.
var ErrNotConfigured = errors.New("google calendar not configured; run the auth command first")

// Publisher inserts extracted events into the user's primary calendar.
type Publisher struct {
	cfg     *config.Config
	log     *logger.Logger
	loc     *time.Location
	service *calendar.Service
}

func NewPublisher(cfg *config.Config, log *logger.Logger) (*Publisher, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return &Publisher{cfg: cfg, log: log, loc: loc}, nil
}

// Publish inserts the event and returns the link to it. The calendar service
// is built lazily on first use so that missing credentials surface here as
// ErrNotConfigured rather than failing process startup.
func (p *Publisher) Publish(ctx context.Context, ev extractor.Event) (string, error) {
	svc, err := p.calendarService(ctx)
	if err != nil {
		return "", err
	}

	body, err := BuildEvent(ev, p.loc)
	if err != nil {
		return "", err
	}

	created, err := svc.Events.Insert(calendarID, body).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}

	p.log.WithField("module", "gcal").WithField("link", created.HtmlLink).Info("calendar event created")
	return created.HtmlLink, nil
}

func (p *Publisher) calendarService(ctx context.Context) (*calendar.Service, error) {
	if p.service != nil {
		return p.service, nil
	}

	conf, err := OAuthConfig(p.cfg)
	if err != nil {
		return nil, err
	}
	token, err := tokenFromFile(p.cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	client := conf.Client(ctx, token)
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	p.service = svc
	return svc, nil
}

// BuildEvent converts the extracted fields into a calendar insert payload:
// start/end instants in the given zone and the fixed reminder policy, one
// email reminder a day ahead and one popup ten minutes ahead.
func BuildEvent(ev extractor.Event, loc *time.Location) (*calendar.Event, error) {
	date, err := time.ParseInLocation(extractor.DateLayout, ev.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("parse event date %q: %w", ev.Date, err)
	}
	start, err := clockOn(date, ev.StartTime, loc)
	if err != nil {
		return nil, fmt.Errorf("parse start time %q: %w", ev.StartTime, err)
	}
	end, err := clockOn(date, ev.EndTime, loc)
	if err != nil {
		return nil, fmt.Errorf("parse end time %q: %w", ev.EndTime, err)
	}

	var attendees []*calendar.EventAttendee
	for _, email := range ev.Attendees {
		attendees = append(attendees, &calendar.EventAttendee{Email: email})
	}

	return &calendar.Event{
		Summary:     ev.Title,
		Location:    ev.Location,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: loc.String(),
		},
		Attendees: attendees,
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 10},
			},
		},
	}, nil
}

func clockOn(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// OAuthConfig builds the OAuth2 config, preferring env client id/secret and
// falling back to the credentials file.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("%w: %s not found; provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET or download OAuth credentials from Google Cloud Console", ErrNotConfigured, cfg.CredentialsFile)
		}
		return nil, fmt.Errorf("read client secret file: %w", err)
	}
	conf, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secret file: %w", err)
	}
	conf.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // desktop app flow
	return conf, nil
}

// Exchange trades an authorization code for a token.
func Exchange(ctx context.Context, conf *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return conf.Exchange(ctx, authCode)
}

// SaveToken writes the token cache file.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
