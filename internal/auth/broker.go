// Package auth is the per-tenant credential broker. Tokens are persisted
// one blob per server; when no working token exists the broker points the
// user at the external authorization endpoint and waits for the browser
// flow to land a credential on disk.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrAuthFailure is returned when the user abandons the browser flow or
// the token exchange fails.
var ErrAuthFailure = errors.New("authentication failed")

// Scope needed to maintain the scoreboard.
const sheetsScope = "https://www.googleapis.com/auth/spreadsheets"

// Ledger is the slice of the invalid-sheets ledger the broker polls.
type Ledger interface {
	Check(ctx context.Context, tenant int64, sheetLink string) (bool, error)
	Clear(ctx context.Context, tenant int64, sheetLink string) error
}

// Notifier delivers the authorization URL to the user out of band, through
// the chat channel the command came from.
type Notifier func(tenant int64, authURL string)

// Prober verifies that a token source can actually open the sheet; the
// broker itself never talks to the spreadsheet service.
type Prober func(ctx context.Context, ts oauth2.TokenSource, sheetLink string) error

// Config holds broker settings.
type Config struct {
	// CredentialsDir holds one encrypted token blob per tenant.
	CredentialsDir string

	// Passphrase seals the blobs at rest.
	Passphrase string

	// AuthorizeURL is the base of the external authorization endpoint;
	// the broker appends /{tenant}/{sheet_link}.
	AuthorizeURL string

	// PollInterval is how often to re-check disk and ledger. Default: 10s.
	PollInterval time.Duration

	ClientID     string
	ClientSecret string
}

// Broker mediates between commands that need a sheet credential and the
// external authorization endpoint that mints one.
type Broker struct {
	cfg    Config
	oauth  *oauth2.Config
	ledger Ledger
	notify Notifier
	probe  Prober
}

// NewBroker wires a broker. notify and probe must be non-nil.
func NewBroker(cfg Config, ledger Ledger, notify Notifier, probe Prober) (*Broker, error) {
	if cfg.CredentialsDir == "" {
		return nil, fmt.Errorf("credentials directory required")
	}
	if err := os.MkdirAll(cfg.CredentialsDir, 0o700); err != nil {
		return nil, fmt.Errorf("create credentials directory: %w", err)
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	return &Broker{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{sheetsScope},
			Endpoint:     google.Endpoint,
		},
		ledger: ledger,
		notify: notify,
		probe:  probe,
	}, nil
}

// credPath is the stable blob location for a tenant.
func (b *Broker) credPath(tenant int64) string {
	return filepath.Join(b.cfg.CredentialsDir, strconv.FormatInt(tenant, 10)+".bin")
}

// Authenticate returns a token source that can open sheetLink, walking the
// interactive flow when the persisted credential is missing or dead. The
// caller's context cancels the polling loop.
func (b *Broker) Authenticate(ctx context.Context, tenant int64, sheetLink string) (oauth2.TokenSource, error) {
	if ts, err := b.tryPersisted(ctx, tenant, sheetLink); err == nil {
		return ts, nil
	}

	b.notify(tenant, b.authorizeLink(tenant, sheetLink))

	// Polling wakes up on the interval; a watcher on the credentials
	// directory shortcuts the wait when the endpoint writes the blob.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		watcher = nil
	} else if err := watcher.Add(b.cfg.CredentialsDir); err != nil {
		_ = watcher.Close()
		watcher = nil
	} else {
		defer func() { _ = watcher.Close() }()
	}

	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()

	for {
		abandoned, err := b.ledger.Check(ctx, tenant, sheetLink)
		if err != nil {
			return nil, fmt.Errorf("check invalid-sheets ledger: %w", err)
		}
		if abandoned {
			if err := b.ledger.Clear(ctx, tenant, sheetLink); err != nil {
				return nil, fmt.Errorf("clear invalid-sheets ledger: %w", err)
			}
			return nil, fmt.Errorf("%w: authorization abandoned", ErrAuthFailure)
		}

		if ts, err := b.tryPersisted(ctx, tenant, sheetLink); err == nil {
			return ts, nil
		}

		if watcher != nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
			case <-watcher.Events:
				// A blob landed; loop around and retry immediately.
			}
		} else {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
			}
		}
	}
}

// tryPersisted loads the tenant's blob and verifies it can open the sheet.
func (b *Broker) tryPersisted(ctx context.Context, tenant int64, sheetLink string) (oauth2.TokenSource, error) {
	tok, err := b.LoadToken(tenant)
	if err != nil {
		return nil, err
	}
	if !tok.Valid() && tok.RefreshToken == "" {
		return nil, fmt.Errorf("persisted token expired with no refresh token")
	}
	ts := b.oauth.TokenSource(ctx, tok)
	if err := b.probe(ctx, ts, sheetLink); err != nil {
		return nil, fmt.Errorf("probe sheet: %w", err)
	}
	return ts, nil
}

func (b *Broker) authorizeLink(tenant int64, sheetLink string) string {
	return fmt.Sprintf("%s/authorize/%d/%s",
		b.cfg.AuthorizeURL, tenant, url.PathEscape(sheetLink))
}

// LoadToken reads and unseals the tenant's persisted token.
func (b *Broker) LoadToken(tenant int64) (*oauth2.Token, error) {
	blob, err := os.ReadFile(b.credPath(tenant))
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	plaintext, err := open(blob, b.cfg.Passphrase)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(plaintext, &tok); err != nil {
		return nil, fmt.Errorf("parse credential: %w", err)
	}
	return &tok, nil
}

// SaveToken seals and persists a token with write-temp-then-rename so a
// concurrent Authenticate never observes a torn blob.
func (b *Broker) SaveToken(tenant int64, tok *oauth2.Token) error {
	plaintext, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	blob, err := seal(plaintext, b.cfg.Passphrase)
	if err != nil {
		return err
	}

	path := b.credPath(tenant)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("install credential: %w", err)
	}
	return nil
}
