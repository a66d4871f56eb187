package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		CredentialsDir: t.TempDir(),
		Passphrase:     "league-secret",
		AuthorizeURL:   "https://auth.example.com",
		PollInterval:   20 * time.Millisecond,
		ClientID:       "id",
		ClientSecret:   "secret",
	}
}

// memLedger is an in-memory invalid-sheets ledger.
type memLedger struct {
	mu     sync.Mutex
	marked map[string]bool
}

func newMemLedger() *memLedger { return &memLedger{marked: make(map[string]bool)} }

func (l *memLedger) key(tenant int64, link string) string {
	return fmt.Sprintf("%d|%s", tenant, link)
}

func (l *memLedger) Mark(tenant int64, link string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.marked[l.key(tenant, link)] = true
}

func (l *memLedger) Check(_ context.Context, tenant int64, link string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.marked[l.key(tenant, link)], nil
}

func (l *memLedger) Clear(_ context.Context, tenant int64, link string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.marked, l.key(tenant, link))
	return nil
}

func freshToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: "token",
		Expiry:      time.Now().Add(time.Hour),
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	blob, err := seal([]byte(`{"access_token":"x"}`), "pass")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	plain, err := open(blob, "pass")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(plain) != `{"access_token":"x"}` {
		t.Errorf("round trip = %q", plain)
	}

	if _, err := open(blob, "wrong"); err == nil {
		t.Error("open with wrong passphrase succeeded")
	}
	if _, err := open([]byte("junk"), "pass"); err == nil {
		t.Error("open on junk succeeded")
	}
}

func TestSaveLoadToken(t *testing.T) {
	b, err := NewBroker(testConfig(t), newMemLedger(),
		func(int64, string) {},
		func(context.Context, oauth2.TokenSource, string) error { return nil })
	if err != nil {
		t.Fatalf("NewBroker: %v", err)
	}

	want := freshToken()
	if err := b.SaveToken(7, want); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	got, err := b.LoadToken(7)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if got.AccessToken != want.AccessToken {
		t.Errorf("token = %+v", got)
	}

	if _, err := b.LoadToken(8); err == nil {
		t.Error("LoadToken for unknown tenant succeeded")
	}
}

func TestAuthenticateReusesPersistedToken(t *testing.T) {
	var notified int
	b, err := NewBroker(testConfig(t), newMemLedger(),
		func(int64, string) { notified++ },
		func(context.Context, oauth2.TokenSource, string) error { return nil })
	if err != nil {
		t.Fatalf("NewBroker: %v", err)
	}
	if err := b.SaveToken(7, freshToken()); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	ts, err := b.Authenticate(context.Background(), 7, "https://docs.google.com/spreadsheets/d/abc/")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if ts == nil {
		t.Fatal("nil token source")
	}
	if notified != 0 {
		t.Errorf("interactive flow started despite working token (%d notifications)", notified)
	}
}

func TestAuthenticateWaitsForBlob(t *testing.T) {
	cfg := testConfig(t)
	var b *Broker
	var once sync.Once
	notify := func(tenant int64, authURL string) {
		if !strings.Contains(authURL, "/authorize/7/") {
			t.Errorf("authorize URL = %q", authURL)
		}
		// Simulate the external endpoint finishing the browser flow.
		once.Do(func() {
			go func() {
				time.Sleep(30 * time.Millisecond)
				_ = b.SaveToken(7, freshToken())
			}()
		})
	}

	var err error
	b, err = NewBroker(cfg, newMemLedger(), notify,
		func(context.Context, oauth2.TokenSource, string) error { return nil })
	if err != nil {
		t.Fatalf("NewBroker: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := b.Authenticate(ctx, 7, "https://docs.google.com/spreadsheets/d/abc/"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
}

func TestAuthenticateAbandoned(t *testing.T) {
	ledger := newMemLedger()
	link := "https://docs.google.com/spreadsheets/d/abc/"
	b, err := NewBroker(testConfig(t), ledger,
		func(int64, string) { ledger.Mark(7, link) },
		func(context.Context, oauth2.TokenSource, string) error { return errors.New("no token") })
	if err != nil {
		t.Fatalf("NewBroker: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = b.Authenticate(ctx, 7, link)
	if !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("err = %v, want ErrAuthFailure", err)
	}

	// Abandonment is one-shot: the ledger row is cleared.
	marked, _ := ledger.Check(context.Background(), 7, link)
	if marked {
		t.Error("ledger row not cleared after abandonment")
	}
}

func TestAuthenticateCancelled(t *testing.T) {
	b, err := NewBroker(testConfig(t), newMemLedger(),
		func(int64, string) {},
		func(context.Context, oauth2.TokenSource, string) error { return errors.New("no token") })
	if err != nil {
		t.Fatalf("NewBroker: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	if _, err := b.Authenticate(ctx, 7, "https://docs.google.com/spreadsheets/d/abc/"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
