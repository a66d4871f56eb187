// Package replay fetches finished battles from the Showdown replay server
// and runs them through the analyzer.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/draftleague/scorekeeper/internal/showdown/attribution"
)

// ErrInvalidReplay is returned when the link doesn't resolve to a replay or
// the payload doesn't look like one.
var ErrInvalidReplay = errors.New("invalid replay link")

const (
	requestTimeout = 15 * time.Second
	rateLimitDelay = 500 * time.Millisecond
)

// Replay is the JSON document the replay server serves at <url>.json.
type Replay struct {
	ID      string   `json:"id"`
	Players []string `json:"players"`
	Log     string   `json:"log"`
}

// Client fetches replays with a bounded timeout and a polite rate limit.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	userAgent   string
}

// NewClient creates a replay client with the default timeout and rate limit.
func NewClient() *Client {
	return NewClientWith(requestTimeout, rateLimitDelay)
}

// NewClientWith creates a replay client with an explicit request timeout and
// minimum delay between requests.
func NewClientWith(timeout, delay time.Duration) *Client {
	if timeout <= 0 {
		timeout = requestTimeout
	}
	if delay <= 0 {
		delay = rateLimitDelay
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(rate.Every(delay), 1),
		userAgent:   "scorekeeper/1.0",
	}
}

// Fetch downloads and validates the replay behind url. The ".json" suffix is
// appended when missing. Timeouts are surfaced as errors and not retried.
func (c *Client) Fetch(ctx context.Context, url string) (*Replay, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidReplay, url)
	}
	if !strings.HasSuffix(url, ".json") {
		url = strings.TrimSuffix(url, "/") + ".json"
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReplay, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch replay: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidReplay, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read replay body: %w", err)
	}

	var r Replay
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReplay, err)
	}
	if len(r.Players) != 2 || r.Log == "" {
		return nil, fmt.Errorf("%w: unexpected payload shape", ErrInvalidReplay)
	}
	return &r, nil
}

// Analysis bundles the attribution result with the replay it came from.
type Analysis struct {
	ReplayID string
	*attribution.Result
}

// Analyze fetches a replay and computes per-player kill/death tallies.
func (c *Client) Analyze(ctx context.Context, url string) (*Analysis, error) {
	r, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	res := attribution.Run(r.Log)
	// The JSON header is authoritative for display names; the |player| lines
	// occasionally lag behind renames.
	for i := range res.Players {
		if i < len(r.Players) && r.Players[i] != "" {
			res.Players[i].Name = r.Players[i]
		}
	}

	return &Analysis{ReplayID: ReplayID(url), Result: res}, nil
}

// ReplayID extracts the stable replay identifier from a replay URL, e.g.
// "gen9ou-123456789" from "https://replay.pokemonshowdown.com/gen9ou-123456789".
func ReplayID(url string) string {
	url = strings.TrimSuffix(url, ".json")
	url = strings.TrimSuffix(url, "/")
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
