// Package smogon retrieves competitive move sets from the public set dumps
// so players can ask for builds from chat without leaving the channel.
package smogon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	baseURL        = "https://data.pkmn.cc/sets"
	rateLimitDelay = 500 * time.Millisecond
	requestTimeout = 15 * time.Second
	cacheTTL       = 6 * time.Hour
)

// ErrSetsNotFound is returned when the dump has no entry for a Pokemon.
var ErrSetsNotFound = fmt.Errorf("no sets found")

// MoveSet is one published build for a Pokemon in one format.
type MoveSet struct {
	Name    string
	Format  string
	Item    string
	Ability string
	Nature  string
	EVs     map[string]int
	Moves   []string
}

// rawSet mirrors the dump's JSON shape. Slots that allow alternatives
// arrive as arrays; single choices arrive as bare strings.
type rawSet struct {
	Item    flexString     `json:"item"`
	Ability flexString     `json:"ability"`
	Nature  flexString     `json:"nature"`
	EVs     map[string]int `json:"evs"`
	Moves   []flexString   `json:"moves"`
}

// flexString decodes either "Leftovers" or ["Leftovers","Black Sludge"],
// keeping the first option.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	if len(list) > 0 {
		*f = flexString(list[0])
	}
	return nil
}

type cacheEntry struct {
	// species -> format -> set name -> set
	dump      map[string]map[string]map[string]rawSet
	fetchedAt time.Time
}

// Client fetches generation dumps and answers per-Pokemon set queries.
// Dumps are large, so they are cached whole per generation.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewClient creates a set retrieval client.
func NewClient() *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(rateLimitDelay), 1),
		cache:       make(map[string]cacheEntry),
	}
}

// Sets returns the published builds for a Pokemon in a generation, newest
// format tier first. Lookup is case-insensitive on the species name.
func (c *Client) Sets(ctx context.Context, pokemon, generation string) ([]MoveSet, error) {
	dump, err := c.dump(ctx, generation)
	if err != nil {
		return nil, err
	}

	var formats map[string]map[string]rawSet
	for species, f := range dump {
		if strings.EqualFold(species, pokemon) {
			formats = f
			break
		}
	}
	if formats == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrSetsNotFound, pokemon, generation)
	}

	var sets []MoveSet
	for format, named := range formats {
		for name, raw := range named {
			moves := make([]string, 0, len(raw.Moves))
			for _, m := range raw.Moves {
				moves = append(moves, string(m))
			}
			sets = append(sets, MoveSet{
				Name:    name,
				Format:  format,
				Item:    string(raw.Item),
				Ability: string(raw.Ability),
				Nature:  string(raw.Nature),
				EVs:     raw.EVs,
				Moves:   moves,
			})
		}
	}
	sort.Slice(sets, func(i, j int) bool {
		if sets[i].Format != sets[j].Format {
			return sets[i].Format < sets[j].Format
		}
		return sets[i].Name < sets[j].Name
	})
	return sets, nil
}

// dump returns the cached generation dump, fetching when stale or missing.
func (c *Client) dump(ctx context.Context, generation string) (map[string]map[string]map[string]rawSet, error) {
	c.mu.Lock()
	entry, ok := c.cache[generation]
	c.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < cacheTTL {
		return entry.dump, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	url := fmt.Sprintf("%s/%s.json", c.baseURL, generation)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch set dump %s: %w", generation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: unknown generation %s", ErrSetsNotFound, generation)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("set dump %s returned status %d", generation, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read set dump: %w", err)
	}

	var dump map[string]map[string]map[string]rawSet
	if err := json.Unmarshal(body, &dump); err != nil {
		return nil, fmt.Errorf("parse set dump %s: %w", generation, err)
	}

	c.mu.Lock()
	c.cache[generation] = cacheEntry{dump: dump, fetchedAt: time.Now()}
	c.mu.Unlock()
	return dump, nil
}

// FormatSet renders one build in the import-paste layout players expect.
func FormatSet(pokemon string, s MoveSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s @ %s\n", pokemon, s.Item)
	if s.Ability != "" {
		fmt.Fprintf(&b, "Ability: %s\n", s.Ability)
	}
	if len(s.EVs) > 0 {
		stats := make([]string, 0, len(s.EVs))
		for _, stat := range []string{"hp", "atk", "def", "spa", "spd", "spe"} {
			if v, ok := s.EVs[stat]; ok {
				stats = append(stats, fmt.Sprintf("%d %s", v, strings.ToUpper(stat)))
			}
		}
		fmt.Fprintf(&b, "EVs: %s\n", strings.Join(stats, " / "))
	}
	if s.Nature != "" {
		fmt.Fprintf(&b, "%s Nature\n", s.Nature)
	}
	for _, m := range s.Moves {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	return b.String()
}
