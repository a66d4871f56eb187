package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/draftleague/scorekeeper/internal/league"
	"github.com/draftleague/scorekeeper/internal/sheets/grid"
	"github.com/draftleague/scorekeeper/internal/showdown/attribution"
	"github.com/draftleague/scorekeeper/internal/showdown/replay"
	"github.com/draftleague/scorekeeper/internal/smogon"
	"github.com/draftleague/scorekeeper/internal/storage/repository"
)

type fakeAnalyzer struct {
	err error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, url string) (*replay.Analysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &replay.Analysis{
		ReplayID: replay.ReplayID(url),
		Result: &attribution.Result{
			Players: [2]attribution.PlayerSummary{
				{Slot: "p1", Name: "Alice"},
				{Slot: "p2", Name: "Bob"},
			},
			Winner: "Alice",
			Score:  "(1-0)",
		},
	}, nil
}

type fakeScoreboard struct {
	updateErr error
	deleteErr error
	players   []string
	pokemon   []grid.PokemonLine
	listErr   error
}

func (f *fakeScoreboard) Update(_ context.Context, tenant int64, _, tab string, a *replay.Analysis, _ bool) (*league.UpdateReport, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &league.UpdateReport{JobID: "job-1", Tab: tab, ReplayID: a.ReplayID}, nil
}

func (f *fakeScoreboard) Delete(context.Context, int64, string, string, string) error {
	return f.deleteErr
}

func (f *fakeScoreboard) Players(context.Context, int64, string, string) ([]string, error) {
	return f.players, f.listErr
}

func (f *fakeScoreboard) Pokemon(context.Context, int64, string, string, string) ([]grid.PokemonLine, error) {
	return f.pokemon, f.listErr
}

type fakeBindings struct {
	bindings map[int64]*repository.Binding
}

func (f *fakeBindings) Set(_ context.Context, tenant int64, sheetURL, tabName string) error {
	f.bindings[tenant] = &repository.Binding{
		Tenant: tenant, SheetURL: sheetURL, TabName: tabName, UpdatedAt: time.Now(),
	}
	return nil
}

func (f *fakeBindings) Get(_ context.Context, tenant int64) (*repository.Binding, error) {
	b, ok := f.bindings[tenant]
	if !ok {
		return nil, repository.ErrNoDefault
	}
	return b, nil
}

func (f *fakeBindings) Exists(_ context.Context, tenant int64) (bool, error) {
	_, ok := f.bindings[tenant]
	return ok, nil
}

type fakeSets struct {
	sets []smogon.MoveSet
	err  error
}

func (f *fakeSets) Sets(context.Context, string, string) ([]smogon.MoveSet, error) {
	return f.sets, f.err
}

type testDeps struct {
	analyzer *fakeAnalyzer
	board    *fakeScoreboard
	bindings *fakeBindings
	sets     *fakeSets
}

func newTestServer() (*Server, *testDeps) {
	deps := &testDeps{
		analyzer: &fakeAnalyzer{},
		board:    &fakeScoreboard{},
		bindings: &fakeBindings{bindings: make(map[int64]*repository.Binding)},
		sets:     &fakeSets{},
	}
	s := NewServer(DefaultConfig(), Deps{
		Board:    deps.board,
		Analyzer: deps.analyzer,
		Bindings: deps.bindings,
		Sets:     deps.sets,
	})
	return s, deps
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	s, _ := newTestServer()
	w := doJSON(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAnalyze(t *testing.T) {
	s, _ := newTestServer()
	w := doJSON(t, s, http.MethodPost, "/api/analyze", map[string]string{
		"url": "https://replay.pokemonshowdown.com/gen9ou-42",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "gen9ou-42") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAnalyzeRejectsMissingURL(t *testing.T) {
	s, _ := newTestServer()
	w := doJSON(t, s, http.MethodPost, "/api/analyze", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAnalyzeInvalidReplay(t *testing.T) {
	s, deps := newTestServer()
	deps.analyzer.err = fmt.Errorf("%w: no such replay", replay.ErrInvalidReplay)

	w := doJSON(t, s, http.MethodPost, "/api/analyze", map[string]string{"url": "nope"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid replay link") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSheetsUpdate(t *testing.T) {
	s, _ := newTestServer()
	w := doJSON(t, s, http.MethodPost, "/api/sheets/update", map[string]interface{}{
		"tenant":     1,
		"replay_url": "https://replay.pokemonshowdown.com/gen9ou-42",
		"tab":        "Week 1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "job-1") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSheetsUpdateRepeatReplay(t *testing.T) {
	s, deps := newTestServer()
	deps.board.updateErr = repository.ErrReplayAlreadyApplied

	w := doJSON(t, s, http.MethodPost, "/api/sheets/update", map[string]interface{}{
		"tenant":     1,
		"replay_url": "https://replay.pokemonshowdown.com/gen9ou-42",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
}

func TestSheetsDelete(t *testing.T) {
	s, deps := newTestServer()

	w := doJSON(t, s, http.MethodPost, "/api/sheets/delete", map[string]interface{}{
		"tenant": 1,
		"player": "Alice",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	deps.board.deleteErr = league.ErrNameNotFound
	w = doJSON(t, s, http.MethodPost, "/api/sheets/delete", map[string]interface{}{
		"tenant": 1,
		"player": "Mallory",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "does not exist on the scoreboard") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSheetsList(t *testing.T) {
	s, deps := newTestServer()
	deps.board.players = []string{"Alice", "Bob"}

	w := doJSON(t, s, http.MethodGet, "/api/sheets/list?tenant=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Alice") {
		t.Errorf("body = %s", w.Body.String())
	}

	deps.board.pokemon = []grid.PokemonLine{{Name: "Garchomp", Kills: 3, Deaths: 1}}
	w = doJSON(t, s, http.MethodGet, "/api/sheets/list?tenant=1&player=Alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Garchomp") {
		t.Errorf("body = %s", w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/api/sheets/list", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing tenant status = %d", w.Code)
	}
}

func TestSheetsListEmpty(t *testing.T) {
	s, deps := newTestServer()
	deps.board.listErr = league.ErrNoPlayers

	w := doJSON(t, s, http.MethodGet, "/api/sheets/list?tenant=1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestDefaultsRoundTrip(t *testing.T) {
	s, _ := newTestServer()

	w := doJSON(t, s, http.MethodGet, "/api/defaults/7", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unset default status = %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPut, "/api/defaults/7", map[string]string{
		"sheet_url": "https://docs.google.com/spreadsheets/d/abc/",
		"tab":       "Week 1",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("set status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/api/defaults/7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Week 1") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSets(t *testing.T) {
	s, deps := newTestServer()
	deps.sets.sets = []smogon.MoveSet{{
		Name: "Swords Dance", Format: "ou", Item: "Loaded Dice",
		Moves: []string{"Swords Dance", "Earthquake"},
	}}

	w := doJSON(t, s, http.MethodGet, "/api/sets/garchomp", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Swords Dance") {
		t.Errorf("body = %s", w.Body.String())
	}

	deps.sets.sets = nil
	deps.sets.err = smogon.ErrSetsNotFound
	w = doJSON(t, s, http.MethodGet, "/api/sets/missingno", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestContentTypeEnforced(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"url":"x"}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d", w.Code)
	}
}
