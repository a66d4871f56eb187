package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/draftleague/scorekeeper/internal/api/response"
	"github.com/draftleague/scorekeeper/internal/league"
	"github.com/draftleague/scorekeeper/internal/sheets/grid"
	"github.com/draftleague/scorekeeper/internal/showdown/replay"
)

// Scoreboard is the slice of the league engine the handlers drive.
type Scoreboard interface {
	Update(ctx context.Context, tenant int64, link, tab string, a *replay.Analysis, force bool) (*league.UpdateReport, error)
	Delete(ctx context.Context, tenant int64, link, tab, player string) error
	Players(ctx context.Context, tenant int64, link, tab string) ([]string, error)
	Pokemon(ctx context.Context, tenant int64, link, tab, player string) ([]grid.PokemonLine, error)
}

// SheetsHandler handles scoreboard requests.
type SheetsHandler struct {
	board    Scoreboard
	analyzer Analyzer
}

// NewSheetsHandler creates a new SheetsHandler.
func NewSheetsHandler(board Scoreboard, analyzer Analyzer) *SheetsHandler {
	return &SheetsHandler{board: board, analyzer: analyzer}
}

// UpdateRequest folds one replay into a scoreboard. SheetURL and Tab fall
// back to the server's saved default binding when empty.
type UpdateRequest struct {
	Tenant    int64  `json:"tenant"`
	ReplayURL string `json:"replay_url"`
	SheetURL  string `json:"sheet_url,omitempty"`
	Tab       string `json:"tab,omitempty"`
	Force     bool   `json:"force,omitempty"`
}

// Update analyzes a replay and writes both players' tallies to the board.
func (h *SheetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.ReplayURL == "" {
		response.BadRequest(w, "replay_url is required")
		return
	}

	analysis, err := h.analyzer.Analyze(r.Context(), req.ReplayURL)
	if err != nil {
		WriteError(w, err)
		return
	}

	report, err := h.board.Update(r.Context(), req.Tenant, req.SheetURL, req.Tab, analysis, req.Force)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"report":   report,
		"analysis": analysis,
	})
}

// DeleteRequest removes a player's section from the scoreboard.
type DeleteRequest struct {
	Tenant   int64  `json:"tenant"`
	SheetURL string `json:"sheet_url,omitempty"`
	Tab      string `json:"tab,omitempty"`
	Player   string `json:"player"`
}

// Delete clears a player's section, formatting included.
func (h *SheetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Player == "" {
		response.BadRequest(w, "player is required")
		return
	}

	if err := h.board.Delete(r.Context(), req.Tenant, req.SheetURL, req.Tab, req.Player); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// List returns the players on the board, or one player's Pokemon rows when
// the player query parameter is set.
func (h *SheetsHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, err := strconv.ParseInt(r.URL.Query().Get("tenant"), 10, 64)
	if err != nil {
		response.BadRequest(w, "tenant is required")
		return
	}
	link := r.URL.Query().Get("sheet_url")
	tab := r.URL.Query().Get("tab")

	if player := r.URL.Query().Get("player"); player != "" {
		lines, err := h.board.Pokemon(r.Context(), tenant, link, tab, player)
		if err != nil {
			WriteError(w, err)
			return
		}
		response.Success(w, lines)
		return
	}

	players, err := h.board.Players(r.Context(), tenant, link, tab)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.Success(w, players)
}
