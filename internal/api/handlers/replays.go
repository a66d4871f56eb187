package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/draftleague/scorekeeper/internal/api/response"
	"github.com/draftleague/scorekeeper/internal/showdown/replay"
)

// Analyzer fetches and analyzes one replay.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (*replay.Analysis, error)
}

// ReplayHandler handles replay analysis requests.
type ReplayHandler struct {
	analyzer Analyzer
}

// NewReplayHandler creates a new ReplayHandler.
func NewReplayHandler(analyzer Analyzer) *ReplayHandler {
	return &ReplayHandler{analyzer: analyzer}
}

// AnalyzeRequest names the replay to analyze.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// Analyze fetches a replay and returns per-player kill/death tallies.
func (h *ReplayHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.URL == "" {
		response.BadRequest(w, "url is required")
		return
	}

	analysis, err := h.analyzer.Analyze(r.Context(), req.URL)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.Success(w, analysis)
}
