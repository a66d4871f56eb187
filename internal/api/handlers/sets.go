package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/draftleague/scorekeeper/internal/api/response"
	"github.com/draftleague/scorekeeper/internal/smogon"
)

// SetsProvider looks up published builds.
type SetsProvider interface {
	Sets(ctx context.Context, pokemon, generation string) ([]smogon.MoveSet, error)
}

// SetsHandler handles move set lookups.
type SetsHandler struct {
	provider          SetsProvider
	defaultGeneration string
}

// NewSetsHandler creates a new SetsHandler.
func NewSetsHandler(provider SetsProvider, defaultGeneration string) *SetsHandler {
	return &SetsHandler{provider: provider, defaultGeneration: defaultGeneration}
}

// SetResponse is one build with its chat-ready rendering.
type SetResponse struct {
	smogon.MoveSet
	Display string `json:"display"`
}

// Get returns the published builds for a Pokemon.
func (h *SetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	pokemon := chi.URLParam(r, "pokemon")
	generation := r.URL.Query().Get("generation")
	if generation == "" {
		generation = h.defaultGeneration
	}

	sets, err := h.provider.Sets(r.Context(), pokemon, generation)
	if err != nil {
		WriteError(w, err)
		return
	}

	out := make([]SetResponse, 0, len(sets))
	for _, s := range sets {
		out = append(out, SetResponse{MoveSet: s, Display: smogon.FormatSet(pokemon, s)})
	}
	response.Success(w, out)
}
