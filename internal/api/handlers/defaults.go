package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/draftleague/scorekeeper/internal/api/response"
	"github.com/draftleague/scorekeeper/internal/storage/repository"
)

// DefaultsHandler handles the per-server default sheet binding.
type DefaultsHandler struct {
	bindings repository.BindingsRepository
}

// NewDefaultsHandler creates a new DefaultsHandler.
func NewDefaultsHandler(bindings repository.BindingsRepository) *DefaultsHandler {
	return &DefaultsHandler{bindings: bindings}
}

// SetDefaultRequest is the binding to save.
type SetDefaultRequest struct {
	SheetURL string `json:"sheet_url"`
	Tab      string `json:"tab,omitempty"`
}

// BindingResponse is a saved binding.
type BindingResponse struct {
	Tenant   int64  `json:"tenant"`
	SheetURL string `json:"sheet_url"`
	Tab      string `json:"tab"`
}

func tenantParam(r *http.Request) (int64, bool) {
	tenant, err := strconv.ParseInt(chi.URLParam(r, "tenant"), 10, 64)
	return tenant, err == nil
}

// Set saves the default binding for a server.
func (h *DefaultsHandler) Set(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantParam(r)
	if !ok {
		response.BadRequest(w, "invalid tenant")
		return
	}

	var req SetDefaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.SheetURL == "" {
		response.BadRequest(w, "sheet_url is required")
		return
	}

	if err := h.bindings.Set(r.Context(), tenant, req.SheetURL, req.Tab); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Get returns the saved binding for a server.
func (h *DefaultsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantParam(r)
	if !ok {
		response.BadRequest(w, "invalid tenant")
		return
	}

	b, err := h.bindings.Get(r.Context(), tenant)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.Success(w, BindingResponse{
		Tenant:   b.Tenant,
		SheetURL: b.SheetURL,
		Tab:      b.TabName,
	})
}
