package handlers

import (
	"errors"
	"net/http"

	"github.com/draftleague/scorekeeper/internal/api/response"
	"github.com/draftleague/scorekeeper/internal/auth"
	"github.com/draftleague/scorekeeper/internal/league"
	"github.com/draftleague/scorekeeper/internal/sheets"
	"github.com/draftleague/scorekeeper/internal/sheets/grid"
	"github.com/draftleague/scorekeeper/internal/showdown/replay"
	"github.com/draftleague/scorekeeper/internal/smogon"
	"github.com/draftleague/scorekeeper/internal/storage/repository"
)

// WriteError maps a service error to the HTTP status and the human message
// the chat collaborator relays verbatim.
func WriteError(w http.ResponseWriter, err error) {
	var full *grid.FullSectionError
	switch {
	case errors.Is(err, replay.ErrInvalidReplay):
		response.BadRequest(w, "That is an invalid replay link.")
	case errors.Is(err, sheets.ErrInvalidWorkbook):
		response.BadRequest(w, "That is an invalid sheets link.")
	case errors.Is(err, auth.ErrAuthFailure):
		response.Error(w, http.StatusUnauthorized, "Authentication failed.")
	case errors.Is(err, league.ErrNameNotFound):
		response.Error(w, http.StatusNotFound, "That name does not exist on the scoreboard.")
	case errors.Is(err, league.ErrNoPlayers):
		response.Error(w, http.StatusNotFound, "There are no players on the scoreboard.")
	case errors.Is(err, league.ErrNoPokemon):
		response.Error(w, http.StatusNotFound, "There are no Pokemon recorded for that player.")
	case errors.As(err, &full):
		response.Error(w, http.StatusConflict, full.Error())
	case errors.Is(err, repository.ErrNoDefault):
		response.BadRequest(w, "No default sheet is set for this server.")
	case errors.Is(err, repository.ErrReplayAlreadyApplied):
		response.Error(w, http.StatusConflict, "That replay was already applied to this scoreboard.")
	case errors.Is(err, smogon.ErrSetsNotFound):
		response.Error(w, http.StatusNotFound, "No sets found for that Pokemon.")
	default:
		response.Error(w, http.StatusInternalServerError, err.Error())
	}
}
