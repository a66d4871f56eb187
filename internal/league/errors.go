package league

import "errors"

var (
	// ErrNameNotFound is returned when a named player has no section on the
	// scoreboard tab.
	ErrNameNotFound = errors.New("player not found on scoreboard")

	// ErrNoPlayers is returned when the tab holds no sections at all.
	ErrNoPlayers = errors.New("no players on scoreboard")

	// ErrNoPokemon is returned when a player's section has no data rows.
	ErrNoPokemon = errors.New("no pokemon recorded for player")
)
