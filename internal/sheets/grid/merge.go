package grid

import (
	"fmt"
	"strconv"
	"strings"
)

// PokemonLine is one Pokémon's contribution from a single analyzed replay.
type PokemonLine struct {
	Name   string
	Kills  int
	Deaths int
}

// RowUpdate is a single data row to write back. Row is the zero-based index
// within the section's 12-row data rectangle.
type RowUpdate struct {
	Row    int
	Values [SectionCols]string
}

// FullSectionError reports that a section's 12 data rows are all occupied
// and the named Pokémon cannot be placed.
type FullSectionError struct {
	Player  string
	Pokemon string
}

func (e *FullSectionError) Error() string {
	return fmt.Sprintf("scoreboard section for %s is full, cannot add %s", e.Player, e.Pokemon)
}

// MergePokemon folds one replay's Pokémon lines into an existing 12-row data
// rectangle. Matched rows accumulate (games+1, kills+Δ, deaths+Δ); new
// Pokémon take the first empty row. Empty incoming input yields no updates.
func MergePokemon(player string, existing [][]string, incoming []PokemonLine) ([]RowUpdate, error) {
	index := make(map[string]int, DataRows)  // canonical name -> row
	occupied := make(map[int]bool, DataRows) // rows holding a Pokémon
	for row := 0; row < DataRows; row++ {
		name := strings.TrimSpace(cellValue(existing, row, 0))
		if name == "" {
			continue
		}
		index[strings.ToLower(name)] = row
		occupied[row] = true
	}

	var updates []RowUpdate
	for _, in := range incoming {
		row, matched := index[strings.ToLower(in.Name)]
		if matched {
			games := atoi(cellValue(existing, row, 1))
			kills := atoi(cellValue(existing, row, 2))
			deaths := atoi(cellValue(existing, row, 3))
			updates = append(updates, RowUpdate{
				Row:    row,
				Values: statRow(in.Name, games+1, kills+in.Kills, deaths+in.Deaths),
			})
			continue
		}

		row = -1
		for r := 0; r < DataRows; r++ {
			if !occupied[r] {
				row = r
				break
			}
		}
		if row < 0 {
			return nil, &FullSectionError{Player: player, Pokemon: in.Name}
		}
		occupied[row] = true
		index[strings.ToLower(in.Name)] = row
		updates = append(updates, RowUpdate{
			Row:    row,
			Values: statRow(in.Name, 1, in.Kills, in.Deaths),
		})
	}
	return updates, nil
}

// NewSectionRows builds the full 14 rows for a fresh section: header, the
// canonical labels, then the Pokémon lines padded to 12 data rows.
func NewSectionRows(player string, incoming []PokemonLine) [][]string {
	rows := make([][]string, 0, SectionRows)
	rows = append(rows, []string{player, "", "", ""})
	rows = append(rows, Labels[:])
	for i := 0; i < DataRows; i++ {
		if i < len(incoming) {
			row := statRow(incoming[i].Name, 1, incoming[i].Kills, incoming[i].Deaths)
			rows = append(rows, row[:])
		} else {
			rows = append(rows, []string{"", "", "", ""})
		}
	}
	return rows
}

func statRow(name string, games, kills, deaths int) [SectionCols]string {
	return [SectionCols]string{
		name,
		strconv.Itoa(games),
		strconv.Itoa(kills),
		strconv.Itoa(deaths),
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
