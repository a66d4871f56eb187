// Package grid is the pure layout calculus for the league scoreboard. A
// player section is a fixed 14-row by 4-column rectangle: a merged header
// row with the player name, a label row, then 12 Pokémon data rows.
// Sections repeat 4-across per 15-row block at columns B, G, L and Q.
// Nothing here touches the network; callers feed it the cell values they
// read and apply the updates it returns.
package grid

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// SectionRows is header + labels + data.
	SectionRows = 14
	// DataRows is the Pokémon capacity of one section.
	DataRows = 12
	// SectionCols is POKEMON/GAMES/KILLS/DEATHS.
	SectionCols = 4
	// BlockRows is a section plus its spacer row.
	BlockRows = 15
	// Slots is how many sections sit side by side in a block.
	Slots = 4
)

// Labels is the canonical label row, upper-case on write.
var Labels = [SectionCols]string{"POKEMON", "GAMES", "KILLS", "DEATHS"}

// slotCols are the zero-based column indices of B, G, L, Q.
var slotCols = [Slots]int{1, 6, 11, 16}

// Cell is a zero-based grid coordinate.
type Cell struct {
	Row, Col int
}

// A1 renders the cell in A1 notation.
func (c Cell) A1() string {
	return ColLetter(c.Col) + strconv.Itoa(c.Row+1)
}

// Range is a zero-based, inclusive rectangle.
type Range struct {
	Start, End Cell
}

// A1 renders the range in A1 notation, e.g. "B2:E15".
func (r Range) A1() string {
	return r.Start.A1() + ":" + r.End.A1()
}

// Rows returns the row count of the range.
func (r Range) Rows() int { return r.End.Row - r.Start.Row + 1 }

// ColLetter converts a zero-based column index to its letter name.
func ColLetter(col int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return name
}

// SectionTop returns the header cell of the section at (block, slot).
func SectionTop(block, slot int) Cell {
	return Cell{Row: block*BlockRows + 1, Col: slotCols[slot]}
}

// cellValue reads a cell from a possibly ragged value grid; missing cells
// are empty strings.
func cellValue(values [][]string, row, col int) string {
	if row < 0 || row >= len(values) || col < 0 || col >= len(values[row]) {
		return ""
	}
	return values[row][col]
}

// labelsAt reports whether the canonical label row sits at the given cell.
// Comparison is case-insensitive; writes always use the canonical form.
func labelsAt(values [][]string, row, col int) bool {
	for i, want := range Labels {
		if !strings.EqualFold(strings.TrimSpace(cellValue(values, row, col+i)), want) {
			return false
		}
	}
	return true
}

// sectionValid reports whether the slot holds a well-formed occupied
// section: non-empty header and canonical labels underneath.
func sectionValid(values [][]string, top Cell) bool {
	if strings.TrimSpace(cellValue(values, top.Row, top.Col)) == "" {
		return false
	}
	return labelsAt(values, top.Row+1, top.Col)
}

// NextDataCell finds the top-left cell for the next new section: the first
// (block, slot) in scan order whose header is empty or whose labels are
// wrong. A grid where every touched slot is valid grows a fresh block two
// rows past the last read row. The result is stable for an unchanged grid.
func NextDataCell(values [][]string) Cell {
	for block := 0; block*BlockRows+1 < len(values); block++ {
		for slot := 0; slot < Slots; slot++ {
			top := SectionTop(block, slot)
			if !sectionValid(values, top) {
				return top
			}
		}
	}
	return Cell{Row: len(values) + 1, Col: slotCols[0]}
}

// FindHeader locates the section header carrying the player name,
// case-insensitively, scanning only legal header positions.
func FindHeader(values [][]string, player string) (Cell, bool) {
	for block := 0; block*BlockRows+1 < len(values); block++ {
		for slot := 0; slot < Slots; slot++ {
			top := SectionTop(block, slot)
			if strings.EqualFold(strings.TrimSpace(cellValue(values, top.Row, top.Col)), strings.TrimSpace(player)) {
				return top, true
			}
		}
	}
	return Cell{}, false
}

// CheckLabels reports whether the player's section exists and carries the
// canonical label row.
func CheckLabels(values [][]string, player string) bool {
	top, ok := FindHeader(values, player)
	if !ok {
		return false
	}
	return labelsAt(values, top.Row+1, top.Col)
}

// StatRange returns the 12-row data rectangle of the player's section.
func StatRange(values [][]string, player string) (Range, error) {
	top, ok := FindHeader(values, player)
	if !ok {
		return Range{}, fmt.Errorf("no section for player %q", player)
	}
	start := Cell{Row: top.Row + 2, Col: top.Col}
	return Range{
		Start: start,
		End:   Cell{Row: start.Row + DataRows - 1, Col: start.Col + SectionCols - 1},
	}, nil
}

// SectionRange returns the full 14-row rectangle of the player's section.
func SectionRange(values [][]string, player string) (Range, error) {
	top, ok := FindHeader(values, player)
	if !ok {
		return Range{}, fmt.Errorf("no section for player %q", player)
	}
	return Range{
		Start: top,
		End:   Cell{Row: top.Row + SectionRows - 1, Col: top.Col + SectionCols - 1},
	}, nil
}

// SectionRangeAt returns the 14-row rectangle anchored at a header cell.
func SectionRangeAt(top Cell) Range {
	return Range{
		Start: top,
		End:   Cell{Row: top.Row + SectionRows - 1, Col: top.Col + SectionCols - 1},
	}
}
