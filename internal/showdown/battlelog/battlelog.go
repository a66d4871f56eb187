// Package battlelog splits a raw Pokémon Showdown battle log into typed
// events. A log is a newline-delimited stream where every protocol line has
// the shape |tag|arg1|arg2|... ; lines that don't are carried through as
// untagged events so callers can still scan the surrounding text.
package battlelog

import (
	"strings"
)

// Tags the downstream consumers care about. Anything else is preserved with
// its raw tag but otherwise uninterpreted.
const (
	TagPlayer        = "player"
	TagPoke          = "poke"
	TagSwitch        = "switch"
	TagDrag          = "drag"
	TagReplace       = "replace"
	TagDetailsChange = "detailschange"
	TagFaint         = "faint"
	TagWeather       = "-weather"
	TagSideStart     = "-sidestart"
	TagSideEnd       = "-sideend"
	TagStatus        = "-status"
	TagHeal          = "-heal"
	TagDamage        = "-damage"
	TagFail          = "-fail"
	TagMove          = "move"
	TagWin           = "win"
)

// Event is a single log line. Offset is the byte offset of the line start
// within the original log; the attribution engine uses it to look at the
// text immediately preceding a faint.
type Event struct {
	Tag    string
	Args   []string
	Raw    string
	Offset int
}

// Scan splits log into events, one per line, preserving line order.
// Non-protocol lines (no leading pipe) produce an Event with an empty Tag.
func Scan(log string) []Event {
	events := make([]Event, 0, strings.Count(log, "\n")+1)
	offset := 0
	for _, line := range strings.Split(log, "\n") {
		ev := Event{Raw: line, Offset: offset}
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(trimmed, "|") {
			parts := strings.Split(trimmed, "|")
			if len(parts) >= 2 {
				ev.Tag = parts[1]
				ev.Args = parts[2:]
			}
		}
		events = append(events, ev)
		offset += len(line) + 1
	}
	return events
}

// Arg returns the i-th argument or "" when the line is shorter.
func (e Event) Arg(i int) string {
	if i < 0 || i >= len(e.Args) {
		return ""
	}
	return e.Args[i]
}

// Position is a parsed active-slot reference such as "p1a: Garchomp".
type Position struct {
	Player   string // "p1" or "p2"
	Slot     string // "p1a", "p2b", or "p1" when the log omits the slot letter
	Nickname string
}

// ParsePosition parses "p1a: Nick" (and the slotless "p1: Nick" variant used
// by heal lines). ok is false when the string is not a position at all.
func ParsePosition(s string) (Position, bool) {
	slot, nick, found := strings.Cut(s, ": ")
	if !found || len(slot) < 2 || slot[0] != 'p' {
		return Position{}, false
	}
	return Position{
		Player:   slot[:2],
		Slot:     slot,
		Nickname: nick,
	}, true
}

// ParseSide parses a side reference such as "p2: Gary" from -sidestart lines
// and returns the player slot ("p2").
func ParseSide(s string) string {
	side, _, _ := strings.Cut(s, ":")
	if len(side) >= 2 && side[0] == 'p' {
		return side[:2]
	}
	return ""
}

// Species extracts the species from a details string such as
// "Rillaboom, M" or "Charizard, L50, F". Team-preview entries carry an
// undisclosed-form marker ("Urshifu-*") which is trimmed.
func Species(details string) string {
	name, _, _ := strings.Cut(details, ",")
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, "-*")
	return name
}

// Opponent maps one player slot to the other.
func Opponent(player string) string {
	if player == "p1" {
		return "p2"
	}
	return "p1"
}
