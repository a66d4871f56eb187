// Package attribution assigns kills on faint events. Every faint is run
// through an ordered rule table; the first rule whose context predicate
// matches names the killer. Indirect damage (weather, poison, hazards,
// Leech Seed) is traced back to the Pokémon that caused it.
package attribution

import (
	"fmt"
	"sort"
	"strings"

	"github.com/draftleague/scorekeeper/internal/showdown/battle"
	"github.com/draftleague/scorekeeper/internal/showdown/battlelog"
)

// contextWindow is how much log text immediately before a faint line is
// inspected for a damage-source marker.
const contextWindow = 80

// PokemonStat is one row of the per-player summary.
type PokemonStat struct {
	Name     string // canonical species name
	Nickname string
	Kills    int
	Deaths   int
}

// PlayerSummary is the analyzed outcome for one side.
type PlayerSummary struct {
	Slot    string // "p1" or "p2"
	Name    string
	Pokemon []PokemonStat
}

// Result is the full analysis of one battle log.
type Result struct {
	Players    [2]PlayerSummary
	Winner     string
	Score      string // "(2-0)" style differential after revival adjustments
	Faints     int
	Revivals   int
	Unresolved int // faints no rule could pin on a known Pokémon
	Notes      []string
}

// rule pairs a predicate over the text preceding a faint with an extractor
// that names the originator. Rules are data; order is the priority.
type rule struct {
	name    string
	matches func(window string) bool
	origin  func(e *engine, faintIdx int, fainted battle.Ref) (battle.Ref, bool)
}

type engine struct {
	log    string
	events []battlelog.Event
	b      *battle.Battle
	rules  []rule

	unresolved int
	notes      []string
}

func contains(marker string) func(string) bool {
	return func(window string) bool { return strings.Contains(window, marker) }
}

func newEngine(log string) *engine {
	e := &engine{
		log:    log,
		events: battlelog.Scan(log),
		b:      battle.New(),
	}
	e.rules = []rule{
		{"sandstorm", contains("[from] Sandstorm"), (*engine).weatherOrigin},
		{"poison", contains("[from] psn"), (*engine).poisonOrigin},
		{"spikes", contains("[from] Spikes"), (*engine).spikesOrigin},
		{"stealth rock", contains("[from] Stealth Rock"), (*engine).rockOrigin},
		{"leech seed", contains("[from] Leech Seed"), (*engine).seedOrigin},
		{"direct", func(string) bool { return true }, (*engine).directOrigin},
	}
	return e
}

// Run analyzes a complete battle log and returns per-player kill/death
// tallies with the final score line.
func Run(log string) *Result {
	e := newEngine(log)

	for i, ev := range e.events {
		if ev.Tag == battlelog.TagFaint {
			e.attribute(i)
		}
		e.b.Ingest(ev)
	}

	return e.result()
}

// attribute walks the rule table for the faint at events[idx] and credits
// exactly one kill, or records the faint as unresolved.
func (e *engine) attribute(idx int) {
	ev := e.events[idx]
	pos, ok := battlelog.ParsePosition(ev.Arg(0))
	if !ok {
		return
	}
	canonical, ok := e.b.CanonicalOf(pos.Player, pos.Nickname)
	if !ok {
		e.drop(fmt.Sprintf("faint of unknown Pokémon %q (%s)", pos.Nickname, pos.Player))
		return
	}
	fainted := battle.Ref{Player: pos.Player, Canonical: canonical}

	start := ev.Offset - contextWindow
	if start < 0 {
		start = 0
	}
	window := e.log[start:ev.Offset]

	for _, r := range e.rules {
		if !r.matches(window) {
			continue
		}
		killer, ok := r.origin(e, idx, fainted)
		if !ok {
			e.drop(fmt.Sprintf("%s kill on %s: originator unknown", r.name, canonical))
			return
		}
		if st := e.b.Stat(killer.Player, killer.Canonical); st != nil {
			st.Kills++
		}
		return
	}
}

func (e *engine) drop(note string) {
	e.unresolved++
	e.notes = append(e.notes, note)
}

// weatherOrigin credits the Pokémon that started the active weather.
func (e *engine) weatherOrigin(_ int, _ battle.Ref) (battle.Ref, bool) {
	origin := e.b.CurrentWeather().Origin
	return origin, origin != battle.Ref{}
}

// poisonOrigin finds the poison source. The three patterns are pattern
// priority, not nearest-match: a Toxic or Malignant Chain hit that didn't
// fail outranks a Toxic Spikes layer on the fainted side, which outranks a
// Toxic Chain ability proc naming its owner.
func (e *engine) poisonOrigin(faintIdx int, fainted battle.Ref) (battle.Ref, bool) {
	for i := faintIdx - 1; i >= 0; i-- {
		ev := e.events[i]
		if ev.Tag != battlelog.TagMove {
			continue
		}
		move := ev.Arg(1)
		if move != "Toxic" && move != "Malignant Chain" {
			continue
		}
		if !e.targets(ev, fainted) || e.followedByFail(i) {
			continue
		}
		return e.resolve(ev.Arg(0))
	}

	if setter, ok := e.b.HazardSetter(fainted.Player, "Toxic Spikes"); ok {
		return setter, true
	}

	for i := faintIdx - 1; i >= 0; i-- {
		ev := e.events[i]
		if ev.Tag != battlelog.TagStatus {
			continue
		}
		if ev.Arg(1) != "tox" || !strings.Contains(ev.Raw, "[from] ability: Toxic Chain") {
			continue
		}
		if !e.targets(ev, fainted) {
			continue
		}
		if _, of, found := strings.Cut(ev.Raw, "[of] "); found {
			return e.resolve(of)
		}
	}
	return battle.Ref{}, false
}

func (e *engine) spikesOrigin(_ int, fainted battle.Ref) (battle.Ref, bool) {
	if setter, ok := e.b.HazardSetter(fainted.Player, "Spikes"); ok {
		return setter, true
	}
	setter, ok := e.b.HazardSetter(fainted.Player, "Ceaseless Edge")
	return setter, ok
}

func (e *engine) rockOrigin(_ int, fainted battle.Ref) (battle.Ref, bool) {
	return e.b.HazardSetter(fainted.Player, "Stealth Rock")
}

// seedOrigin prefers the "[of] pXa: Nick" on the draining damage line and
// falls back to the tracked Leech Seed binding.
func (e *engine) seedOrigin(faintIdx int, fainted battle.Ref) (battle.Ref, bool) {
	for i := faintIdx - 1; i >= 0; i-- {
		ev := e.events[i]
		if ev.Tag != battlelog.TagDamage || !strings.Contains(ev.Raw, "[from] Leech Seed") {
			continue
		}
		if !e.targets(ev, fainted) {
			continue
		}
		if _, of, found := strings.Cut(ev.Raw, "[of] "); found {
			return e.resolve(of)
		}
		break
	}
	return e.b.SeedSource(fainted)
}

// directOrigin takes the nearest preceding move by the opposing side.
func (e *engine) directOrigin(faintIdx int, fainted battle.Ref) (battle.Ref, bool) {
	for i := faintIdx - 1; i >= 0; i-- {
		ev := e.events[i]
		if ev.Tag != battlelog.TagMove {
			continue
		}
		pos, ok := battlelog.ParsePosition(ev.Arg(0))
		if !ok || pos.Player == fainted.Player {
			continue
		}
		return e.resolve(ev.Arg(0))
	}
	return battle.Ref{}, false
}

// resolve turns a "pXa: Nick" reference into a Ref. A nickname that doesn't
// resolve drops the kill instead of crashing the engine.
func (e *engine) resolve(s string) (battle.Ref, bool) {
	// Position strings embedded in bracket suffixes may carry trailing args.
	if cut, _, found := strings.Cut(s, "|"); found {
		s = cut
	}
	pos, ok := battlelog.ParsePosition(strings.TrimSpace(s))
	if !ok {
		return battle.Ref{}, false
	}
	canonical, ok := e.b.CanonicalOf(pos.Player, pos.Nickname)
	if !ok {
		return battle.Ref{}, false
	}
	return battle.Ref{Player: pos.Player, Canonical: canonical}, true
}

// targets reports whether the event's target argument is the fainted
// Pokémon. Nickname resolution is scoped to the fainted player's side.
func (e *engine) targets(ev battlelog.Event, fainted battle.Ref) bool {
	for _, arg := range []string{ev.Arg(2), ev.Arg(0)} {
		pos, ok := battlelog.ParsePosition(arg)
		if !ok || pos.Player != fainted.Player {
			continue
		}
		canonical, ok := e.b.CanonicalOf(pos.Player, pos.Nickname)
		if ok && canonical == fainted.Canonical {
			return true
		}
	}
	return false
}

// followedByFail reports whether the next protocol line after events[i] is
// a -fail, which voids a Toxic as a poison source.
func (e *engine) followedByFail(i int) bool {
	for j := i + 1; j < len(e.events); j++ {
		if e.events[j].Tag == "" {
			continue
		}
		return e.events[j].Tag == battlelog.TagFail
	}
	return false
}

func (e *engine) result() *Result {
	res := &Result{
		Winner:     e.b.Winner(),
		Faints:     e.b.Faints(),
		Revivals:   e.b.Revivals(),
		Unresolved: e.unresolved,
		Notes:      e.notes,
	}

	snap := e.b.Snapshot()
	deaths := map[string]int{}
	for i, slot := range []string{"p1", "p2"} {
		summary := PlayerSummary{Slot: slot, Name: e.b.PlayerName(slot)}
		for canonical, st := range snap[slot] {
			summary.Pokemon = append(summary.Pokemon, PokemonStat{
				Name:     canonical,
				Nickname: st.Nickname,
				Kills:    st.Kills,
				Deaths:   st.Deaths,
			})
			deaths[slot] += st.Deaths
		}
		sort.Slice(summary.Pokemon, func(a, b int) bool {
			return summary.Pokemon[a].Name < summary.Pokemon[b].Name
		})
		res.Players[i] = summary
	}

	// Displayed score is the death differential after revival adjustments,
	// canonicalized to a nonnegative "(Δ-0)".
	diff := deaths["p1"] - deaths["p2"]
	if diff < 0 {
		diff = -diff
	}
	res.Score = fmt.Sprintf("(%d-0)", diff)
	return res
}
