// Package battle holds the in-memory state of one battle: the player roster,
// the per-player identity table (canonical species name to current nickname),
// and the field state the kill-attribution rules need (weather originator,
// hazard setters, Leech Seed bindings).
package battle

import (
	"strings"

	"github.com/draftleague/scorekeeper/internal/showdown/battlelog"
)

// Stat is the running tally for one Pokémon, keyed by its canonical name.
type Stat struct {
	Nickname string
	Kills    int
	Deaths   int
}

// Ref identifies one Pokémon by player slot and canonical species name.
type Ref struct {
	Player    string
	Canonical string
}

// Weather records the active weather and who started it.
type Weather struct {
	Name   string
	Origin Ref
}

// hazard tracks one entry-hazard kind on one side. The setter recorded is
// the Pokémon that put up the first layer currently active; further layers
// don't overwrite it.
type hazard struct {
	layers int
	setter Ref
}

type side struct {
	name    string
	stats   map[string]*Stat // canonical -> stat
	hazards map[string]*hazard
}

// Battle is the full mutable state for a single replay. It is a plain value
// threaded through the attribution engine; nothing here is global.
type Battle struct {
	sides map[string]*side // "p1", "p2"

	weather  Weather
	seeds    map[Ref]Ref // Leech Seed target -> source
	lastMove struct {
		actor Ref
		move  string
	}

	winner   string
	faints   int
	revivals int
}

// New returns an empty battle ready to ingest events.
func New() *Battle {
	return &Battle{
		sides: map[string]*side{
			"p1": {stats: make(map[string]*Stat), hazards: make(map[string]*hazard)},
			"p2": {stats: make(map[string]*Stat), hazards: make(map[string]*hazard)},
		},
		seeds: make(map[Ref]Ref),
	}
}

// PlayerName returns the display name registered for a slot.
func (b *Battle) PlayerName(player string) string {
	if s, ok := b.sides[player]; ok {
		return s.name
	}
	return ""
}

// Winner returns the display name from the |win| line, if seen.
func (b *Battle) Winner() string { return b.winner }

// Faints returns the number of faint events ingested.
func (b *Battle) Faints() int { return b.faints }

// Revivals returns the number of Revival Blessing heals applied.
func (b *Battle) Revivals() int { return b.revivals }

// CurrentWeather returns the active weather and its originator.
func (b *Battle) CurrentWeather() Weather { return b.weather }

// HazardSetter returns who set the named hazard on the given side, if any.
func (b *Battle) HazardSetter(player, name string) (Ref, bool) {
	s, ok := b.sides[player]
	if !ok {
		return Ref{}, false
	}
	h, ok := s.hazards[name]
	if !ok || h.layers == 0 {
		return Ref{}, false
	}
	return h.setter, true
}

// SeedSource returns the Leech Seed source bound to the target, if any.
func (b *Battle) SeedSource(target Ref) (Ref, bool) {
	src, ok := b.seeds[target]
	return src, ok
}

// CanonicalOf resolves a nickname to the canonical species name within one
// player's team. Nicknames are only guaranteed unique per player, so the
// lookup never crosses sides.
func (b *Battle) CanonicalOf(player, nickname string) (string, bool) {
	s, ok := b.sides[player]
	if !ok {
		return "", false
	}
	for canonical, st := range s.stats {
		if st.Nickname == nickname {
			return canonical, true
		}
	}
	return "", false
}

// NicknameOf is the forward lookup of the identity table.
func (b *Battle) NicknameOf(player, canonical string) (string, bool) {
	s, ok := b.sides[player]
	if !ok {
		return "", false
	}
	st, ok := s.stats[canonical]
	if !ok {
		return "", false
	}
	return st.Nickname, true
}

// Stat returns the tally for one Pokémon, creating it if unseen. Unknown
// canonicals appear mid-battle when Zoroark reveals through |replace|.
func (b *Battle) Stat(player, canonical string) *Stat {
	s, ok := b.sides[player]
	if !ok {
		return nil
	}
	st, ok := s.stats[canonical]
	if !ok {
		st = &Stat{Nickname: canonical}
		s.stats[canonical] = st
	}
	return st
}

// Snapshot returns a copy of every tally keyed player -> canonical.
func (b *Battle) Snapshot() map[string]map[string]Stat {
	out := make(map[string]map[string]Stat, len(b.sides))
	for player, s := range b.sides {
		m := make(map[string]Stat, len(s.stats))
		for canonical, st := range s.stats {
			m[canonical] = *st
		}
		out[player] = m
	}
	return out
}

// Ingest mutates the battle state for one event. Events must arrive in log
// order; hazard and weather attribution depend on the immediately preceding
// move line.
func (b *Battle) Ingest(ev battlelog.Event) {
	switch ev.Tag {
	case battlelog.TagPlayer:
		if s, ok := b.sides[ev.Arg(0)]; ok && ev.Arg(1) != "" {
			s.name = ev.Arg(1)
		}

	case battlelog.TagPoke:
		player := ev.Arg(0)
		species := battlelog.Species(ev.Arg(1))
		if s, ok := b.sides[player]; ok && species != "" {
			if _, seen := s.stats[species]; !seen {
				s.stats[species] = &Stat{Nickname: species}
			}
		}

	case battlelog.TagSwitch, battlelog.TagDrag, battlelog.TagReplace:
		pos, ok := battlelog.ParsePosition(ev.Arg(0))
		if !ok {
			return
		}
		species := battlelog.Species(ev.Arg(1))
		if ev.Tag == battlelog.TagReplace {
			// Illusion reveal: the switch line credited the disguise species
			// with this nickname. Hand it back so the nickname maps to
			// exactly one canonical on this side.
			if s, ok := b.sides[pos.Player]; ok {
				for canonical, st := range s.stats {
					if canonical != species && st.Nickname == pos.Nickname {
						st.Nickname = canonical
					}
				}
			}
		}
		if st := b.Stat(pos.Player, species); st != nil {
			st.Nickname = pos.Nickname
		}

	case battlelog.TagDetailsChange:
		b.changeForm(ev)

	case battlelog.TagFaint:
		pos, ok := battlelog.ParsePosition(ev.Arg(0))
		if !ok {
			return
		}
		b.faints++
		if canonical, ok := b.CanonicalOf(pos.Player, pos.Nickname); ok {
			b.sides[pos.Player].stats[canonical].Deaths++
		}

	case battlelog.TagHeal:
		if strings.Contains(ev.Raw, "[from] move: Revival Blessing") {
			b.revive(ev)
		}

	case battlelog.TagWeather:
		b.setWeather(ev)

	case battlelog.TagSideStart:
		b.addHazard(ev)

	case battlelog.TagSideEnd:
		player := battlelog.ParseSide(ev.Arg(0))
		if s, ok := b.sides[player]; ok {
			delete(s.hazards, ev.Arg(1))
		}

	case battlelog.TagMove:
		b.trackMove(ev)

	case battlelog.TagWin:
		b.winner = ev.Arg(0)
	}
}

// changeForm replaces the pre-form canonical entry with the new form while
// keeping nickname and accumulated counts.
func (b *Battle) changeForm(ev battlelog.Event) {
	pos, ok := battlelog.ParsePosition(ev.Arg(0))
	if !ok {
		return
	}
	newCanonical := battlelog.Species(ev.Arg(1))
	oldCanonical, ok := b.CanonicalOf(pos.Player, pos.Nickname)
	if !ok || oldCanonical == newCanonical {
		return
	}
	s := b.sides[pos.Player]
	st := s.stats[oldCanonical]
	delete(s.stats, oldCanonical)
	s.stats[newCanonical] = st

	// Field references keep pointing at the old canonical otherwise.
	old := Ref{Player: pos.Player, Canonical: oldCanonical}
	migrated := Ref{Player: pos.Player, Canonical: newCanonical}
	if b.weather.Origin == old {
		b.weather.Origin = migrated
	}
	for target, src := range b.seeds {
		if src == old {
			b.seeds[target] = migrated
		}
	}
	for _, sd := range b.sides {
		for _, h := range sd.hazards {
			if h.setter == old {
				h.setter = migrated
			}
		}
	}
}

// revive applies a Revival Blessing heal: deaths go down by one, never
// below zero.
func (b *Battle) revive(ev battlelog.Event) {
	pos, ok := battlelog.ParsePosition(ev.Arg(0))
	if !ok {
		return
	}
	canonical, ok := b.CanonicalOf(pos.Player, pos.Nickname)
	if !ok {
		return
	}
	st := b.sides[pos.Player].stats[canonical]
	if st.Deaths > 0 {
		st.Deaths--
		b.revivals++
	}
}

func (b *Battle) setWeather(ev battlelog.Event) {
	name := ev.Arg(0)
	if name == "" || name == "none" {
		b.weather = Weather{}
		return
	}
	if name == b.weather.Name && strings.Contains(ev.Raw, "[upkeep]") {
		return
	}
	w := Weather{Name: name}
	// "|-weather|Sandstorm|[from] ability: Sand Stream|[of] p2a: Tyranitar"
	if _, of, found := strings.Cut(ev.Raw, "[of] "); found {
		if pos, ok := battlelog.ParsePosition(of); ok {
			if canonical, ok := b.CanonicalOf(pos.Player, pos.Nickname); ok {
				w.Origin = Ref{Player: pos.Player, Canonical: canonical}
			}
		}
	} else if b.lastMove.move != "" {
		w.Origin = b.lastMove.actor
	}
	b.weather = w
}

func (b *Battle) addHazard(ev battlelog.Event) {
	player := battlelog.ParseSide(ev.Arg(0))
	s, ok := b.sides[player]
	if !ok {
		return
	}
	name := ev.Arg(1)
	name = strings.TrimPrefix(name, "move: ")
	h, ok := s.hazards[name]
	if !ok {
		h = &hazard{}
		s.hazards[name] = h
	}
	h.layers++
	if h.layers == 1 {
		h.setter = b.lastMove.actor
	}
}

func (b *Battle) trackMove(ev battlelog.Event) {
	pos, ok := battlelog.ParsePosition(ev.Arg(0))
	if !ok {
		return
	}
	canonical, ok := b.CanonicalOf(pos.Player, pos.Nickname)
	if !ok {
		canonical = pos.Nickname
	}
	actor := Ref{Player: pos.Player, Canonical: canonical}
	move := ev.Arg(1)
	b.lastMove.actor = actor
	b.lastMove.move = move

	if move == "Leech Seed" {
		if target, ok := battlelog.ParsePosition(ev.Arg(2)); ok {
			if tc, ok := b.CanonicalOf(target.Player, target.Nickname); ok {
				b.seeds[Ref{Player: target.Player, Canonical: tc}] = actor
			}
		}
	}
}
