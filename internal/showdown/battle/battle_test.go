package battle

import (
	"testing"

	"github.com/draftleague/scorekeeper/internal/showdown/battlelog"
)

func ingest(b *Battle, log string) {
	for _, ev := range battlelog.Scan(log) {
		b.Ingest(ev)
	}
}

func TestIdentityTable(t *testing.T) {
	b := New()
	ingest(b, "|player|p1|Ash|\n|poke|p1|Urshifu-*, M|\n|switch|p1a: Fists|Urshifu-Rapid-Strike, M|100/100")

	// Team preview seeds the canonical with the form suffix trimmed; the
	// switch reveals the real form and the nickname.
	if _, ok := b.NicknameOf("p1", "Urshifu"); !ok {
		t.Error("team preview entry missing")
	}
	if canonical, ok := b.CanonicalOf("p1", "Fists"); !ok || canonical != "Urshifu-Rapid-Strike" {
		t.Errorf("CanonicalOf(Fists) = %q, %v", canonical, ok)
	}
	if b.PlayerName("p1") != "Ash" {
		t.Errorf("player name = %q", b.PlayerName("p1"))
	}
}

func TestFormChangeMigratesCounts(t *testing.T) {
	b := New()
	ingest(b, "|poke|p1|Rillaboom, M|\n|switch|p1a: Rocky|Rillaboom, M|100/100")
	b.Stat("p1", "Rillaboom").Kills = 2

	ingest(b, "|detailschange|p1a: Rocky|Rillaboom-Terastal, M")

	snap := b.Snapshot()["p1"]
	if _, ok := snap["Rillaboom"]; ok {
		t.Error("pre-form canonical still present after detailschange")
	}
	st, ok := snap["Rillaboom-Terastal"]
	if !ok {
		t.Fatal("post-form canonical missing")
	}
	if st.Kills != 2 || st.Nickname != "Rocky" {
		t.Errorf("migrated stat = %+v", st)
	}
}

func TestReplaceCreatesUnknownCanonical(t *testing.T) {
	b := New()
	ingest(b, "|poke|p1|Garchomp, M|\n|switch|p1a: Chompy|Garchomp, M|100/100\n|replace|p1a: Chompy|Zoroark, F")

	if canonical, ok := b.CanonicalOf("p1", "Chompy"); !ok || canonical != "Zoroark" {
		t.Errorf("replace lookup = %q, %v", canonical, ok)
	}
	// The team-preview sibling stays intact.
	if _, ok := b.NicknameOf("p1", "Garchomp"); !ok {
		t.Error("team-preview entry removed by replace")
	}
}

func TestReplaceDisambiguatesDisguise(t *testing.T) {
	// A disguised Zoroark switches in under another team member's species,
	// so the switch line hangs its nickname on that entry. The reveal must
	// hand the nickname back: one nickname, one canonical, per side.
	b := New()
	ingest(b, "|poke|p1|Umbreon, M|\n|poke|p1|Zoroark-Hisui, F|\n|switch|p1a: Shadow|Umbreon, M|100/100\n|replace|p1a: Shadow|Zoroark-Hisui, F")

	if canonical, ok := b.CanonicalOf("p1", "Shadow"); !ok || canonical != "Zoroark-Hisui" {
		t.Errorf(`CanonicalOf("Shadow") = %q, %v`, canonical, ok)
	}
	if nick, _ := b.NicknameOf("p1", "Umbreon"); nick == "Shadow" {
		t.Error(`Umbreon still holds nickname "Shadow" after the reveal`)
	}

	// A faint of the revealed nickname lands on the Zoroark.
	ingest(b, "|faint|p1a: Shadow")
	snap := b.Snapshot()["p1"]
	if snap["Zoroark-Hisui"].Deaths != 1 {
		t.Errorf("Zoroark-Hisui deaths = %d, want 1", snap["Zoroark-Hisui"].Deaths)
	}
	if snap["Umbreon"].Deaths != 0 {
		t.Errorf("Umbreon deaths = %d, want 0", snap["Umbreon"].Deaths)
	}
}

func TestFaintAndRevival(t *testing.T) {
	b := New()
	ingest(b, "|poke|p1|Sneasler, F|\n|switch|p1a: Sneasler|Sneasler, F|100/100\n|faint|p1a: Sneasler")
	if got := b.Snapshot()["p1"]["Sneasler"].Deaths; got != 1 {
		t.Fatalf("deaths after faint = %d", got)
	}

	ingest(b, "|-heal|p1: Sneasler|50/100|[from] move: Revival Blessing")
	if got := b.Snapshot()["p1"]["Sneasler"].Deaths; got != 0 {
		t.Errorf("deaths after revival = %d", got)
	}
	if b.Revivals() != 1 {
		t.Errorf("revivals = %d", b.Revivals())
	}

	// Clamped at zero: a second revival without a faint changes nothing.
	ingest(b, "|-heal|p1: Sneasler|100/100|[from] move: Revival Blessing")
	if got := b.Snapshot()["p1"]["Sneasler"].Deaths; got != 0 {
		t.Errorf("deaths went below zero: %d", got)
	}
	if b.Revivals() != 1 {
		t.Errorf("clamped revival still counted: %d", b.Revivals())
	}
}

func TestSharedNicknames(t *testing.T) {
	// Both players nickname a different species "Bob"; lookups stay scoped.
	b := New()
	ingest(b, "|poke|p1|Skarmory, M|\n|poke|p2|Corviknight, M|\n|switch|p1a: Bob|Skarmory, M|100/100\n|switch|p2a: Bob|Corviknight, M|100/100")

	if canonical, _ := b.CanonicalOf("p1", "Bob"); canonical != "Skarmory" {
		t.Errorf("p1 Bob = %q", canonical)
	}
	if canonical, _ := b.CanonicalOf("p2", "Bob"); canonical != "Corviknight" {
		t.Errorf("p2 Bob = %q", canonical)
	}
}

func TestWeatherOriginator(t *testing.T) {
	b := New()
	ingest(b, "|poke|p2|Tyranitar, M|\n|switch|p2a: Rex|Tyranitar, M|100/100\n|-weather|Sandstorm|[from] ability: Sand Stream|[of] p2a: Rex")

	w := b.CurrentWeather()
	if w.Name != "Sandstorm" {
		t.Fatalf("weather = %q", w.Name)
	}
	if w.Origin != (Ref{Player: "p2", Canonical: "Tyranitar"}) {
		t.Errorf("origin = %+v", w.Origin)
	}

	// Upkeep lines keep the originator.
	ingest(b, "|-weather|Sandstorm|[upkeep]")
	if b.CurrentWeather().Origin.Canonical != "Tyranitar" {
		t.Error("upkeep cleared the originator")
	}
}

func TestHazardSetterFirstLayer(t *testing.T) {
	b := New()
	ingest(b, "|poke|p1|Ting-Lu, M|\n|poke|p1|Skarmory, M|\n|switch|p1a: Ting-Lu|Ting-Lu, M|100/100\n|move|p1a: Ting-Lu|Spikes|p2a: X\n|-sidestart|p2: Gary|Spikes")

	setter, ok := b.HazardSetter("p2", "Spikes")
	if !ok || setter.Canonical != "Ting-Lu" {
		t.Fatalf("setter = %+v, %v", setter, ok)
	}

	// A second layer from somebody else keeps the first setter.
	ingest(b, "|switch|p1a: Skarm|Skarmory, M|100/100\n|move|p1a: Skarm|Spikes|p2a: X\n|-sidestart|p2: Gary|Spikes")
	setter, _ = b.HazardSetter("p2", "Spikes")
	if setter.Canonical != "Ting-Lu" {
		t.Errorf("second layer overwrote the first setter: %+v", setter)
	}

	// Defog-style removal clears the record.
	ingest(b, "|-sideend|p2: Gary|Spikes")
	if _, ok := b.HazardSetter("p2", "Spikes"); ok {
		t.Error("hazard survived -sideend")
	}
}

func TestLeechSeedBinding(t *testing.T) {
	b := New()
	ingest(b, "|poke|p1|Ferrothorn, M|\n|poke|p2|Rotom-Wash|\n|switch|p1a: Ferro|Ferrothorn, M|100/100\n|switch|p2a: Washer|Rotom-Wash|100/100\n|move|p1a: Ferro|Leech Seed|p2a: Washer")

	src, ok := b.SeedSource(Ref{Player: "p2", Canonical: "Rotom-Wash"})
	if !ok || src.Canonical != "Ferrothorn" {
		t.Errorf("seed source = %+v, %v", src, ok)
	}
}
