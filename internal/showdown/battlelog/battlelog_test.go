package battlelog

import (
	"strings"
	"testing"
)

func TestScan(t *testing.T) {
	log := "|player|p1|Ash|169|\n|poke|p1|Urshifu-*, M|\n|switch|p1a: Zard|Charizard, M|100/100\nnot a protocol line\n|faint|p2a: Ferro"

	events := Scan(log)
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}

	if events[0].Tag != TagPlayer || events[0].Arg(0) != "p1" || events[0].Arg(1) != "Ash" {
		t.Errorf("player event parsed wrong: %+v", events[0])
	}
	if events[3].Tag != "" {
		t.Errorf("non-protocol line should have empty tag, got %q", events[3].Tag)
	}
	if events[4].Tag != TagFaint {
		t.Errorf("expected faint tag, got %q", events[4].Tag)
	}

	// Offsets must index into the original log at the line start.
	for _, ev := range events {
		if !strings.HasPrefix(log[ev.Offset:], ev.Raw) {
			t.Errorf("offset %d does not point at line %q", ev.Offset, ev.Raw)
		}
	}
}

func TestScanPreservesOrder(t *testing.T) {
	log := "|move|p1a: A|Tackle|p2a: B\n|-damage|p2a: B|0 fnt\n|faint|p2a: B"
	events := Scan(log)
	tags := []string{TagMove, TagDamage, TagFaint}
	for i, want := range tags {
		if events[i].Tag != want {
			t.Errorf("event %d: got tag %q, want %q", i, events[i].Tag, want)
		}
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in       string
		wantOK   bool
		player   string
		nickname string
	}{
		{"p1a: Zard", true, "p1", "Zard"},
		{"p2b: Mr. Mime", true, "p2", "Mr. Mime"},
		{"p1: Sneasler", true, "p1", "Sneasler"},
		{"Stealth Rock", false, "", ""},
		{"", false, "", ""},
	}
	for _, tt := range tests {
		pos, ok := ParsePosition(tt.in)
		if ok != tt.wantOK {
			t.Errorf("ParsePosition(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if ok && (pos.Player != tt.player || pos.Nickname != tt.nickname) {
			t.Errorf("ParsePosition(%q) = %+v", tt.in, pos)
		}
	}
}

func TestSpecies(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rillaboom, M", "Rillaboom"},
		{"Urshifu-*", "Urshifu"},
		{"Charizard, L50, F", "Charizard"},
		{"Ting-Lu", "Ting-Lu"},
	}
	for _, tt := range tests {
		if got := Species(tt.in); got != tt.want {
			t.Errorf("Species(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSide(t *testing.T) {
	if got := ParseSide("p2: Gary"); got != "p2" {
		t.Errorf("ParseSide = %q, want p2", got)
	}
	if got := ParseSide("garbage"); got != "" {
		t.Errorf("ParseSide on garbage = %q, want empty", got)
	}
}
