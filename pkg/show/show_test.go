package show

import (
	"errors"
	"image/color"
	"math"
	"testing"
)

func TestValidateBlocks(t *testing.T) {
	tests := []struct {
		name   string
		blocks []ColorBlock
		valid  bool
	}{
		{"empty", nil, true},
		{"sorted", []ColorBlock{{0, 5, "#FF0000", "", ""}, {5, 10, "#00ff00", "", ""}}, true},
		{"gap", []ColorBlock{{0, 2, "#FF0000", "", ""}, {4, 6, "#00FF00", "", ""}}, true},
		{"strobe colors", []ColorBlock{{0, 2, "#FF0000", "#FFFFFF", "#0000FF"}}, true},
		{"overlap", []ColorBlock{{0, 5, "#FF0000", "", ""}, {4, 6, "#00FF00", "", ""}}, false},
		{"unsorted", []ColorBlock{{5, 6, "#FF0000", "", ""}, {0, 1, "#00FF00", "", ""}}, false},
		{"empty interval", []ColorBlock{{3, 3, "#FF0000", "", ""}}, false},
		{"negative start", []ColorBlock{{-1, 3, "#FF0000", "", ""}}, false},
		{"nan start", []ColorBlock{{math.NaN(), 1, "#FF0000", "", ""}}, false},
		{"nan end", []ColorBlock{{0, math.NaN(), "#FF0000", "", ""}}, false},
		{"infinite end", []ColorBlock{{0, math.Inf(1), "#FF0000", "", ""}}, false},
		{"infinite start", []ColorBlock{{math.Inf(-1), 1, "#FF0000", "", ""}}, false},
		{"missing color", []ColorBlock{{0, 3, "", "", ""}}, false},
		{"bad strobe color", []ColorBlock{{0, 3, "#FF0000", "white", ""}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBlocks(tt.blocks)
			if tt.valid && err != nil {
				t.Fatalf("ValidateBlocks() err = %v; want nil", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalid) {
				t.Fatalf("ValidateBlocks() err = %v; want ErrInvalid", err)
			}
		})
	}
}

func TestValidateBundle(t *testing.T) {
	song := &SongSequence{
		SongID:   "s1",
		Mode:     Fixed,
		Sequence: []ColorBlock{{Start: 0, End: 1, Color: "#FFFFFF"}},
	}
	tests := []struct {
		name   string
		bundle *Bundle
		valid  bool
	}{
		{"nil", nil, false},
		{"no songs", &Bundle{ProjectID: "p", SectionID: "s"}, false},
		{"no ids", &Bundle{Songs: []*SongSequence{song}}, false},
		{"bad mode", &Bundle{ProjectID: "p", SectionID: "s", Songs: []*SongSequence{{SongID: "x", Mode: "blink"}}}, false},
		{"ok", &Bundle{ProjectID: "p", SectionID: "s", Songs: []*SongSequence{song}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBundle(tt.bundle)
			if (err == nil) != tt.valid {
				t.Fatalf("ValidateBundle() err = %v; want valid %v", err, tt.valid)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	got, err := ParseColor("#1a2B3c")
	if err != nil {
		t.Fatalf("ParseColor() err = %v; want nil", err)
	}
	want := color.RGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 255}
	if got != want {
		t.Fatalf("ParseColor() = %v; want %v", got, want)
	}
	for _, s := range []string{"", "#FFF", "FF0000", "#GG0000"} {
		if _, err := ParseColor(s); err == nil {
			t.Errorf("ParseColor(%q) err = nil; want error", s)
		}
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": Fixed, "fixed": Fixed, "STROBE": Strobe} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("pulse"); !errors.Is(err, ErrInvalid) {
		t.Errorf("ParseMode(pulse) err = %v; want ErrInvalid", err)
	}
}
