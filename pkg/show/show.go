package show

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
)

// Mode determines how the color fields of a block are rendered.
type Mode string

const (
	Fixed  Mode = "fixed"
	Strobe Mode = "strobe"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Fixed, Strobe:
		return m, nil
	case "":
		return Fixed, nil
	default:
		return "", fmt.Errorf("show: unknown mode %q: %w", s, ErrInvalid)
	}
}

// ColorBlock is a colored interval of a song, in seconds.
type ColorBlock struct {
	Start        float64 `json:"start" yaml:"start"`
	End          float64 `json:"end" yaml:"end"`
	Color        string  `json:"color" yaml:"color"`
	StrobeColor2 string  `json:"strobeColor2,omitempty" yaml:"strobeColor2,omitempty"`
	StrobeColor3 string  `json:"strobeColor3,omitempty" yaml:"strobeColor3,omitempty"`
}

type SongSequence struct {
	SongID          string       `json:"songId"`
	SongName        string       `json:"songName"`
	ArtistName      string       `json:"artistName,omitempty"`
	DurationSeconds float64      `json:"durationSeconds"`
	Mode            Mode         `json:"mode"`
	Sequence        []ColorBlock `json:"sequence"`
	StrobeSpeedMs   int          `json:"strobeSpeedMs,omitempty"`
}

// Bundle holds every song sequence of a venue section.
type Bundle struct {
	ProjectID   string          `json:"projectId"`
	ProjectName string          `json:"projectName"`
	SectionID   string          `json:"sectionId"`
	SectionName string          `json:"sectionName"`
	ConcertID   string          `json:"concertId"`
	GeneratedAt string          `json:"generatedAt"`
	Version     string          `json:"version"`
	Songs       []*SongSequence `json:"songs"`
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ConcertID string `json:"concertId"`
}

type Section struct {
	ID           string `json:"id"`
	ProjectID    string `json:"projectId"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"displayOrder"`
	Active       bool   `json:"active"`
}

type Song struct {
	ID              string  `json:"id"`
	ProjectID       string  `json:"projectId"`
	Name            string  `json:"name"`
	Artist          string  `json:"artist,omitempty"`
	Position        int     `json:"position"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Sequence is the stored color sequence of a song for a section.
type Sequence struct {
	SongID        string       `json:"songId"`
	SectionID     string       `json:"sectionId"`
	Mode          Mode         `json:"mode"`
	StrobeSpeedMs int          `json:"strobeSpeedMs,omitempty"`
	Blocks        []ColorBlock `json:"sequence"`
}

// Datastore is the read contract of the primary datastore.
type Datastore interface {
	// Project returns ErrNotFound if the project doesn't exist.
	Project(ctx context.Context, id string) (*Project, error)
	// Sections returns the active sections ordered by display order.
	Sections(ctx context.Context, projectID string) ([]*Section, error)
	// Songs returns the project songs ordered by position.
	Songs(ctx context.Context, projectID string) ([]*Song, error)
	// Sequence returns ErrNotFound if no sequence is stored for the pair.
	Sequence(ctx context.Context, songID, sectionID string) (*Sequence, error)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ValidateBlocks checks that blocks are well formed, sorted by start and
// don't overlap. Touching blocks are allowed.
func ValidateBlocks(blocks []ColorBlock) error {
	for i, b := range blocks {
		if !finite(b.Start) || !finite(b.End) {
			return fmt.Errorf("show: block %d bounds %v-%v not finite: %w", i, b.Start, b.End, ErrInvalid)
		}
		if b.Start < 0 {
			return fmt.Errorf("show: block %d starts before zero: %w", i, ErrInvalid)
		}
		if b.Start >= b.End {
			return fmt.Errorf("show: block %d start %v >= end %v: %w", i, b.Start, b.End, ErrInvalid)
		}
		if i > 0 && b.Start < blocks[i-1].End {
			return fmt.Errorf("show: block %d overlaps or precedes block %d: %w", i, i-1, ErrInvalid)
		}
		if _, err := ParseColor(b.Color); err != nil {
			return fmt.Errorf("show: block %d: %w", i, err)
		}
		for _, c := range []string{b.StrobeColor2, b.StrobeColor3} {
			if c == "" {
				continue
			}
			if _, err := ParseColor(c); err != nil {
				return fmt.Errorf("show: block %d: %w", i, err)
			}
		}
	}
	return nil
}

func (s *SongSequence) Validate() error {
	if s.SongID == "" {
		return fmt.Errorf("show: song id is empty: %w", ErrInvalid)
	}
	if s.Mode != Fixed && s.Mode != Strobe {
		return fmt.Errorf("show: song %s has unknown mode %q: %w", s.SongID, s.Mode, ErrInvalid)
	}
	if s.StrobeSpeedMs < 0 {
		return fmt.Errorf("show: song %s has negative strobe speed: %w", s.SongID, ErrInvalid)
	}
	if err := ValidateBlocks(s.Sequence); err != nil {
		return fmt.Errorf("show: song %s: %w", s.SongID, err)
	}
	return nil
}

// ValidateBundle rejects bundles without songs or without identifiers.
func ValidateBundle(b *Bundle) error {
	if b == nil {
		return fmt.Errorf("show: nil bundle: %w", ErrInvalid)
	}
	if b.ProjectID == "" || b.SectionID == "" {
		return fmt.Errorf("show: bundle without project or section id: %w", ErrInvalid)
	}
	if len(b.Songs) == 0 {
		return fmt.Errorf("show: bundle %s/%s has no songs: %w", b.ProjectID, b.SectionID, ErrInvalid)
	}
	for _, s := range b.Songs {
		if s == nil {
			return fmt.Errorf("show: bundle %s/%s has a nil song: %w", b.ProjectID, b.SectionID, ErrInvalid)
		}
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ParseColor parses a #RRGGBB hex color.
func ParseColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 || !strings.HasPrefix(strings.TrimSpace(s), "#") {
		return color.RGBA{}, fmt.Errorf("show: invalid color %q: %w", s, ErrInvalid)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("show: invalid color %q: %w", s, ErrInvalid)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
