package playback

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sort"
	"time"

	"github.com/igolaizola/lightshow/pkg/cache"
	"github.com/igolaizola/lightshow/pkg/show"
)

// ErrNotPreloaded is returned when the sequence to play isn't in the cache.
var ErrNotPreloaded = errors.New("playback: sequence not preloaded")

const (
	DefaultStrobeSpeed = 80 * time.Millisecond
	DefaultStrobeColor = "#FFFFFF"
	DefaultOffColor    = "#000000"
)

type Options struct {
	// StrobeSpeed is the half period of the strobe when the track doesn't
	// set its own.
	StrobeSpeed time.Duration
	// StrobeColor is the second strobe color when a block doesn't set one.
	StrobeColor string
	// OffColor is rendered in gaps and once the track is finished.
	OffColor string
}

type block struct {
	start  time.Duration
	end    time.Duration
	color  color.RGBA
	color2 color.RGBA
}

// Track is a song sequence ready to be rendered.
type Track struct {
	ProjectID string
	SectionID string
	SongID    string
	SongName  string
	Mode      show.Mode

	strobeSpeed time.Duration
	off         color.RGBA
	blocks      []block
	end         time.Duration
}

// Duration returns the end of the last block.
func (t *Track) Duration() time.Duration {
	return t.end
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// NewTrack validates a song sequence and resolves its colors.
func NewTrack(s *show.SongSequence, opts *Options) (*Track, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("playback: %w", err)
	}
	if opts == nil {
		opts = &Options{}
	}
	speed := opts.StrobeSpeed
	if s.StrobeSpeedMs > 0 {
		speed = time.Duration(s.StrobeSpeedMs) * time.Millisecond
	}
	if speed <= 0 {
		speed = DefaultStrobeSpeed
	}
	strobe, err := parseOr(opts.StrobeColor, DefaultStrobeColor)
	if err != nil {
		return nil, fmt.Errorf("playback: invalid strobe color: %w", err)
	}
	off, err := parseOr(opts.OffColor, DefaultOffColor)
	if err != nil {
		return nil, fmt.Errorf("playback: invalid off color: %w", err)
	}

	t := &Track{
		SongID:      s.SongID,
		SongName:    s.SongName,
		Mode:        s.Mode,
		strobeSpeed: speed,
		off:         off,
	}
	for _, b := range s.Sequence {
		c, err := show.ParseColor(b.Color)
		if err != nil {
			return nil, fmt.Errorf("playback: %w", err)
		}
		c2 := strobe
		if b.StrobeColor2 != "" {
			if c2, err = show.ParseColor(b.StrobeColor2); err != nil {
				return nil, fmt.Errorf("playback: %w", err)
			}
		}
		t.blocks = append(t.blocks, block{
			start:  seconds(b.Start),
			end:    seconds(b.End),
			color:  c,
			color2: c2,
		})
	}
	if n := len(t.blocks); n > 0 {
		t.end = t.blocks[n-1].end
	}
	return t, nil
}

func parseOr(s, def string) (color.RGBA, error) {
	if s == "" {
		s = def
	}
	return show.ParseColor(s)
}

// TrackFromEntry builds a track from a cached entry.
func TrackFromEntry(e *cache.Entry, opts *Options) (*Track, error) {
	t, err := NewTrack(&show.SongSequence{
		SongID:          e.SongID,
		SongName:        e.SongName,
		DurationSeconds: e.DurationSeconds,
		Mode:            e.Mode,
		Sequence:        e.Sequence,
		StrobeSpeedMs:   e.StrobeSpeedMs,
	}, opts)
	if err != nil {
		return nil, err
	}
	t.ProjectID = e.ProjectID
	t.SectionID = e.SectionID
	return t, nil
}

type Getter interface {
	Get(ctx context.Context, projectID, songID, sectionID string) *cache.Entry
}

// Load reads the track from the cache. A miss is a hard stop, the sequence
// must be preloaded first.
func Load(ctx context.Context, c Getter, projectID, songID, sectionID string, opts *Options) (*Track, error) {
	e := c.Get(ctx, projectID, songID, sectionID)
	if e == nil {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrNotPreloaded, projectID, songID, sectionID)
	}
	return TrackFromEntry(e, opts)
}

// Frame is what has to be rendered at a given instant.
type Frame struct {
	Color color.RGBA
	// Block is the index of the active block or -1 when there is none.
	Block    int
	Finished bool
}

// ComputeFrame returns the frame of the track after elapsed time. The strobe
// phase is taken from the wall clock so it doesn't depend on the frame rate.
func ComputeFrame(elapsed time.Duration, now time.Time, t *Track) Frame {
	if len(t.blocks) == 0 || elapsed >= t.end {
		return Frame{Color: t.off, Block: -1, Finished: true}
	}
	i := sort.Search(len(t.blocks), func(i int) bool {
		return t.blocks[i].start > elapsed
	}) - 1
	if i < 0 || elapsed >= t.blocks[i].end {
		return Frame{Color: t.off, Block: -1}
	}
	b := t.blocks[i]
	if t.Mode != show.Strobe {
		return Frame{Color: b.color, Block: i}
	}
	half := t.strobeSpeed.Milliseconds()
	if half <= 0 {
		half = DefaultStrobeSpeed.Milliseconds()
	}
	phase := now.UnixMilli() % (2 * half)
	if phase < 0 {
		phase += 2 * half
	}
	if phase < half {
		return Frame{Color: b.color, Block: i}
	}
	return Frame{Color: b.color2, Block: i}
}
