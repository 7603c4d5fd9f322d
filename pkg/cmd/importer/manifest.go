package importer

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/igolaizola/lightshow/pkg/show"
	"gopkg.in/yaml.v3"
)

// Manifest describes a project with its sections, songs and sequences.
// Sequences reference songs and sections by id or by name.
type Manifest struct {
	Project   ManifestProject    `json:"project" yaml:"project"`
	Sections  []*ManifestSection `json:"sections" yaml:"sections"`
	Songs     []*ManifestSong    `json:"songs" yaml:"songs"`
	Sequences []*ManifestSeq     `json:"sequences" yaml:"sequences"`
}

type ManifestProject struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	ConcertID string `json:"concertId" yaml:"concertId"`
}

type ManifestSection struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	DisplayOrder int    `json:"displayOrder" yaml:"displayOrder"`
	Inactive     bool   `json:"inactive" yaml:"inactive"`
}

type ManifestSong struct {
	ID              string  `json:"id" yaml:"id"`
	Name            string  `json:"name" yaml:"name"`
	Artist          string  `json:"artist" yaml:"artist"`
	Position        int     `json:"position" yaml:"position"`
	DurationSeconds float64 `json:"durationSeconds" yaml:"durationSeconds"`
}

type ManifestSeq struct {
	Song          string            `json:"song" yaml:"song"`
	Section       string            `json:"section" yaml:"section"`
	Mode          string            `json:"mode" yaml:"mode"`
	StrobeSpeedMs int               `json:"strobeSpeedMs" yaml:"strobeSpeedMs"`
	Blocks        []show.ColorBlock `json:"blocks" yaml:"blocks"`
}

// row is a flat csv line, one color block per line.
type row struct {
	ProjectID     string  `csv:"project_id"`
	ProjectName   string  `csv:"project_name"`
	ConcertID     string  `csv:"concert_id"`
	Section       string  `csv:"section"`
	SectionOrder  int     `csv:"section_order"`
	Song          string  `csv:"song"`
	Artist        string  `csv:"artist"`
	Position      int     `csv:"position"`
	Duration      float64 `csv:"duration_seconds"`
	Mode          string  `csv:"mode"`
	StrobeSpeedMs int     `csv:"strobe_speed_ms"`
	Start         float64 `csv:"start"`
	End           float64 `csv:"end"`
	Color         string  `csv:"color"`
	StrobeColor2  string  `csv:"strobe_color2"`
	StrobeColor3  string  `csv:"strobe_color3"`
}

// Parse decodes a manifest, the format is chosen by the file extension.
func Parse(name string, b []byte) (*Manifest, error) {
	var m Manifest
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".json":
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("importer: couldn't unmarshal json: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("importer: couldn't unmarshal yaml: %w", err)
		}
	case ".csv":
		var rows []*row
		if err := gocsv.UnmarshalBytes(b, &rows); err != nil {
			return nil, fmt.Errorf("importer: couldn't unmarshal csv: %w", err)
		}
		return fromRows(rows)
	default:
		return nil, fmt.Errorf("importer: unsupported format: %s", ext)
	}
	return &m, nil
}

func fromRows(rows []*row) (*Manifest, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("importer: csv has no rows")
	}
	m := &Manifest{}
	sections := map[string]bool{}
	songs := map[string]bool{}
	seqs := map[string]*ManifestSeq{}
	for i, r := range rows {
		if m.Project.Name == "" {
			m.Project = ManifestProject{ID: r.ProjectID, Name: r.ProjectName, ConcertID: r.ConcertID}
		}
		if r.Section == "" || r.Song == "" {
			return nil, fmt.Errorf("importer: row %d: section and song are required", i+1)
		}
		if !sections[r.Section] {
			sections[r.Section] = true
			m.Sections = append(m.Sections, &ManifestSection{Name: r.Section, DisplayOrder: r.SectionOrder})
		}
		if !songs[r.Song] {
			songs[r.Song] = true
			m.Songs = append(m.Songs, &ManifestSong{
				Name:            r.Song,
				Artist:          r.Artist,
				Position:        r.Position,
				DurationSeconds: r.Duration,
			})
		}
		k := r.Song + "\x00" + r.Section
		seq, ok := seqs[k]
		if !ok {
			seq = &ManifestSeq{Song: r.Song, Section: r.Section, Mode: r.Mode, StrobeSpeedMs: r.StrobeSpeedMs}
			seqs[k] = seq
			m.Sequences = append(m.Sequences, seq)
		}
		seq.Blocks = append(seq.Blocks, show.ColorBlock{
			Start:        r.Start,
			End:          r.End,
			Color:        r.Color,
			StrobeColor2: r.StrobeColor2,
			StrobeColor3: r.StrobeColor3,
		})
	}
	return m, nil
}
