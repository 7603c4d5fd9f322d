package compiler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/igolaizola/lightshow/pkg/show"
)

const initialVersion = "1.0.0"

// VersionReader returns the last published version of a section bundle, or
// an empty string if it was never published.
type VersionReader interface {
	LastVersion(ctx context.Context, projectID, sectionID string) (string, error)
}

type Compiler struct {
	source   show.Datastore
	versions VersionReader
	debug    bool
	now      func() time.Time
}

func New(source show.Datastore, versions VersionReader, debug bool) *Compiler {
	return &Compiler{
		source:   source,
		versions: versions,
		debug:    debug,
		now:      time.Now,
	}
}

// Compile joins every project song against the stored sequence of each
// active section and returns one bundle per section with at least one song.
func (c *Compiler) Compile(ctx context.Context, projectID string) ([]*show.Bundle, error) {
	project, err := c.source.Project(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("compiler: couldn't get project %s: %w", projectID, err)
	}
	sections, err := c.source.Sections(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("compiler: couldn't get sections of %s: %w", projectID, err)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("compiler: project %s has no active sections: %w", projectID, show.ErrNotFound)
	}
	songs, err := c.source.Songs(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("compiler: couldn't get songs of %s: %w", projectID, err)
	}
	if len(songs) == 0 {
		return nil, fmt.Errorf("compiler: project %s has no songs: %w", projectID, show.ErrNotFound)
	}

	generatedAt := c.now().UTC().Format(time.RFC3339)
	var bundles []*show.Bundle
	for _, section := range sections {
		var seqs []*show.SongSequence
		for _, song := range songs {
			seq, err := c.source.Sequence(ctx, song.ID, section.ID)
			if errors.Is(err, show.ErrNotFound) {
				log.Printf("compiler: no sequence for song %s in section %s, skipping\n", song.ID, section.ID)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("compiler: couldn't get sequence %s/%s: %w", song.ID, section.ID, err)
			}
			s := &show.SongSequence{
				SongID:          song.ID,
				SongName:        song.Name,
				ArtistName:      song.Artist,
				DurationSeconds: song.DurationSeconds,
				Mode:            seq.Mode,
				Sequence:        seq.Blocks,
				StrobeSpeedMs:   seq.StrobeSpeedMs,
			}
			if s.Sequence == nil {
				s.Sequence = []show.ColorBlock{}
			}
			if err := s.Validate(); err != nil {
				return nil, fmt.Errorf("compiler: section %s: %w", section.ID, err)
			}
			seqs = append(seqs, s)
		}
		if len(seqs) == 0 {
			log.Printf("compiler: section %s has no sequences, excluded\n", section.ID)
			continue
		}

		last, err := c.versions.LastVersion(ctx, projectID, section.ID)
		if err != nil {
			return nil, fmt.Errorf("compiler: couldn't get version of %s/%s: %w", projectID, section.ID, err)
		}
		version, err := NextVersion(last)
		if err != nil {
			return nil, fmt.Errorf("compiler: section %s: %w", section.ID, err)
		}
		if c.debug {
			log.Printf("compiler: section %s: %d songs, version %s\n", section.ID, len(seqs), version)
		}
		bundles = append(bundles, &show.Bundle{
			ProjectID:   project.ID,
			ProjectName: project.Name,
			SectionID:   section.ID,
			SectionName: section.Name,
			ConcertID:   project.ConcertID,
			GeneratedAt: generatedAt,
			Version:     version,
			Songs:       seqs,
		})
	}
	return bundles, nil
}

// NextVersion bumps the patch number of a major.minor.patch version.
func NextVersion(last string) (string, error) {
	if last == "" {
		return initialVersion, nil
	}
	parts := strings.Split(strings.TrimPrefix(last, "v"), ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("compiler: invalid version %q", last)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", fmt.Errorf("compiler: invalid version %q", last)
		}
		nums[i] = n
	}
	return fmt.Sprintf("%d.%d.%d", nums[0], nums[1], nums[2]+1), nil
}
