package storage

import (
	"context"
	"fmt"

	"github.com/igolaizola/lightshow/pkg/show"
)

// The methods below implement show.Datastore on top of the orm models.

func (s *Store) Project(ctx context.Context, id string) (*show.Project, error) {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return &show.Project{
		ID:        p.ID,
		Name:      p.Name,
		ConcertID: p.ConcertID,
	}, nil
}

func (s *Store) Sections(ctx context.Context, projectID string) ([]*show.Section, error) {
	sections, err := s.ListSections(ctx, projectID, Where("active = ?", true))
	if err != nil {
		return nil, err
	}
	var vs []*show.Section
	for _, v := range sections {
		vs = append(vs, &show.Section{
			ID:           v.ID,
			ProjectID:    v.ProjectID,
			Name:         v.Name,
			DisplayOrder: v.DisplayOrder,
			Active:       v.Active,
		})
	}
	return vs, nil
}

func (s *Store) Songs(ctx context.Context, projectID string) ([]*show.Song, error) {
	songs, err := s.ListSongs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var vs []*show.Song
	for _, v := range songs {
		vs = append(vs, &show.Song{
			ID:              v.ID,
			ProjectID:       v.ProjectID,
			Name:            v.Name,
			Artist:          v.Artist,
			Position:        v.Position,
			DurationSeconds: v.Duration,
		})
	}
	return vs, nil
}

func (s *Store) Sequence(ctx context.Context, songID, sectionID string) (*show.Sequence, error) {
	v, err := s.GetSequence(ctx, songID, sectionID)
	if err != nil {
		return nil, err
	}
	mode, err := show.ParseMode(v.Mode)
	if err != nil {
		return nil, fmt.Errorf("storage: sequence %s/%s: %w", songID, sectionID, err)
	}
	return &show.Sequence{
		SongID:        v.SongID,
		SectionID:     v.SectionID,
		Mode:          mode,
		StrobeSpeedMs: v.StrobeSpeedMs,
		Blocks:        v.Blocks,
	}, nil
}
