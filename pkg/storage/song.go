package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Song struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ProjectID string  `gorm:"index;not null;default:''"`
	Name      string  `gorm:"not null;default:''"`
	Artist    string  `gorm:"not null;default:''"`
	Position  int     `gorm:"not null;default:0"`
	Duration  float64 `gorm:"not null;default:0"`
}

func (s *Store) GetSong(ctx context.Context, id string) (*Song, error) {
	var v Song
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get song %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetSong(ctx context.Context, v *Song) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set song %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) ListSongs(ctx context.Context, projectID string, filter ...Filter) ([]*Song, error) {
	vs := []*Song{}
	q := s.db.WithContext(ctx).Where("project_id = ?", projectID)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if err := q.Order("position, id").Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list songs of %s: %w", projectID, err)
	}
	return vs, nil
}
