package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/igolaizola/lightshow/pkg/show"
	"gorm.io/gorm"
)

// Sequence is the raw color sequence of a song for a section.
type Sequence struct {
	SongID    string `gorm:"primaryKey"`
	SectionID string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Mode          string            `gorm:"not null;default:'fixed'"`
	StrobeSpeedMs int               `gorm:"not null;default:0"`
	Blocks        []show.ColorBlock `gorm:"serializer:json"`
}

func (s *Store) GetSequence(ctx context.Context, songID, sectionID string) (*Sequence, error) {
	var v Sequence
	if err := s.db.WithContext(ctx).First(&v, "song_id = ? AND section_id = ?", songID, sectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get sequence %s/%s: %w", songID, sectionID, err)
	}
	return &v, nil
}

func (s *Store) SetSequence(ctx context.Context, v *Sequence) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set sequence %s/%s: %w", v.SongID, v.SectionID, err)
	}
	return nil
}
