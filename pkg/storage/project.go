package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Project struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name      string `gorm:"not null;default:''"`
	ConcertID string `gorm:"index;not null;default:''"`
}

func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	var v Project
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get project %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetProject(ctx context.Context, v *Project) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set project %s: %w", v.ID, err)
	}
	return nil
}

// DeleteProject removes the project together with its sections, songs and
// sequences.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&Song{}).Select("id").Where("project_id = ?", id)
		if err := tx.Where("song_id IN (?)", sub).Delete(&Sequence{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&Song{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&Section{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Project{ID: id}, "id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("storage: failed to delete project %s: %w", id, err)
	}
	return nil
}
