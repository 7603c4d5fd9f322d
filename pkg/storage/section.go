package storage

import (
	"context"
	"fmt"
	"time"
)

// Section is a subdivision of the venue with its own light sequence.
type Section struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ProjectID    string `gorm:"index;not null;default:''"`
	Name         string `gorm:"not null;default:''"`
	DisplayOrder int    `gorm:"not null;default:0"`
	Active       bool   `gorm:"index;not null;default:false"`
}

func (s *Store) SetSection(ctx context.Context, v *Section) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set section %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) ListSections(ctx context.Context, projectID string, filter ...Filter) ([]*Section, error) {
	vs := []*Section{}
	q := s.db.WithContext(ctx).Where("project_id = ?", projectID)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if err := q.Order("display_order, id").Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list sections of %s: %w", projectID, err)
	}
	return vs, nil
}
