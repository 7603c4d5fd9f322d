package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type record struct {
	ID        string `gorm:"primarykey"`
	ProjectID string `gorm:"index;not null;default:''"`
	Timestamp int64  `gorm:"index;not null;default:0"`
	Entry     *Entry `gorm:"serializer:json"`
}

func (record) TableName() string {
	return "cache_entries"
}

type sqliteEngine struct {
	db *gorm.DB
}

// NewSQLite opens the durable structured engine.
func NewSQLite(ctx context.Context, path string, debug bool) (Engine, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("cache: couldn't create folder for %s: %w", path, err)
	}
	l := logger.Default.LogMode(logger.Silent)
	if debug {
		l = logger.Default.LogMode(logger.Warn)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: l})
	if err != nil {
		return nil, fmt.Errorf("cache: couldn't open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("cache: couldn't get sql db: %w", err)
	}
	// A single connection serializes writes and avoids busy errors.
	sqlDB.SetMaxOpenConns(1)
	if err := db.WithContext(ctx).AutoMigrate(&record{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("cache: couldn't migrate %s: %w", path, err)
	}
	return &sqliteEngine{db: db}, nil
}

func (s *sqliteEngine) Name() string {
	return "sqlite"
}

func (s *sqliteEngine) Put(ctx context.Context, key string, e *Entry) error {
	v := &record{
		ID:        key,
		ProjectID: e.ProjectID,
		Timestamp: e.Timestamp,
		Entry:     e,
	}
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("cache: failed to put %s: %w", key, err)
	}
	return nil
}

func (s *sqliteEngine) Get(ctx context.Context, key string) (*Entry, error) {
	var v record
	if err := s.db.WithContext(ctx).First(&v, "id = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cache: failed to get %s: %w", key, err)
	}
	if v.Entry == nil {
		return nil, ErrNotFound
	}
	v.Entry.Timestamp = v.Timestamp
	return v.Entry, nil
}

func (s *sqliteEngine) DeleteBefore(ctx context.Context, ts int64) (int, error) {
	res := s.db.WithContext(ctx).Where("timestamp < ?", ts).Delete(&record{})
	if res.Error != nil {
		return 0, fmt.Errorf("cache: failed to delete entries before %d: %w", ts, res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *sqliteEngine) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	// Keys are ascii so substr and len agree, and the comparison is case
	// sensitive unlike LIKE.
	res := s.db.WithContext(ctx).Where("substr(id, 1, ?) = ?", len(prefix), prefix).Delete(&record{})
	if res.Error != nil {
		return 0, fmt.Errorf("cache: failed to delete prefix %s: %w", prefix, res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *sqliteEngine) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
