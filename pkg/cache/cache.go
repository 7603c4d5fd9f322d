package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/igolaizola/lightshow/pkg/show"
	"golang.org/x/sync/errgroup"
)

// DefaultRetention is how long an entry is served after it was written.
const DefaultRetention = 30 * 24 * time.Hour

var ErrNotFound = show.ErrNotFound

// Entry is a sequence downloaded to the device.
type Entry struct {
	ProjectID       string            `json:"projectId"`
	SongID          string            `json:"songId"`
	SectionID       string            `json:"sectionId"`
	SongName        string            `json:"songName,omitempty"`
	DurationSeconds float64           `json:"durationSeconds,omitempty"`
	Sequence        []show.ColorBlock `json:"sequence"`
	Mode            show.Mode         `json:"mode"`
	StrobeSpeedMs   int               `json:"strobeSpeedMs,omitempty"`
	// Timestamp is the write time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

func (e *Entry) Key() string {
	return Key(e.ProjectID, e.SongID, e.SectionID)
}

// Key composes the lookup key of an entry. Every part is escaped so the
// separator only appears between parts.
func Key(projectID, songID, sectionID string) string {
	return projectPrefix(projectID) + url.PathEscape(songID) + "/" + url.PathEscape(sectionID)
}

func projectPrefix(projectID string) string {
	return url.PathEscape(projectID) + "/"
}

// EntryFromSong builds an entry from a bundle or datastore song.
func EntryFromSong(projectID, sectionID string, s *show.SongSequence) *Entry {
	return &Entry{
		ProjectID:       projectID,
		SongID:          s.SongID,
		SectionID:       sectionID,
		SongName:        s.SongName,
		DurationSeconds: s.DurationSeconds,
		Sequence:        s.Sequence,
		Mode:            s.Mode,
		StrobeSpeedMs:   s.StrobeSpeedMs,
	}
}

// Engine is a persistent key value engine.
type Engine interface {
	Name() string
	Put(ctx context.Context, key string, e *Entry) error
	// Get returns ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) (*Entry, error)
	// DeleteBefore removes entries with a timestamp older than ts.
	DeleteBefore(ctx context.Context, ts int64) (int, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

type Config struct {
	// Dir holds the files of both engines.
	Dir       string
	Retention time.Duration
	Debug     bool
}

// Cache stores entries in the first engine that accepts them and reads from
// all of them.
type Cache struct {
	engines   []Engine
	retention time.Duration
	debug     bool
	now       func() time.Time
}

// New creates a cache over the given engines in priority order.
func New(retention time.Duration, debug bool, engines ...Engine) *Cache {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Cache{
		engines:   engines,
		retention: retention,
		debug:     debug,
		now:       time.Now,
	}
}

// Open probes the durable engine and falls back to the key value engine when
// it isn't available. If no engine can be opened on disk the cache keeps
// entries in memory for the current session.
func Open(ctx context.Context, cfg *Config) (*Cache, error) {
	if cfg.Dir == "" {
		return nil, errors.New("cache: directory not set")
	}
	var engines []Engine
	durable, err := NewSQLite(ctx, filepath.Join(cfg.Dir, "cache.db"), cfg.Debug)
	if err != nil {
		log.Printf("cache: durable engine unavailable, using key value engine: %v\n", err)
	} else {
		engines = append(engines, durable)
	}
	kv, err := NewFile(filepath.Join(cfg.Dir, "kv"))
	if err != nil {
		log.Printf("cache: key value engine unavailable: %v\n", err)
	} else {
		engines = append(engines, kv)
	}
	if len(engines) == 0 {
		log.Println("cache: no persistent engine available, entries will only last for this session")
		engines = append(engines, NewMemory())
	}
	return New(cfg.Retention, cfg.Debug, engines...), nil
}

func (c *Cache) Close() error {
	var errs []error
	for _, e := range c.engines {
		if err := e.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: couldn't close %s: %w", e.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Save stamps the entry with the current time and stores it. Failures are
// logged and reported as false.
func (c *Cache) Save(ctx context.Context, e *Entry) bool {
	e.Timestamp = c.now().UnixMilli()
	key := e.Key()
	for _, engine := range c.engines {
		err := engine.Put(ctx, key, e)
		if err == nil {
			if c.debug {
				log.Printf("cache: saved %s in %s\n", key, engine.Name())
			}
			return true
		}
		log.Printf("cache: couldn't save %s in %s: %v\n", key, engine.Name(), err)
	}
	return false
}

// SaveAll stores the entries concurrently. A failed entry doesn't stop the
// others. It returns how many entries were saved.
func (c *Cache) SaveAll(ctx context.Context, entries []*Entry, concurrency int) int {
	if concurrency < 1 {
		concurrency = 1
	}
	var saved atomic.Int32
	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			if c.Save(ctx, e) {
				saved.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	n := int(saved.Load())
	if n < len(entries) {
		log.Printf("cache: saved %d of %d entries\n", n, len(entries))
	}
	return n
}

// Get returns the newest unexpired entry of any engine, or nil if there is
// none.
func (c *Cache) Get(ctx context.Context, projectID, songID, sectionID string) *Entry {
	key := Key(projectID, songID, sectionID)
	cutoff := c.cutoff()
	var found *Entry
	for _, engine := range c.engines {
		e, err := engine.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			log.Printf("cache: couldn't get %s from %s: %v\n", key, engine.Name(), err)
			continue
		}
		if e.Timestamp < cutoff {
			continue
		}
		if found == nil || e.Timestamp > found.Timestamp {
			found = e
		}
	}
	return found
}

func (c *Cache) IsPreloaded(ctx context.Context, projectID, songID, sectionID string) bool {
	return c.Get(ctx, projectID, songID, sectionID) != nil
}

// PurgeExpired removes entries older than the retention window from every
// engine.
func (c *Cache) PurgeExpired(ctx context.Context) (int, error) {
	cutoff := c.cutoff()
	var total int
	var errs []error
	for _, engine := range c.engines {
		n, err := engine.DeleteBefore(ctx, cutoff)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("cache: couldn't purge expired from %s: %w", engine.Name(), err))
		}
	}
	return total, errors.Join(errs...)
}

// PurgeProject removes every entry of the project from every engine.
func (c *Cache) PurgeProject(ctx context.Context, projectID string) (int, error) {
	prefix := projectPrefix(projectID)
	var total int
	var errs []error
	for _, engine := range c.engines {
		n, err := engine.DeletePrefix(ctx, prefix)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("cache: couldn't purge %s from %s: %w", projectID, engine.Name(), err))
		}
	}
	return total, errors.Join(errs...)
}

func (c *Cache) cutoff() int64 {
	return c.now().Add(-c.retention).UnixMilli()
}
