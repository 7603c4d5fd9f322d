package preload

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/igolaizola/lightshow/pkg/api"
	"github.com/igolaizola/lightshow/pkg/cache"
	"github.com/igolaizola/lightshow/pkg/resolver"
	"github.com/igolaizola/lightshow/pkg/show"
	"github.com/igolaizola/lightshow/pkg/storage"
)

type Config struct {
	Debug       bool
	CacheDir    string
	Retention   time.Duration
	CDNURL      string
	Timeout     time.Duration
	Concurrency int

	// Per song fallback, through the read api or directly from a database.
	APIURL      string
	APIUser     string
	APIPassword string
	DBType      string
	DBConn      string

	Project string
	Section string
	Song    string
}

// Run downloads the sequences of a section, or of a single song, to the
// device cache.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Project == "" || cfg.Section == "" {
		return fmt.Errorf("preload: project and section are required")
	}

	c, err := cache.Open(ctx, &cache.Config{
		Dir:       cfg.CacheDir,
		Retention: cfg.Retention,
		Debug:     cfg.Debug,
	})
	if err != nil {
		return fmt.Errorf("preload: couldn't open cache: %w", err)
	}
	defer func() { _ = c.Close() }()

	var source show.Datastore
	switch {
	case cfg.APIURL != "":
		source = api.NewClient(&api.Config{
			URL:      cfg.APIURL,
			User:     cfg.APIUser,
			Password: cfg.APIPassword,
			Timeout:  cfg.Timeout,
		})
	case cfg.DBType != "":
		store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
		if err != nil {
			return fmt.Errorf("preload: couldn't create orm store: %w", err)
		}
		if err := store.Start(ctx); err != nil {
			return fmt.Errorf("preload: couldn't start orm store: %w", err)
		}
		defer func() { _ = store.Stop() }()
		source = store
	}

	r := resolver.New(&resolver.Config{
		CDNURL:      cfg.CDNURL,
		Timeout:     cfg.Timeout,
		Concurrency: cfg.Concurrency,
		Debug:       cfg.Debug,
	}, c, source)

	if cfg.Song != "" {
		if !r.PreloadSong(ctx, cfg.Project, cfg.Song, cfg.Section) {
			return fmt.Errorf("preload: couldn't preload song %s", cfg.Song)
		}
		log.Printf("preload: song %s ready\n", cfg.Song)
		return nil
	}
	if err := r.Preload(ctx, cfg.Project, cfg.Section); err != nil {
		return fmt.Errorf("preload: %w", err)
	}
	log.Printf("preload: section %s ready\n", cfg.Section)
	return nil
}
