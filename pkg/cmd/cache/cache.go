package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/igolaizola/lightshow/pkg/cache"
)

type Config struct {
	Debug     bool
	CacheDir  string
	Retention time.Duration

	Expired bool
	Project string
}

// Run cleans the device cache.
func Run(ctx context.Context, cfg *Config) error {
	if !cfg.Expired && cfg.Project == "" {
		return fmt.Errorf("cache: nothing to do, set expired or project")
	}
	c, err := cache.Open(ctx, &cache.Config{
		Dir:       cfg.CacheDir,
		Retention: cfg.Retention,
		Debug:     cfg.Debug,
	})
	if err != nil {
		return fmt.Errorf("cache: couldn't open: %w", err)
	}
	defer func() { _ = c.Close() }()

	if cfg.Expired {
		n, err := c.PurgeExpired(ctx)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		log.Printf("cache: removed %d expired entries\n", n)
	}
	if cfg.Project != "" {
		n, err := c.PurgeProject(ctx, cfg.Project)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		log.Printf("cache: removed %d entries of %s\n", n, cfg.Project)
	}
	return nil
}
