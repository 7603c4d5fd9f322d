package play

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/igolaizola/lightshow/pkg/cache"
	"github.com/igolaizola/lightshow/pkg/playback"
)

type Config struct {
	Debug     bool
	CacheDir  string
	Retention time.Duration

	StrobeSpeed time.Duration
	StrobeColor string
	OffColor    string
	FrameRate   int

	Project string
	Section string
	Song    string
}

// Run plays a preloaded song on the terminal.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Project == "" || cfg.Section == "" || cfg.Song == "" {
		return fmt.Errorf("play: project, section and song are required")
	}

	c, err := cache.Open(ctx, &cache.Config{
		Dir:       cfg.CacheDir,
		Retention: cfg.Retention,
		Debug:     cfg.Debug,
	})
	if err != nil {
		return fmt.Errorf("play: couldn't open cache: %w", err)
	}
	defer func() { _ = c.Close() }()

	track, err := playback.Load(ctx, c, cfg.Project, cfg.Song, cfg.Section, &playback.Options{
		StrobeSpeed: cfg.StrobeSpeed,
		StrobeColor: cfg.StrobeColor,
		OffColor:    cfg.OffColor,
	})
	if errors.Is(err, playback.ErrNotPreloaded) {
		return fmt.Errorf("play: run preload for section %s first: %w", cfg.Section, err)
	}
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}

	fps := cfg.FrameRate
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	screen := playback.NewTerminalScreen(os.Stdin, os.Stdout)
	if err := playback.NewPlayer(track, screen, cfg.Debug).Run(ctx, ticker.C); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}
