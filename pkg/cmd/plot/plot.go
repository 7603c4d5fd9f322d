package plot

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/igolaizola/lightshow/pkg/preview"
	"github.com/igolaizola/lightshow/pkg/show"
	"github.com/igolaizola/lightshow/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Song        string
	Section     string
	Output      string
	StrobeColor string
}

// Run draws a stored sequence to an image file.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Song == "" || cfg.Section == "" {
		return fmt.Errorf("plot: song and section are required")
	}
	output := cfg.Output
	if output == "" {
		output = fmt.Sprintf("%s-%s.png", cfg.Song, cfg.Section)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")

	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("plot: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("plot: couldn't start orm store: %w", err)
	}
	defer func() { _ = store.Stop() }()

	song, err := store.GetSong(ctx, cfg.Song)
	if err != nil {
		return fmt.Errorf("plot: couldn't get song: %w", err)
	}
	seq, err := store.Sequence(ctx, cfg.Song, cfg.Section)
	if err != nil {
		return fmt.Errorf("plot: couldn't get sequence: %w", err)
	}
	b, err := preview.Plot(&show.SongSequence{
		SongID:          song.ID,
		SongName:        song.Name,
		ArtistName:      song.Artist,
		DurationSeconds: song.Duration,
		Mode:            seq.Mode,
		Sequence:        seq.Blocks,
		StrobeSpeedMs:   seq.StrobeSpeedMs,
	}, format, cfg.StrobeColor)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	if err := os.WriteFile(output, b, 0644); err != nil {
		return fmt.Errorf("plot: couldn't write output: %w", err)
	}
	log.Printf("plot: %s\n", output)
	return nil
}
