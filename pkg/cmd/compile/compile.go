package compile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/igolaizola/lightshow/pkg/compiler"
	"github.com/igolaizola/lightshow/pkg/storage"
)

type Config struct {
	Debug   bool
	DBType  string
	DBConn  string
	Project string
	// Output is the directory where bundles are written, stdout if empty.
	Output string
}

// Run compiles the bundles of a project without publishing them.
func Run(ctx context.Context, cfg *Config) error {
	log.Println("compile: started")
	defer log.Println("compile: ended")

	if cfg.Project == "" {
		return fmt.Errorf("compile: project not set")
	}
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("compile: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("compile: couldn't start orm store: %w", err)
	}
	defer func() { _ = store.Stop() }()

	bundles, err := compiler.New(store, store.NewVersionStore(), cfg.Debug).Compile(ctx, cfg.Project)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	for _, b := range bundles {
		js, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return fmt.Errorf("compile: couldn't marshal bundle: %w", err)
		}
		if cfg.Output == "" {
			fmt.Println(string(js))
			continue
		}
		dir := filepath.Join(cfg.Output, b.ProjectID)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("compile: couldn't create output dir: %w", err)
		}
		out := filepath.Join(dir, b.SectionID+".json")
		if err := os.WriteFile(out, js, 0644); err != nil {
			return fmt.Errorf("compile: couldn't write bundle: %w", err)
		}
		log.Printf("compile: %s version %s (%d songs)\n", out, b.Version, len(b.Songs))
	}
	return nil
}
