package publish

import (
	"context"
	"fmt"
	"log"

	"github.com/igolaizola/lightshow/pkg/compiler"
	"github.com/igolaizola/lightshow/pkg/filestore"
	"github.com/igolaizola/lightshow/pkg/publisher"
	"github.com/igolaizola/lightshow/pkg/storage"
)

type Config struct {
	Debug        bool
	DBType       string
	DBConn       string
	FSType       string
	FSConn       string
	PublicURL    string
	CacheControl string

	Project string
}

// Run compiles the bundles of a project and uploads them.
func Run(ctx context.Context, cfg *Config) error {
	var count int
	log.Println("publish: process started")
	defer func() {
		log.Printf("publish: process ended (%d)\n", count)
	}()

	debug := func(format string, args ...interface{}) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	if cfg.Project == "" {
		return fmt.Errorf("publish: project not set")
	}
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("publish: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("publish: couldn't start orm store: %w", err)
	}
	defer func() { _ = store.Stop() }()

	fs, err := filestore.New(ctx, cfg.FSType, cfg.FSConn, cfg.PublicURL, cfg.Debug)
	if err != nil {
		return fmt.Errorf("publish: couldn't create file storage: %w", err)
	}

	versions := store.NewVersionStore()
	bundles, err := compiler.New(store, versions, cfg.Debug).Compile(ctx, cfg.Project)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	pub := publisher.New(fs, cfg.CacheControl)
	for _, b := range bundles {
		u, err := pub.Publish(ctx, b)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		// Only record the version once it's uploaded
		if err := versions.SetVersion(ctx, b.ProjectID, b.SectionID, b.Version); err != nil {
			return fmt.Errorf("publish: couldn't save version: %w", err)
		}
		debug("publish: %s/%s version %s", b.ProjectID, b.SectionID, b.Version)
		fmt.Println(u)
		count++
	}
	return nil
}
