package purge

import (
	"context"
	"fmt"
	"log"

	"github.com/igolaizola/lightshow/pkg/filestore"
	"github.com/igolaizola/lightshow/pkg/publisher"
)

type Config struct {
	Debug     bool
	FSType    string
	FSConn    string
	PublicURL string

	Project string
}

// Run removes the published bundles of a project. Recorded versions are
// kept so a later publish still goes out with a higher version than any
// copy left in intermediate caches.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Project == "" {
		return fmt.Errorf("purge: project not set")
	}
	fs, err := filestore.New(ctx, cfg.FSType, cfg.FSConn, cfg.PublicURL, cfg.Debug)
	if err != nil {
		return fmt.Errorf("purge: couldn't create file storage: %w", err)
	}
	n, err := publisher.New(fs, "").Purge(ctx, cfg.Project)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	log.Printf("purge: removed %d bundles of %s\n", n, cfg.Project)
	return nil
}
