package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/igolaizola/lightshow/pkg/show"
)

// DefaultCacheControl lets intermediate caches keep a bundle for an hour.
const DefaultCacheControl = "public, max-age=3600"

// ObjectStore is the blob storage where bundles are published.
type ObjectStore interface {
	SetJSON(ctx context.Context, name string, body []byte, cacheControl string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	URL(name string) string
}

type Publisher struct {
	store        ObjectStore
	cacheControl string
}

func New(store ObjectStore, cacheControl string) *Publisher {
	if cacheControl == "" {
		cacheControl = DefaultCacheControl
	}
	return &Publisher{
		store:        store,
		cacheControl: cacheControl,
	}
}

// Key returns the stable object path of a section bundle.
func Key(projectID, sectionID string) string {
	return fmt.Sprintf("%s/%s.json", projectID, sectionID)
}

func prefix(projectID string) string {
	return projectID + "/"
}

// Publish uploads the bundle replacing the previous version and returns its
// public URL. Failed uploads are not retried.
func (p *Publisher) Publish(ctx context.Context, b *show.Bundle) (string, error) {
	if err := show.ValidateBundle(b); err != nil {
		return "", fmt.Errorf("publisher: refusing to publish: %w", err)
	}
	js, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("publisher: couldn't marshal bundle %s/%s: %w", b.ProjectID, b.SectionID, err)
	}
	key := Key(b.ProjectID, b.SectionID)
	if err := p.store.SetJSON(ctx, key, js, p.cacheControl); err != nil {
		return "", fmt.Errorf("publisher: couldn't upload %s: %w", key, err)
	}
	u := p.store.URL(key)
	log.Printf("publisher: published %s version %s (%d songs) to %s\n", key, b.Version, len(b.Songs), u)
	return u, nil
}

// Purge removes every published bundle of the project.
func (p *Publisher) Purge(ctx context.Context, projectID string) (int, error) {
	if projectID == "" {
		return 0, fmt.Errorf("publisher: empty project id")
	}
	n, err := p.store.DeletePrefix(ctx, prefix(projectID))
	if err != nil {
		return n, fmt.Errorf("publisher: couldn't purge %s: %w", projectID, err)
	}
	log.Printf("publisher: purged %d bundles of %s\n", n, projectID)
	return n, nil
}
