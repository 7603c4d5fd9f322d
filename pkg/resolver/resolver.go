package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/igolaizola/lightshow/pkg/cache"
	"github.com/igolaizola/lightshow/pkg/show"
)

// ErrExhausted is returned when no retrieval strategy could preload the
// section.
var ErrExhausted = errors.New("resolver: all retrieval strategies failed")

const (
	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 4
	maxBundleSize      = 16 << 20
)

// Cache is the device cache where retrieved sequences are written.
type Cache interface {
	Save(ctx context.Context, e *cache.Entry) bool
	SaveAll(ctx context.Context, entries []*cache.Entry, concurrency int) int
}

type Config struct {
	// CDNURL is the public base url of the published bundles.
	CDNURL string
	// Timeout bounds the bundle fetch.
	Timeout     time.Duration
	Concurrency int
	Debug       bool
	Client      *http.Client
}

type Resolver struct {
	cdnURL      string
	timeout     time.Duration
	concurrency int
	debug       bool
	client      *http.Client
	cache       Cache
	source      show.Datastore
	strategies  []Strategy
}

// New creates a resolver. The source is used for the per song fallback and
// may be nil when only the bundle path is available.
func New(cfg *Config, c Cache, source show.Datastore) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	r := &Resolver{
		cdnURL:      strings.TrimSuffix(cfg.CDNURL, "/"),
		timeout:     timeout,
		concurrency: concurrency,
		debug:       cfg.Debug,
		client:      client,
		cache:       c,
		source:      source,
	}
	if r.cdnURL != "" {
		r.strategies = append(r.strategies, &bundleStrategy{r: r})
	}
	if source != nil {
		r.strategies = append(r.strategies, &datastoreStrategy{r: r})
	}
	return r
}

// BundleURL returns the public url of a section bundle.
func BundleURL(base, projectID, sectionID string) string {
	return fmt.Sprintf("%s/%s/%s.json", strings.TrimSuffix(base, "/"), url.PathEscape(projectID), url.PathEscape(sectionID))
}

// PreloadSection fetches the published bundle of the section and writes all
// its songs to the cache. Network errors, non success statuses and malformed
// payloads are all reported as false.
func (r *Resolver) PreloadSection(ctx context.Context, projectID, sectionID string) bool {
	if r.cdnURL == "" {
		return false
	}
	b, err := r.fetchBundle(ctx, projectID, sectionID)
	if err != nil {
		log.Printf("resolver: bundle unavailable for %s/%s: %v\n", projectID, sectionID, err)
		return false
	}
	var entries []*cache.Entry
	for _, s := range b.Songs {
		entries = append(entries, cache.EntryFromSong(projectID, sectionID, s))
	}
	n := r.cache.SaveAll(ctx, entries, r.concurrency)
	log.Printf("resolver: preloaded %d/%d songs of %s/%s from bundle version %s\n", n, len(entries), projectID, sectionID, b.Version)
	return n > 0
}

func (r *Resolver) fetchBundle(ctx context.Context, projectID, sectionID string) (*show.Bundle, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	u := BundleURL(r.cdnURL, projectID, sectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("resolver: couldn't create request %s: %w", u, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolver: couldn't get %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("resolver: %s returned %s", u, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBundleSize))
	if err != nil {
		return nil, fmt.Errorf("resolver: couldn't read %s: %w", u, err)
	}
	var b show.Bundle
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("resolver: couldn't unmarshal %s: %w", u, err)
	}
	if err := show.ValidateBundle(&b); err != nil {
		return nil, fmt.Errorf("resolver: invalid bundle %s: %w", u, err)
	}
	if b.ProjectID != projectID || b.SectionID != sectionID {
		return nil, fmt.Errorf("resolver: bundle %s is for %s/%s: %w", u, b.ProjectID, b.SectionID, show.ErrInvalid)
	}
	if r.debug {
		log.Printf("resolver: fetched %s (%d bytes, version %s)\n", u, len(body), b.Version)
	}
	return &b, nil
}

// PreloadSong queries the datastore for a single song sequence and writes it
// to the cache.
func (r *Resolver) PreloadSong(ctx context.Context, projectID, songID, sectionID string) bool {
	return r.preloadSong(ctx, projectID, &show.Song{ID: songID}, sectionID)
}

func (r *Resolver) preloadSong(ctx context.Context, projectID string, song *show.Song, sectionID string) bool {
	if r.source == nil {
		return false
	}
	seq, err := r.source.Sequence(ctx, song.ID, sectionID)
	if err != nil {
		log.Printf("resolver: couldn't get sequence %s/%s: %v\n", song.ID, sectionID, err)
		return false
	}
	s := &show.SongSequence{
		SongID:          song.ID,
		SongName:        song.Name,
		ArtistName:      song.Artist,
		DurationSeconds: song.DurationSeconds,
		Mode:            seq.Mode,
		Sequence:        seq.Blocks,
		StrobeSpeedMs:   seq.StrobeSpeedMs,
	}
	if s.Mode == "" {
		s.Mode = show.Fixed
	}
	if err := s.Validate(); err != nil {
		log.Printf("resolver: invalid sequence %s/%s: %v\n", song.ID, sectionID, err)
		return false
	}
	return r.cache.Save(ctx, cache.EntryFromSong(projectID, sectionID, s))
}

// Preload runs the retrieval strategies in order until one succeeds or one
// stops the chain.
func (r *Resolver) Preload(ctx context.Context, projectID, sectionID string) error {
	req := &Request{ProjectID: projectID, SectionID: sectionID}
	for _, s := range r.strategies {
		out := s.Resolve(ctx, req)
		switch out.Status {
		case Success:
			if r.debug {
				log.Printf("resolver: %s/%s resolved by %s\n", projectID, sectionID, s.Name())
			}
			return nil
		case Stop:
			return fmt.Errorf("resolver: %s: %w", s.Name(), out.Err)
		default:
			log.Printf("resolver: %s failed for %s/%s, trying next: %v\n", s.Name(), projectID, sectionID, out.Err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w for %s/%s", ErrExhausted, projectID, sectionID)
}
