package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/igolaizola/lightshow/pkg/show"
)

type Status int

const (
	// Success means the section is cached.
	Success Status = iota
	// Next is a soft failure, the next strategy is tried.
	Next
	// Stop is a hard failure that ends the chain.
	Stop
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Next:
		return "next"
	case Stop:
		return "stop"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

type Request struct {
	ProjectID string
	SectionID string
}

type Outcome struct {
	Status Status
	Err    error
}

// Strategy is one way of getting the sequences of a section into the cache.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, req *Request) Outcome
}

type bundleStrategy struct {
	r *Resolver
}

func (s *bundleStrategy) Name() string {
	return "bundle"
}

func (s *bundleStrategy) Resolve(ctx context.Context, req *Request) Outcome {
	if s.r.PreloadSection(ctx, req.ProjectID, req.SectionID) {
		return Outcome{Status: Success}
	}
	return Outcome{Status: Next, Err: errors.New("bundle unavailable")}
}

// datastoreStrategy issues one query per song of the project.
type datastoreStrategy struct {
	r *Resolver
}

func (s *datastoreStrategy) Name() string {
	return "datastore"
}

func (s *datastoreStrategy) Resolve(ctx context.Context, req *Request) Outcome {
	songs, err := s.r.source.Songs(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, show.ErrNotFound) {
			return Outcome{Status: Stop, Err: err}
		}
		return Outcome{Status: Next, Err: fmt.Errorf("couldn't list songs: %w", err)}
	}
	if len(songs) == 0 {
		return Outcome{Status: Stop, Err: fmt.Errorf("project %s has no songs: %w", req.ProjectID, show.ErrNotFound)}
	}
	var n int
	for _, song := range songs {
		if err := ctx.Err(); err != nil {
			return Outcome{Status: Stop, Err: err}
		}
		if s.r.preloadSong(ctx, req.ProjectID, song, req.SectionID) {
			n++
		}
	}
	log.Printf("resolver: preloaded %d/%d songs of %s/%s from datastore\n", n, len(songs), req.ProjectID, req.SectionID)
	if n == 0 {
		return Outcome{Status: Next, Err: fmt.Errorf("no song of %s/%s could be preloaded", req.ProjectID, req.SectionID)}
	}
	return Outcome{Status: Success}
}
