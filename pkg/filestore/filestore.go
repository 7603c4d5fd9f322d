package filestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/igolaizola/lightshow/pkg/filestore/local"
	"github.com/igolaizola/lightshow/pkg/filestore/s3"
)

type fs interface {
	Upload(ctx context.Context, name string, body []byte, contentType, cacheControl string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	URL(name string) string
}

// Store is a blob store with public URLs.
type Store struct {
	fs fs
}

// SetJSON uploads a json object, replacing any previous one with the same name.
func (s *Store) SetJSON(ctx context.Context, name string, body []byte, cacheControl string) error {
	return s.fs.Upload(ctx, name, body, "application/json", cacheControl)
}

// DeletePrefix removes every object whose name starts with prefix and returns
// how many were removed.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	return s.fs.DeletePrefix(ctx, prefix)
}

func (s *Store) URL(name string) string {
	return s.fs.URL(name)
}

// New creates a file store.
// For local the connection is the root folder, for s3 it is
// key:secret@bucket.region optionally followed by @endpoint for s3
// compatible providers.
func New(ctx context.Context, typ, conn, publicURL string, debug bool) (*Store, error) {
	var fs fs
	switch typ {
	case "s3":
		split := strings.SplitN(conn, "@", 3)
		if len(split) < 2 {
			return nil, fmt.Errorf("filestore: invalid s3 connection string %q", conn)
		}
		auth := strings.Split(split[0], ":")
		if len(auth) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 auth string %q", conn)
		}
		key := auth[0]
		secret := auth[1]
		loc := strings.Split(split[1], ".")
		if len(loc) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 location string %q", conn)
		}
		bucket := loc[0]
		region := loc[1]
		var endpoint string
		if len(split) == 3 {
			endpoint = split[2]
		}
		candidate, err := s3.New(ctx, &s3.Config{
			Key:       key,
			Secret:    secret,
			Region:    region,
			Bucket:    bucket,
			Endpoint:  endpoint,
			PublicURL: publicURL,
			Debug:     debug,
		})
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	case "local":
		candidate, err := local.New(conn, publicURL, debug)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	default:
		return nil, fmt.Errorf("filestore: unknown file storage type %q", typ)
	}
	return &Store{fs: fs}, nil
}
