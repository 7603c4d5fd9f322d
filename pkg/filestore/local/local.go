package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

type store struct {
	root      string
	publicURL string
	debug     bool
}

func New(root, publicURL string, debug bool) (*store, error) {
	if root == "" {
		return nil, errors.New("local: root folder not set")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("local: couldn't create root %q: %w", root, err)
	}
	if publicURL == "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("local: couldn't resolve root %q: %w", root, err)
		}
		publicURL = "file://" + filepath.ToSlash(abs)
	}
	return &store{
		root:      root,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		debug:     debug,
	}, nil
}

func (s *store) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("local: invalid name %q", name)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *store) URL(name string) string {
	return s.publicURL + "/" + name
}

// Upload writes the object to a temporary file and renames it so readers
// never see partial content. Cache control only applies to served content.
func (s *store) Upload(ctx context.Context, name string, body []byte, contentType, cacheControl string) error {
	dst, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("local: couldn't create folder for %q: %w", name, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("local: couldn't create temp file for %q: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("local: couldn't write %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("local: couldn't close %q: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("local: couldn't chmod %q: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("local: couldn't rename %q: %w", name, err)
	}
	if s.debug {
		log.Println("local: put object", name, len(body))
	}
	return nil
}

func (s *store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var n int
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(filepath.ToSlash(rel), prefix) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("local: couldn't delete prefix %q: %w", prefix, err)
	}
	if s.debug {
		log.Println("local: deleted objects", prefix, n)
	}
	return n, nil
}
