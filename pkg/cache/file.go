package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const fileExt = ".json"

// fileEngine is the simple key value engine: one json file per key.
type fileEngine struct {
	dir string
}

func NewFile(dir string) (Engine, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cache: couldn't create %s: %w", dir, err)
	}
	// Probe that the folder is writable.
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return nil, fmt.Errorf("cache: %s is not writable: %w", dir, err)
	}
	f.Close()
	_ = os.Remove(f.Name())
	return &fileEngine{dir: dir}, nil
}

func (f *fileEngine) Name() string {
	return "file"
}

func (f *fileEngine) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+fileExt)
}

func (f *fileEngine) Put(ctx context.Context, key string, e *Entry) error {
	js, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache: couldn't marshal %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(f.dir, ".put-*")
	if err != nil {
		return fmt.Errorf("cache: couldn't create temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(js); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: couldn't write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: couldn't close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("cache: couldn't rename %s: %w", key, err)
	}
	return nil
}

func (f *fileEngine) Get(ctx context.Context, key string) (*Entry, error) {
	b, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: couldn't read %s: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("cache: couldn't unmarshal %s: %w", key, err)
	}
	return &e, nil
}

// each calls fn for every stored key with its file path.
func (f *fileEngine) each(fn func(key, path string) error) error {
	items, err := os.ReadDir(f.dir)
	if err != nil {
		return fmt.Errorf("cache: couldn't list %s: %w", f.dir, err)
	}
	for _, item := range items {
		name := item.Name()
		if item.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		if err := fn(key, filepath.Join(f.dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func (f *fileEngine) DeleteBefore(ctx context.Context, ts int64) (int, error) {
	var n int
	err := f.each(func(key, path string) error {
		e, err := f.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		// Unreadable entries can never be served, drop them too.
		if err == nil && e.Timestamp >= ts {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cache: couldn't remove %s: %w", key, err)
		}
		n++
		return nil
	})
	return n, err
}

func (f *fileEngine) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var n int
	err := f.each(func(key, path string) error {
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cache: couldn't remove %s: %w", key, err)
		}
		n++
		return nil
	})
	return n, err
}

func (f *fileEngine) Close() error {
	return nil
}
