package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestUploadDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := New(root, "https://cdn.example.com/", false)
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}

	for _, name := range []string{"p1/a.json", "p1/b.json", "p10/a.json"} {
		if err := s.Upload(ctx, name, []byte(`{"v":1}`), "application/json", ""); err != nil {
			t.Fatalf("Upload(%s) err = %v; want nil", name, err)
		}
	}
	// Uploads replace previous content
	if err := s.Upload(ctx, "p1/a.json", []byte(`{"v":2}`), "application/json", ""); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(root, "p1", "a.json"))
	if err != nil || string(b) != `{"v":2}` {
		t.Fatalf("p1/a.json = %s, %v; want v2", b, err)
	}
	if got, want := s.URL("p1/a.json"), "https://cdn.example.com/p1/a.json"; got != want {
		t.Errorf("URL() = %q; want %q", got, want)
	}

	n, err := s.DeletePrefix(ctx, "p1/")
	if err != nil || n != 2 {
		t.Fatalf("DeletePrefix() = %d, %v; want 2", n, err)
	}
	if _, err := os.Stat(filepath.Join(root, "p10", "a.json")); err != nil {
		t.Errorf("p10/a.json should survive purge of p1: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "p1", "b.json")); !os.IsNotExist(err) {
		t.Errorf("p1/b.json after purge err = %v; want not exist", err)
	}
}

func TestInvalidName(t *testing.T) {
	s, err := New(t.TempDir(), "", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Upload(context.Background(), "../escape.json", nil, "", ""); err == nil {
		t.Errorf("Upload(../escape.json) err = nil; want error")
	}
}
