package purge

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/igolaizola/lightshow/pkg/cmd/publish"
	"github.com/igolaizola/lightshow/pkg/show"
	"github.com/igolaizola/lightshow/pkg/storage"
)

func seed(t *testing.T, dbConn string) {
	t.Helper()
	ctx := context.Background()
	s, err := storage.New("sqlite", dbConn, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Stop() }()
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.SetProject(ctx, &storage.Project{ID: "p1", Name: "Tour"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSection(ctx, &storage.Section{ID: "a", ProjectID: "p1", Name: "Floor", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSong(ctx, &storage.Song{ID: "s1", ProjectID: "p1", Name: "One", Position: 1, Duration: 10}); err != nil {
		t.Fatal(err)
	}
	blocks := []show.ColorBlock{{Start: 0, End: 10, Color: "#FF0000"}}
	if err := s.SetSequence(ctx, &storage.Sequence{SongID: "s1", SectionID: "a", Mode: "fixed", Blocks: blocks}); err != nil {
		t.Fatal(err)
	}
}

func TestRepublishAfterPurge(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbConn := filepath.Join(dir, "test.db")
	cdn := filepath.Join(dir, "cdn")
	seed(t, dbConn)

	pub := &publish.Config{
		DBType:  "sqlite",
		DBConn:  dbConn,
		FSType:  "local",
		FSConn:  cdn,
		Project: "p1",
	}
	if err := publish.Run(ctx, pub); err != nil {
		t.Fatalf("publish.Run() err = %v; want nil", err)
	}
	bundle := filepath.Join(cdn, "p1", "a.json")
	if _, err := os.Stat(bundle); err != nil {
		t.Fatalf("bundle not published: %v", err)
	}

	if err := Run(ctx, &Config{FSType: "local", FSConn: cdn, Project: "p1"}); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}
	if _, err := os.Stat(bundle); !os.IsNotExist(err) {
		t.Fatalf("bundle still present after purge: %v", err)
	}
	if err := Run(ctx, &Config{FSType: "local", FSConn: cdn}); err == nil {
		t.Error("Run() without project err = nil; want error")
	}

	// The next publish continues the version sequence
	if err := publish.Run(ctx, pub); err != nil {
		t.Fatalf("publish.Run() after purge err = %v; want nil", err)
	}
	b, err := os.ReadFile(bundle)
	if err != nil {
		t.Fatal(err)
	}
	var got show.Bundle
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Version != "1.0.1" {
		t.Errorf("version after purge = %q; want 1.0.1", got.Version)
	}
}
