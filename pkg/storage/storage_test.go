package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/igolaizola/lightshow/pkg/show"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := New("sqlite", filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() err = %v; want nil", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() err = %v; want nil", err)
	}
	return s
}

func TestDatastore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.SetProject(ctx, &Project{ID: "p1", Name: "Tour", ConcertID: "c1"}); err != nil {
		t.Fatal(err)
	}
	for _, v := range []*Section{
		{ID: "b", ProjectID: "p1", Name: "B", DisplayOrder: 2, Active: true},
		{ID: "a", ProjectID: "p1", Name: "A", DisplayOrder: 1, Active: true},
		{ID: "x", ProjectID: "p1", Name: "X", DisplayOrder: 0, Active: false},
	} {
		if err := s.SetSection(ctx, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, v := range []*Song{
		{ID: "s2", ProjectID: "p1", Name: "Two", Position: 2, Duration: 20},
		{ID: "s1", ProjectID: "p1", Name: "One", Position: 1, Duration: 10},
	} {
		if err := s.SetSong(ctx, v); err != nil {
			t.Fatal(err)
		}
	}
	blocks := []show.ColorBlock{
		{Start: 0, End: 5, Color: "#FF0000"},
		{Start: 5, End: 10, Color: "#00FF00", StrobeColor2: "#FFFFFF"},
	}
	if err := s.SetSequence(ctx, &Sequence{SongID: "s1", SectionID: "a", Mode: "strobe", StrobeSpeedMs: 60, Blocks: blocks}); err != nil {
		t.Fatal(err)
	}

	p, err := s.Project(ctx, "p1")
	if err != nil {
		t.Fatalf("Project() err = %v; want nil", err)
	}
	if p.ConcertID != "c1" {
		t.Errorf("Project().ConcertID = %q; want c1", p.ConcertID)
	}
	if _, err := s.Project(ctx, "missing"); !errors.Is(err, show.ErrNotFound) {
		t.Errorf("Project(missing) err = %v; want ErrNotFound", err)
	}

	sections, err := s.Sections(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sections) != 2 || sections[0].ID != "a" || sections[1].ID != "b" {
		t.Fatalf("Sections() = %v; want active sections a, b", sections)
	}

	songs, err := s.Songs(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(songs) != 2 || songs[0].ID != "s1" || songs[1].ID != "s2" {
		t.Fatalf("Songs() = %v; want s1, s2", songs)
	}

	seq, err := s.Sequence(ctx, "s1", "a")
	if err != nil {
		t.Fatalf("Sequence() err = %v; want nil", err)
	}
	if seq.Mode != show.Strobe || seq.StrobeSpeedMs != 60 || len(seq.Blocks) != 2 {
		t.Fatalf("Sequence() = %+v; want strobe sequence with 2 blocks", seq)
	}
	if seq.Blocks[1] != blocks[1] {
		t.Errorf("Sequence().Blocks[1] = %+v; want %+v", seq.Blocks[1], blocks[1])
	}
	if _, err := s.Sequence(ctx, "s2", "a"); !errors.Is(err, show.ErrNotFound) {
		t.Errorf("Sequence(s2, a) err = %v; want ErrNotFound", err)
	}

	if err := s.DeleteProject(ctx, "p1"); err != nil {
		t.Fatalf("DeleteProject() err = %v; want nil", err)
	}
	if _, err := s.Sequence(ctx, "s1", "a"); !errors.Is(err, show.ErrNotFound) {
		t.Errorf("Sequence() after delete err = %v; want ErrNotFound", err)
	}
	songs, err = s.Songs(ctx, "p1")
	if err != nil || len(songs) != 0 {
		t.Errorf("Songs() after delete = %v, %v; want empty", songs, err)
	}
}

func TestVersionStore(t *testing.T) {
	ctx := context.Background()
	v := newTestStore(t).NewVersionStore()

	got, err := v.LastVersion(ctx, "p1", "a")
	if err != nil || got != "" {
		t.Fatalf("LastVersion() = %q, %v; want empty", got, err)
	}
	if err := v.SetVersion(ctx, "p1", "a", "1.0.3"); err != nil {
		t.Fatal(err)
	}
	if err := v.SetVersion(ctx, "p10", "a", "1.0.0"); err != nil {
		t.Fatal(err)
	}
	if got, _ := v.LastVersion(ctx, "p1", "a"); got != "1.0.3" {
		t.Fatalf("LastVersion() = %q; want 1.0.3", got)
	}
	if got, _ := v.LastVersion(ctx, "p10", "a"); got != "1.0.0" {
		t.Errorf("LastVersion(p10) = %q; want 1.0.0", got)
	}
}
