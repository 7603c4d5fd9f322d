package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/igolaizola/lightshow/pkg/show"
)

// brokenEngine fails every write whose key contains bad.
type brokenEngine struct {
	Engine
	bad string
}

func (b *brokenEngine) Name() string { return "broken" }

func (b *brokenEngine) Put(ctx context.Context, key string, e *Entry) error {
	if strings.Contains(key, b.bad) {
		return errors.New("quota exceeded")
	}
	return b.Engine.Put(ctx, key, e)
}

func testEntry(projectID, songID, sectionID string) *Entry {
	return &Entry{
		ProjectID: projectID,
		SongID:    songID,
		SectionID: sectionID,
		Mode:      show.Fixed,
		Sequence:  []show.ColorBlock{{Start: 0, End: 5, Color: "#FF0000"}},
	}
}

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(context.Background(), &Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() err = %v; want nil", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenEngines(t *testing.T) {
	c := openTestCache(t)
	if len(c.engines) != 2 || c.engines[0].Name() != "sqlite" || c.engines[1].Name() != "file" {
		t.Fatalf("Open() engines = %v; want sqlite and file", c.engines)
	}

	// A file in place of the folder leaves only the session engine.
	path := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Open(context.Background(), &Config{Dir: path})
	if err != nil {
		t.Fatalf("Open() err = %v; want nil", err)
	}
	if len(c.engines) != 1 || c.engines[0].Name() != "memory" {
		t.Fatalf("Open() engines = %v; want memory", c.engines)
	}
	if !c.Save(context.Background(), testEntry("p1", "s1", "a")) {
		t.Fatal("Save() = false; want true")
	}
}

func TestSaveGet(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)
	now := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if got := c.Get(ctx, "p1", "s1", "a"); got != nil {
		t.Fatalf("Get() = %+v; want nil", got)
	}
	if c.IsPreloaded(ctx, "p1", "s1", "a") {
		t.Fatal("IsPreloaded() = true; want false")
	}
	e := testEntry("p1", "s1", "a")
	e.Mode = show.Strobe
	e.StrobeSpeedMs = 60
	if !c.Save(ctx, e) {
		t.Fatal("Save() = false; want true")
	}
	got := c.Get(ctx, "p1", "s1", "a")
	if got == nil {
		t.Fatal("Get() = nil; want entry")
	}
	if got.Timestamp != now.UnixMilli() {
		t.Errorf("Get().Timestamp = %d; want %d", got.Timestamp, now.UnixMilli())
	}
	if got.Mode != show.Strobe || got.StrobeSpeedMs != 60 || len(got.Sequence) != 1 {
		t.Errorf("Get() = %+v", got)
	}
	if !c.IsPreloaded(ctx, "p1", "s1", "a") {
		t.Error("IsPreloaded() = false; want true")
	}
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)
	now := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	// Write the same entry to both engines.
	e := testEntry("p1", "s1", "a")
	e.Timestamp = now.UnixMilli()
	for _, engine := range c.engines {
		if err := engine.Put(ctx, e.Key(), e); err != nil {
			t.Fatal(err)
		}
	}

	now = now.Add(DefaultRetention + time.Minute)
	if got := c.Get(ctx, "p1", "s1", "a"); got != nil {
		t.Fatalf("Get() of expired entry = %+v; want nil", got)
	}
	n, err := c.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired() err = %v; want nil", err)
	}
	if n != 2 {
		t.Errorf("PurgeExpired() = %d; want 2", n)
	}
	for _, engine := range c.engines {
		if _, err := engine.Get(ctx, e.Key()); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s still holds the expired entry: %v", engine.Name(), err)
		}
	}
}

func TestPurgeProject(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)

	for _, e := range []*Entry{
		testEntry("p1", "s1", "a"),
		testEntry("p1", "s2", "a"),
		testEntry("p10", "s1", "a"),
		testEntry("p2", "s1", "a"),
	} {
		if !c.Save(ctx, e) {
			t.Fatal("Save() = false; want true")
		}
	}
	// Also in the fallback engine
	fallback := testEntry("p1", "s3", "b")
	if err := c.engines[1].Put(ctx, fallback.Key(), fallback); err != nil {
		t.Fatal(err)
	}

	n, err := c.PurgeProject(ctx, "p1")
	if err != nil {
		t.Fatalf("PurgeProject() err = %v; want nil", err)
	}
	if n != 3 {
		t.Errorf("PurgeProject() = %d; want 3", n)
	}
	for _, k := range [][3]string{{"p1", "s1", "a"}, {"p1", "s2", "a"}, {"p1", "s3", "b"}} {
		if c.Get(ctx, k[0], k[1], k[2]) != nil {
			t.Errorf("Get(%v) after purge != nil", k)
		}
	}
	for _, k := range [][3]string{{"p10", "s1", "a"}, {"p2", "s1", "a"}} {
		if c.Get(ctx, k[0], k[1], k[2]) == nil {
			t.Errorf("Get(%v) after purge of p1 = nil; want entry", k)
		}
	}
}

func TestFallbackEngine(t *testing.T) {
	ctx := context.Background()
	primary := &brokenEngine{Engine: NewMemory(), bad: "s1"}
	fallback := NewMemory()
	c := New(0, false, primary, fallback)

	if !c.Save(ctx, testEntry("p1", "s1", "a")) {
		t.Fatal("Save() = false; want true")
	}
	if _, err := fallback.Get(ctx, Key("p1", "s1", "a")); err != nil {
		t.Fatalf("fallback doesn't hold the entry: %v", err)
	}
	if c.Get(ctx, "p1", "s1", "a") == nil {
		t.Fatal("Get() = nil; want entry from fallback engine")
	}
}

func TestSaveAllPartial(t *testing.T) {
	ctx := context.Background()
	c := New(0, false, &brokenEngine{Engine: NewMemory(), bad: "bad"})

	entries := []*Entry{
		testEntry("p1", "s1", "a"),
		testEntry("p1", "bad", "a"),
		testEntry("p1", "s3", "a"),
	}
	if n := c.SaveAll(ctx, entries, 2); n != 2 {
		t.Fatalf("SaveAll() = %d; want 2", n)
	}
	if c.Get(ctx, "p1", "s3", "a") == nil {
		t.Error("Get(s3) = nil; a failed sibling must not abort other writes")
	}
	if c.Get(ctx, "p1", "bad", "a") != nil {
		t.Error("Get(bad) != nil; want nil")
	}
}

func TestKey(t *testing.T) {
	if Key("a/b", "c", "d") == Key("a", "b/c", "d") {
		t.Fatal("Key() collides for ids containing the separator")
	}
	if strings.HasPrefix(Key("p10", "s", "a"), projectPrefix("p1")) {
		t.Fatal("project prefix of p1 matches p10")
	}
}
