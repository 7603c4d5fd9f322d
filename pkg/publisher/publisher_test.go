package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/igolaizola/lightshow/pkg/show"
)

type object struct {
	body         []byte
	cacheControl string
}

type memStore struct {
	objects map[string]object
	fail    error
}

func (m *memStore) SetJSON(ctx context.Context, name string, body []byte, cacheControl string) error {
	if m.fail != nil {
		return m.fail
	}
	m.objects[name] = object{body: body, cacheControl: cacheControl}
	return nil
}

func (m *memStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var n int
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
			n++
		}
	}
	return n, nil
}

func (m *memStore) URL(name string) string {
	return "https://cdn.example.com/" + name
}

func testBundle(projectID, sectionID, version string) *show.Bundle {
	return &show.Bundle{
		ProjectID: projectID,
		SectionID: sectionID,
		Version:   version,
		Songs: []*show.SongSequence{{
			SongID:   "s1",
			Mode:     show.Fixed,
			Sequence: []show.ColorBlock{{Start: 0, End: 5, Color: "#FF0000"}},
		}},
	}
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	store := &memStore{objects: map[string]object{}}
	p := New(store, "")

	u, err := p.Publish(ctx, testBundle("p1", "a", "1.0.0"))
	if err != nil {
		t.Fatalf("Publish() err = %v; want nil", err)
	}
	if u != "https://cdn.example.com/p1/a.json" {
		t.Errorf("Publish() url = %q", u)
	}
	// Publishing again replaces the object under the same path.
	if _, err := p.Publish(ctx, testBundle("p1", "a", "1.0.1")); err != nil {
		t.Fatal(err)
	}
	if len(store.objects) != 1 {
		t.Fatalf("store has %d objects; want 1", len(store.objects))
	}
	obj := store.objects["p1/a.json"]
	if obj.cacheControl != DefaultCacheControl {
		t.Errorf("cache control = %q; want %q", obj.cacheControl, DefaultCacheControl)
	}
	var got show.Bundle
	if err := json.Unmarshal(obj.body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Version != "1.0.1" {
		t.Errorf("published version = %q; want 1.0.1", got.Version)
	}
}

func TestPublishRejectsEmptyBundle(t *testing.T) {
	store := &memStore{objects: map[string]object{}}
	b := testBundle("p1", "a", "1.0.0")
	b.Songs = nil
	if _, err := New(store, "").Publish(context.Background(), b); !errors.Is(err, show.ErrInvalid) {
		t.Fatalf("Publish() err = %v; want ErrInvalid", err)
	}
	if len(store.objects) != 0 {
		t.Errorf("store has %d objects; want 0", len(store.objects))
	}
}

func TestPublishUploadError(t *testing.T) {
	store := &memStore{objects: map[string]object{}, fail: errors.New("boom")}
	if _, err := New(store, "").Publish(context.Background(), testBundle("p1", "a", "1.0.0")); err == nil {
		t.Fatal("Publish() err = nil; want error")
	}
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	store := &memStore{objects: map[string]object{}}
	p := New(store, "public, max-age=60")
	for _, b := range []*show.Bundle{
		testBundle("p1", "a", "1.0.0"),
		testBundle("p1", "b", "1.0.0"),
		testBundle("p10", "a", "1.0.0"),
	} {
		if _, err := p.Publish(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	n, err := p.Purge(ctx, "p1")
	if err != nil || n != 2 {
		t.Fatalf("Purge() = %d, %v; want 2", n, err)
	}
	if _, ok := store.objects["p10/a.json"]; !ok {
		t.Errorf("p10/a.json should survive purge of p1")
	}
}
