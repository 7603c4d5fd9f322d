package importer

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/igolaizola/lightshow/pkg/show"
	"github.com/igolaizola/lightshow/pkg/storage"
	"github.com/oklog/ulid/v2"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string
	Input  string
}

// Run imports a project manifest into the datastore.
func Run(ctx context.Context, cfg *Config) error {
	log.Println("import: started")
	defer log.Println("import: ended")

	b, err := os.ReadFile(cfg.Input)
	if err != nil {
		return fmt.Errorf("import: couldn't read input file: %w", err)
	}
	m, err := Parse(cfg.Input, b)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("import: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("import: couldn't start orm store: %w", err)
	}
	defer func() { _ = store.Stop() }()

	id, err := Import(ctx, store, m, cfg.Debug)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

// Import validates the manifest and writes it to the store. It returns the
// project id, generated when the manifest doesn't set one.
func Import(ctx context.Context, store *storage.Store, m *Manifest, debugMode bool) (string, error) {
	debug := func(format string, args ...interface{}) {
		if !debugMode {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	if m.Project.Name == "" {
		return "", fmt.Errorf("import: project name not set")
	}
	project := &storage.Project{
		ID:        orNew(m.Project.ID),
		Name:      m.Project.Name,
		ConcertID: m.Project.ConcertID,
	}

	// Lookup by id or name
	sectionIDs := map[string]string{}
	var sections []*storage.Section
	for _, v := range m.Sections {
		if v.Name == "" {
			return "", fmt.Errorf("import: section name not set")
		}
		s := &storage.Section{
			ID:           orNew(v.ID),
			ProjectID:    project.ID,
			Name:         v.Name,
			DisplayOrder: v.DisplayOrder,
			Active:       !v.Inactive,
		}
		sectionIDs[s.ID] = s.ID
		sectionIDs[s.Name] = s.ID
		sections = append(sections, s)
	}
	songIDs := map[string]string{}
	var songs []*storage.Song
	for i, v := range m.Songs {
		if v.Name == "" {
			return "", fmt.Errorf("import: song name not set")
		}
		position := v.Position
		if position == 0 {
			position = i + 1
		}
		s := &storage.Song{
			ID:        orNew(v.ID),
			ProjectID: project.ID,
			Name:      v.Name,
			Artist:    v.Artist,
			Position:  position,
			Duration:  v.DurationSeconds,
		}
		songIDs[s.ID] = s.ID
		songIDs[s.Name] = s.ID
		songs = append(songs, s)
	}

	var sequences []*storage.Sequence
	for _, v := range m.Sequences {
		songID, ok := songIDs[v.Song]
		if !ok {
			return "", fmt.Errorf("import: sequence references unknown song %q", v.Song)
		}
		sectionID, ok := sectionIDs[v.Section]
		if !ok {
			return "", fmt.Errorf("import: sequence references unknown section %q", v.Section)
		}
		mode, err := show.ParseMode(v.Mode)
		if err != nil {
			return "", fmt.Errorf("import: sequence %s/%s: %w", v.Song, v.Section, err)
		}
		blocks := append([]show.ColorBlock{}, v.Blocks...)
		sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Start < blocks[j].Start })
		if err := show.ValidateBlocks(blocks); err != nil {
			return "", fmt.Errorf("import: sequence %s/%s: %w", v.Song, v.Section, err)
		}
		sequences = append(sequences, &storage.Sequence{
			SongID:        songID,
			SectionID:     sectionID,
			Mode:          string(mode),
			StrobeSpeedMs: v.StrobeSpeedMs,
			Blocks:        blocks,
		})
	}

	err := store.Transaction(ctx, func(tx *storage.Store) error {
		// Re-imports replace the previous contents of the project
		if err := tx.DeleteProject(ctx, project.ID); err != nil {
			return fmt.Errorf("import: couldn't clear project: %w", err)
		}
		if err := tx.SetProject(ctx, project); err != nil {
			return fmt.Errorf("import: couldn't set project: %w", err)
		}
		for _, v := range sections {
			if err := tx.SetSection(ctx, v); err != nil {
				return fmt.Errorf("import: couldn't set section %s: %w", v.Name, err)
			}
			debug("import: section %s %s", v.ID, v.Name)
		}
		for _, v := range songs {
			if err := tx.SetSong(ctx, v); err != nil {
				return fmt.Errorf("import: couldn't set song %s: %w", v.Name, err)
			}
			debug("import: song %s %s", v.ID, v.Name)
		}
		for _, v := range sequences {
			if err := tx.SetSequence(ctx, v); err != nil {
				return fmt.Errorf("import: couldn't set sequence %s/%s: %w", v.SongID, v.SectionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	log.Printf("import: project %s with %d sections, %d songs and %d sequences\n", project.ID, len(sections), len(songs), len(sequences))
	return project.ID, nil
}

func orNew(id string) string {
	if id != "" {
		return id
	}
	return ulid.Make().String()
}
