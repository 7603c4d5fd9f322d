package storage

import (
	"context"
	"errors"
	"fmt"
)

// NewVersionStore returns a store for the last published bundle version of
// each section.
func (s *Store) NewVersionStore() *VersionStore {
	return &VersionStore{store: s}
}

type VersionStore struct {
	store *Store
}

func versionKey(projectID, sectionID string) string {
	return fmt.Sprintf("bundle/%s/%s/version", projectID, sectionID)
}

// LastVersion returns an empty string if the section was never published.
func (v *VersionStore) LastVersion(ctx context.Context, projectID, sectionID string) (string, error) {
	setting, err := v.store.GetSetting(ctx, versionKey(projectID, sectionID))
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (v *VersionStore) SetVersion(ctx context.Context, projectID, sectionID, version string) error {
	return v.store.SetSetting(ctx, &Setting{
		ID:    versionKey(projectID, sectionID),
		Value: version,
	})
}
