package store

import (
	"encoding/json"
	"fmt"

	"github.com/kilupskalvis/dbdiff/internal/models"
	bolt "go.etcd.io/bbolt"
)

// InsertDumpConfigs stores the dump configs a snapshot was taken with.
func (s *Store) InsertDumpConfigs(set *models.DumpConfigSet) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketDumpConfigs)
		if err != nil {
			return err
		}
		return putJSON(b, set.SnapshotID, set)
	})
}

// FindDumpConfigs returns the configs used for a snapshot. Returns (nil, nil) if none were saved.
func (s *Store) FindDumpConfigs(snapshotID string) (*models.DumpConfigSet, error) {
	var set *models.DumpConfigSet

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDumpConfigs)
		if b == nil {
			return nil
		}

		var found models.DumpConfigSet
		ok, err := getJSON(b, snapshotID, &found)
		if err != nil || !ok {
			return err
		}
		set = &found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return set, nil
}

// FindRecentDumpConfigs returns the most recently saved configs of a project.
// Returns (nil, nil) if the project has none.
func (s *Store) FindRecentDumpConfigs(projectID string) (*models.DumpConfigSet, error) {
	var recent *models.DumpConfigSet

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDumpConfigs)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var set models.DumpConfigSet
			if err := json.Unmarshal(v, &set); err != nil {
				return fmt.Errorf("unmarshal dump configs: %w", err)
			}
			if set.ProjectID != projectID {
				return nil
			}
			if recent == nil || set.CreatedAt.After(recent.CreatedAt) {
				recent = &set
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return recent, nil
}
