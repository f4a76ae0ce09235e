package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kilupskalvis/dbdiff/internal/models"
	bolt "go.etcd.io/bbolt"
)

func tableSnapshotPrefix(snapshotID string) []byte {
	return []byte(snapshotID + "/")
}

func tableSnapshotKey(snapshotID, tableName string) []byte {
	return []byte(snapshotID + "/" + tableName)
}

// ListSnapshotSummaries returns a project's snapshots, newest first.
func (s *Store) ListSnapshotSummaries(projectID string) ([]*models.SnapshotSummary, error) {
	var summaries []*models.SnapshotSummary

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshotSummaries)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var summary models.SnapshotSummary
			if err := json.Unmarshal(v, &summary); err != nil {
				return fmt.Errorf("unmarshal snapshot summary: %w", err)
			}
			if summary.ProjectID == projectID {
				summaries = append(summaries, &summary)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	return summaries, nil
}

// GetSnapshotSummary retrieves a snapshot by ID. Returns ErrNotFound if it does not exist.
func (s *Store) GetSnapshotSummary(id string) (*models.SnapshotSummary, error) {
	var summary models.SnapshotSummary

	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketSnapshotSummaries)
		if err != nil {
			return err
		}
		ok, err := getJSON(b, id, &summary)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

// ResolveSnapshotID expands a unique ID prefix of one of the project's
// snapshots into its full ID.
func (s *Store) ResolveSnapshotID(projectID, prefix string) (string, error) {
	summaries, err := s.ListSnapshotSummaries(projectID)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, summary := range summaries {
		if summary.ID == prefix {
			return summary.ID, nil
		}
		if strings.HasPrefix(summary.ID, prefix) {
			matches = append(matches, summary.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("snapshot %s: %w", prefix, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous snapshot id '%s' matches %d snapshots", prefix, len(matches))
	}
}

// InsertSnapshotSummary stores a new snapshot summary.
func (s *Store) InsertSnapshotSummary(summary *models.SnapshotSummary) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketSnapshotSummaries)
		if err != nil {
			return err
		}
		if b.Get([]byte(summary.ID)) != nil {
			return fmt.Errorf("snapshot '%s' already exists", summary.ID)
		}
		return putJSON(b, summary.ID, summary)
	})
}

// RenameSnapshot changes the display name of a snapshot.
func (s *Store) RenameSnapshot(id, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketSnapshotSummaries)
		if err != nil {
			return err
		}

		var summary models.SnapshotSummary
		ok, err := getJSON(b, id, &summary)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
		}

		summary.Name = name
		return putJSON(b, id, &summary)
	})
}

// DeleteSnapshot removes a snapshot with its captured tables, dump configs,
// progress record and every diff it takes part in.
func (s *Store) DeleteSnapshot(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketSnapshotSummaries)
		if err != nil {
			return err
		}
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
		}
		return deleteSnapshot(tx, id)
	})
}

func deleteSnapshot(tx *bolt.Tx, id string) error {
	tables, err := bucket(tx, bucketTableSnapshots)
	if err != nil {
		return err
	}

	// Collect first: deleting while iterating a cursor skips keys.
	var keys [][]byte
	prefix := tableSnapshotPrefix(id)
	c := tables.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, bytes.Clone(k))
	}
	for _, k := range keys {
		if err := tables.Delete(k); err != nil {
			return fmt.Errorf("delete table snapshot %s: %w", k, err)
		}
	}

	for _, name := range [][]byte{bucketDumpConfigs, bucketSnapshotResults, bucketSnapshotSummaries} {
		b, err := bucket(tx, name)
		if err != nil {
			return err
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
	}

	return deleteDiffsOf(tx, id)
}

// InsertTableSnapshot stores one captured table of a snapshot.
func (s *Store) InsertTableSnapshot(snapshotID string, ts *models.TableSnapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketTableSnapshots)
		if err != nil {
			return err
		}

		data, err := json.Marshal(ts)
		if err != nil {
			return fmt.Errorf("marshal table snapshot %s: %w", ts.TableName, err)
		}
		return b.Put(tableSnapshotKey(snapshotID, ts.TableName), data)
	})
}

// FindTableSnapshots returns every captured table of a snapshot ordered by
// table name.
func (s *Store) FindTableSnapshots(snapshotID string) ([]*models.TableSnapshot, error) {
	var tables []*models.TableSnapshot

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTableSnapshots)
		if b == nil {
			return nil
		}

		prefix := tableSnapshotPrefix(snapshotID)
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var ts models.TableSnapshot
			if err := json.Unmarshal(v, &ts); err != nil {
				return fmt.Errorf("unmarshal table snapshot %s: %w", k, err)
			}
			tables = append(tables, &ts)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tables, nil
}
