package store

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/kilupskalvis/dbdiff/internal/models"
	bolt "go.etcd.io/bbolt"
)

func diffIndexKey(snapshotID1, snapshotID2 string) string {
	return snapshotID1 + ":" + snapshotID2
}

// InsertSnapshotDiff stores a diff and indexes it by its ordered snapshot pair.
func (s *Store) InsertSnapshotDiff(diff *models.SnapshotDiff) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		diffs, err := bucket(tx, bucketSnapshotDiffs)
		if err != nil {
			return err
		}
		index, err := bucket(tx, bucketDiffIndex)
		if err != nil {
			return err
		}

		if err := putJSON(diffs, diff.ID, diff); err != nil {
			return err
		}
		return index.Put([]byte(diffIndexKey(diff.SnapshotID1, diff.SnapshotID2)), []byte(diff.ID))
	})
}

// FindSnapshotDiff returns the diff stored for the ordered snapshot pair.
// Returns (nil, nil) if none exists.
func (s *Store) FindSnapshotDiff(snapshotID1, snapshotID2 string) (*models.SnapshotDiff, error) {
	var diff *models.SnapshotDiff

	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(bucketDiffIndex)
		diffs := tx.Bucket(bucketSnapshotDiffs)
		if index == nil || diffs == nil {
			return nil
		}

		diffID := index.Get([]byte(diffIndexKey(snapshotID1, snapshotID2)))
		if diffID == nil {
			return nil
		}

		var found models.SnapshotDiff
		ok, err := getJSON(diffs, string(diffID), &found)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("diff index points at missing diff %s", diffID)
		}
		diff = &found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return diff, nil
}

// deleteDiffsOf removes every diff where the snapshot is either side.
func deleteDiffsOf(tx *bolt.Tx, snapshotID string) error {
	index, err := bucket(tx, bucketDiffIndex)
	if err != nil {
		return err
	}
	diffs, err := bucket(tx, bucketSnapshotDiffs)
	if err != nil {
		return err
	}

	var keys, diffIDs [][]byte
	err = index.ForEach(func(k, v []byte) error {
		id1, id2, _ := strings.Cut(string(k), ":")
		if id1 == snapshotID || id2 == snapshotID {
			keys = append(keys, bytes.Clone(k))
			diffIDs = append(diffIDs, bytes.Clone(v))
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i := range keys {
		if err := index.Delete(keys[i]); err != nil {
			return err
		}
		if err := diffs.Delete(diffIDs[i]); err != nil {
			return err
		}
	}
	return nil
}
