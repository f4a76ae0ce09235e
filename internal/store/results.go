package store

import (
	"github.com/kilupskalvis/dbdiff/internal/models"
	bolt "go.etcd.io/bbolt"
)

// PutSnapshotResult records the progress of a snapshot's dump.
func (s *Store) PutSnapshotResult(result *models.SnapshotResult) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketSnapshotResults)
		if err != nil {
			return err
		}
		return putJSON(b, result.SnapshotID, result)
	})
}

// FindSnapshotResult returns the progress of a snapshot's dump, or a queued
// result if nothing has been recorded yet.
func (s *Store) FindSnapshotResult(snapshotID string) (*models.SnapshotResult, error) {
	result := models.QueuedSnapshotResult(snapshotID)

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshotResults)
		if b == nil {
			return nil
		}
		_, err := getJSON(b, snapshotID, result)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
