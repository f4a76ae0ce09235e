// Package store provides bbolt-based persistence for dbdiff.
// It manages projects, snapshots, captured tables, dump configs, dump progress
// and computed diffs using a single embedded bbolt database file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Bucket names used by the store.
var (
	bucketProjects          = []byte("projects")
	bucketSnapshotSummaries = []byte("snapshot_summaries")
	bucketTableSnapshots    = []byte("table_snapshots") // snapshot_id/table_name -> table
	bucketDumpConfigs       = []byte("dump_configs")
	bucketSnapshotResults   = []byte("snapshot_results")
	bucketSnapshotDiffs     = []byte("snapshot_diffs")
	bucketDiffIndex         = []byte("diff_index") // snapshot_id1:snapshot_id2 -> diff_id
)

// Store represents the bbolt database store.
type Store struct {
	db *bolt.DB
}

// New opens or creates a bbolt database at the given path.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Initialize creates all required buckets.
func (s *Store) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketProjects,
			bucketSnapshotSummaries,
			bucketTableSnapshots,
			bucketDumpConfigs,
			bucketSnapshotResults,
			bucketSnapshotDiffs,
			bucketDiffIndex,
		}
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// bucket returns a named bucket or an error naming it.
func bucket(tx *bolt.Tx, name []byte) (*bolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%s bucket not found", name)
	}
	return b, nil
}

func putJSON(b *bolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return b.Put([]byte(key), data)
}

// getJSON decodes the value at key into v. It reports false when the key is absent.
func getJSON(b *bolt.Bucket, key string, v any) (bool, error) {
	data := b.Get([]byte(key))
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}
