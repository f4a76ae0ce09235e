package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kilupskalvis/dbdiff/internal/models"
	bolt "go.etcd.io/bbolt"
)

// ListProjects returns all projects sorted by name.
func (s *Store) ListProjects() ([]*models.Project, error) {
	var projects []*models.Project

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProjects)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var p models.Project
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("unmarshal project: %w", err)
			}
			projects = append(projects, &p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Name < projects[j].Name
	})

	return projects, nil
}

// GetProject retrieves a project by ID. Returns ErrNotFound if it does not exist.
func (s *Store) GetProject(id string) (*models.Project, error) {
	var project models.Project

	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketProjects)
		if err != nil {
			return err
		}
		ok, err := getJSON(b, id, &project)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &project, nil
}

// InsertProject stores a new project. Returns an error if the ID is taken.
func (s *Store) InsertProject(p *models.Project) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketProjects)
		if err != nil {
			return err
		}
		if b.Get([]byte(p.ID)) != nil {
			return fmt.Errorf("project '%s' already exists", p.ID)
		}
		return putJSON(b, p.ID, p)
	})
}

// UpdateProject replaces an existing project.
func (s *Store) UpdateProject(p *models.Project) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketProjects)
		if err != nil {
			return err
		}
		if b.Get([]byte(p.ID)) == nil {
			return fmt.Errorf("project %s: %w", p.ID, ErrNotFound)
		}
		return putJSON(b, p.ID, p)
	})
}

// DeleteProject removes a project together with all of its snapshots.
func (s *Store) DeleteProject(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketProjects)
		if err != nil {
			return err
		}
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("project %s: %w", id, ErrNotFound)
		}

		snapshotIDs, err := projectSnapshotIDs(tx, id)
		if err != nil {
			return err
		}
		for _, snapshotID := range snapshotIDs {
			if err := deleteSnapshot(tx, snapshotID); err != nil {
				return err
			}
		}

		return b.Delete([]byte(id))
	})
}

func projectSnapshotIDs(tx *bolt.Tx, projectID string) ([]string, error) {
	b, err := bucket(tx, bucketSnapshotSummaries)
	if err != nil {
		return nil, err
	}

	var ids []string
	err = b.ForEach(func(k, v []byte) error {
		var summary models.SnapshotSummary
		if err := json.Unmarshal(v, &summary); err != nil {
			return fmt.Errorf("unmarshal snapshot summary: %w", err)
		}
		if summary.ProjectID == projectID {
			ids = append(ids, summary.ID)
		}
		return nil
	})
	return ids, err
}
