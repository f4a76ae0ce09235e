package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kilupskalvis/dbdiff/internal/adapter"
	"github.com/kilupskalvis/dbdiff/internal/config"
	"github.com/kilupskalvis/dbdiff/internal/models"
	"github.com/kilupskalvis/dbdiff/internal/store"
)

// ErrNoProject is returned when a command needs a project and none is selected.
var ErrNoProject = errors.New("no project selected (use \"dbdiff project use <name>\")")

// ErrInvalidProject is returned when a project fails validation.
var ErrInvalidProject = errors.New("invalid project")

// DefaultProjectColor is assigned to projects created without a color.
const DefaultProjectColor = "blue"

// openAdapter is swapped in tests.
var openAdapter = adapter.Open

// normalizeProject canonicalizes the RDBMS name, defaulting to mysql, and
// validates the result.
func normalizeProject(p *models.Project) error {
	if p.RDBMS == "" {
		p.RDBMS = models.RDBMSMySQL
	}
	rdbms, err := models.ParseRDBMS(string(p.RDBMS))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProject, err)
	}
	p.RDBMS = rdbms
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProject, err)
	}
	return nil
}

// CreateProject validates and stores a new project, assigning its ID.
func CreateProject(st *store.Store, p *models.Project) error {
	if err := normalizeProject(p); err != nil {
		return err
	}

	existing, err := st.ListProjects()
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Name == p.Name {
			return fmt.Errorf("project '%s' already exists", p.Name)
		}
	}

	if p.ID == "" {
		p.ID = models.NewID()
	}
	if p.Color == "" {
		p.Color = DefaultProjectColor
	}
	return st.InsertProject(p)
}

// UpdateProject validates and replaces a stored project.
func UpdateProject(st *store.Store, p *models.Project) error {
	if err := normalizeProject(p); err != nil {
		return err
	}
	return st.UpdateProject(p)
}

// DeleteProject removes a project and its snapshots, clearing it as the
// current project when selected.
func DeleteProject(cfg *config.Config, st *store.Store, id string) error {
	if err := st.DeleteProject(id); err != nil {
		return err
	}
	if cfg != nil && cfg.CurrentProject == id {
		cfg.CurrentProject = ""
		return cfg.Save()
	}
	return nil
}

// ResolveProject finds a project by ID, name, or unique ID prefix.
func ResolveProject(st *store.Store, ref string) (*models.Project, error) {
	projects, err := st.ListProjects()
	if err != nil {
		return nil, err
	}

	var matches []*models.Project
	for _, p := range projects {
		if p.ID == ref || p.Name == ref {
			return p, nil
		}
		if strings.HasPrefix(p.ID, ref) {
			matches = append(matches, p)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("project %s: %w", ref, store.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous project '%s' matches %d projects", ref, len(matches))
	}
}

// SelectProject makes the referenced project current.
func SelectProject(cfg *config.Config, st *store.Store, ref string) (*models.Project, error) {
	p, err := ResolveProject(st, ref)
	if err != nil {
		return nil, err
	}
	cfg.CurrentProject = p.ID
	if err := cfg.Save(); err != nil {
		return nil, err
	}
	return p, nil
}

// CurrentProject returns the selected project.
func CurrentProject(cfg *config.Config, st *store.Store) (*models.Project, error) {
	if cfg.CurrentProject == "" {
		return nil, ErrNoProject
	}
	p, err := st.GetProject(cfg.CurrentProject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("selected project %s no longer exists: %w", cfg.CurrentProject, ErrNoProject)
	}
	return p, err
}

// TestConnection opens the project's database and pings it.
func TestConnection(ctx context.Context, p *models.Project) error {
	a, err := openAdapter(p)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Ping(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", p.Name, err)
	}
	return nil
}
