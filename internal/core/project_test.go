package core

import (
	"context"
	"errors"
	"testing"

	"github.com/kilupskalvis/dbdiff/internal/adapter"
	"github.com/kilupskalvis/dbdiff/internal/config"
	"github.com/kilupskalvis/dbdiff/internal/models"
	"github.com/kilupskalvis/dbdiff/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Initialize(t.TempDir())
	require.NoError(t, err)
	return cfg
}

func TestCreateProject(t *testing.T) {
	st := newTestStore(t)

	p := &models.Project{Name: "shop", RDBMS: "MySQL", Host: "localhost", Schema: "shop"}
	require.NoError(t, CreateProject(st, p))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, models.RDBMSMySQL, p.RDBMS)
	assert.Equal(t, DefaultProjectColor, p.Color)

	dup := &models.Project{Name: "shop", RDBMS: models.RDBMSSQLite, Schema: "/tmp/x.db"}
	assert.Error(t, CreateProject(st, dup))

	invalid := &models.Project{Name: "blog", RDBMS: models.RDBMSMySQL, Schema: "blog"}
	assert.Error(t, CreateProject(st, invalid), "mysql requires a host")

	unknown := &models.Project{Name: "blog", RDBMS: "oracle", Schema: "blog"}
	assert.ErrorIs(t, CreateProject(st, unknown), ErrInvalidProject)
}

func TestResolveProject(t *testing.T) {
	st := newTestStore(t)
	p := &models.Project{Name: "shop", RDBMS: models.RDBMSSQLite, Schema: "/tmp/shop.db"}
	require.NoError(t, CreateProject(st, p))

	byName, err := ResolveProject(st, "shop")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byName.ID)

	byPrefix, err := ResolveProject(st, p.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, p.ID, byPrefix.ID)

	_, err = ResolveProject(st, "blog")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSelectAndDeleteProject(t *testing.T) {
	st := newTestStore(t)
	cfg := newTestConfig(t)

	_, err := CurrentProject(cfg, st)
	assert.ErrorIs(t, err, ErrNoProject)

	p := &models.Project{Name: "shop", RDBMS: models.RDBMSSQLite, Schema: "/tmp/shop.db"}
	require.NoError(t, CreateProject(st, p))

	_, err = SelectProject(cfg, st, "shop")
	require.NoError(t, err)

	reloaded, err := config.LoadFrom(cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, p.ID, reloaded.CurrentProject)

	current, err := CurrentProject(cfg, st)
	require.NoError(t, err)
	assert.Equal(t, "shop", current.Name)

	require.NoError(t, DeleteProject(cfg, st, p.ID))
	assert.Empty(t, cfg.CurrentProject)
	_, err = CurrentProject(cfg, st)
	assert.ErrorIs(t, err, ErrNoProject)
}

func TestUpdateProject(t *testing.T) {
	st := newTestStore(t)
	p := &models.Project{Name: "shop", RDBMS: models.RDBMSSQLite, Schema: "/tmp/shop.db"}
	require.NoError(t, CreateProject(st, p))

	p.Schema = "/tmp/shop2.db"
	require.NoError(t, UpdateProject(st, p))

	got, err := st.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/shop2.db", got.Schema)

	p.Name = ""
	assert.ErrorIs(t, UpdateProject(st, p), ErrInvalidProject)
}

func TestUpdateProject_NormalizesRDBMS(t *testing.T) {
	st := newTestStore(t)
	p := &models.Project{Name: "shop", RDBMS: models.RDBMSSQLite, Schema: "/tmp/shop.db"}
	require.NoError(t, CreateProject(st, p))

	p.RDBMS = "MySQL"
	p.Host = "localhost"
	require.NoError(t, UpdateProject(st, p))

	got, err := st.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RDBMSMySQL, got.RDBMS)

	p.RDBMS = ""
	require.NoError(t, UpdateProject(st, p))
	got, err = st.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RDBMSMySQL, got.RDBMS)

	p.RDBMS = "oracle"
	assert.ErrorIs(t, UpdateProject(st, p), ErrInvalidProject)
	got, err = st.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RDBMSMySQL, got.RDBMS)
}

func TestCurrentProject_Stale(t *testing.T) {
	st := newTestStore(t)
	cfg := newTestConfig(t)

	p := &models.Project{Name: "shop", RDBMS: models.RDBMSSQLite, Schema: "/tmp/shop.db"}
	require.NoError(t, CreateProject(st, p))
	_, err := SelectProject(cfg, st, "shop")
	require.NoError(t, err)

	// Removed without the workspace config, as another process would.
	require.NoError(t, DeleteProject(nil, st, p.ID))
	assert.Equal(t, p.ID, cfg.CurrentProject)

	_, err = CurrentProject(cfg, st)
	assert.ErrorIs(t, err, ErrNoProject)
	assert.Contains(t, err.Error(), "no longer exists")
	assert.Contains(t, err.Error(), "dbdiff project use")
}

func TestTestConnection(t *testing.T) {
	mock := adapter.NewMockAdapter()
	orig := openAdapter
	openAdapter = func(*models.Project) (adapter.Adapter, error) { return mock, nil }
	t.Cleanup(func() { openAdapter = orig })

	p := testProject()
	require.NoError(t, TestConnection(context.Background(), p))
	assert.True(t, mock.Closed)

	mock.Err = errors.New("access denied")
	err := TestConnection(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestTestConnection_Unsupported(t *testing.T) {
	err := TestConnection(context.Background(), &models.Project{Name: "x", RDBMS: "oracle"})
	assert.ErrorIs(t, err, adapter.ErrUnsupportedRDBMS)
}
