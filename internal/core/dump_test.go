package core

import (
	"context"
	"errors"
	"testing"

	"github.com/kilupskalvis/dbdiff/internal/adapter"
	"github.com/kilupskalvis/dbdiff/internal/config"
	"github.com/kilupskalvis/dbdiff/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userSchema() models.TableSchema {
	return models.TableSchema{
		TableName:   "user",
		PrimaryCols: []models.ColumnSchema{{Name: "id", DataType: "int"}},
		Cols: []models.ColumnSchema{
			{Name: "name", DataType: "varchar"},
			{Name: "updated_at", DataType: "datetime"},
		},
	}
}

func newShopAdapter(names ...string) *adapter.MockAdapter {
	a := adapter.NewMockAdapter()

	var rows []models.RowSnapshot
	for i, name := range names {
		rows = append(rows, row([]models.ColumnValue{num(string(rune('1' + i)))}, str(name), models.DateValue("2024-01-01")))
	}
	a.AddTable(userSchema(), rows...)
	a.AddTable(models.TableSchema{
		TableName:   "audit",
		PrimaryCols: []models.ColumnSchema{{Name: "id", DataType: "int"}},
		Cols:        []models.ColumnSchema{{Name: "msg", DataType: "text"}},
	}, row([]models.ColumnValue{num("1")}, str("boot")))
	a.AddTable(models.TableSchema{
		TableName: "nokey",
		Cols:      []models.ColumnSchema{{Name: "msg", DataType: "text"}},
	})
	return a
}

func testProject() *models.Project {
	return &models.Project{ID: "p1", Name: "shop", RDBMS: models.RDBMSMySQL, Host: "localhost", Schema: "shop"}
}

func TestDump_DefaultPolicies(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := newShopAdapter("John", "Jack")

	summary, err := Dump(ctx, st, a, testProject(), DumpRequest{Name: "first", RowLimit: 10})
	require.NoError(t, err)
	assert.Equal(t, "first", summary.Name)
	assert.Equal(t, "p1", summary.ProjectID)

	// audit has no update/create column and is ignored by default
	tables, err := st.FindTableSnapshots(summary.ID)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "user", tables[0].TableName)
	assert.Equal(t, "id", tables[0].PrimaryColName)
	assert.Equal(t, []string{"name", "updated_at"}, tables[0].ColNames)
	assert.Len(t, tables[0].Rows, 2)

	assert.Equal(t, "updated_at", a.Requests["user"].Value)
	assert.Equal(t, 10, a.Limits["user"])

	result, err := st.FindSnapshotResult(summary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResultComplete, result.Status)
	assert.Equal(t, 100, result.Percent)
	assert.Equal(t, 1, result.Done)
	assert.Equal(t, 1, result.Total)

	configs, err := SnapshotDumpConfigs(st, summary.ID)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "audit", configs[0].TableName)
	assert.Equal(t, "user", configs[1].TableName)
}

func TestDump_OverrideConfigs(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := newShopAdapter("John", "Jack", "Jill")

	summary, err := Dump(ctx, st, a, testProject(), DumpRequest{
		Configs: []models.DumpConfig{
			{TableName: "audit", Value: models.DumpLimited},
			{TableName: "user", Value: models.DumpIgnore},
			{TableName: "dropped", Value: models.DumpLimited},
		},
		RowLimit: 2,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, summary.Name)

	tables, err := st.FindTableSnapshots(summary.ID)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "audit", tables[0].TableName)
	assert.NotContains(t, a.Requests, "user")

	configs, err := SnapshotDumpConfigs(st, summary.ID)
	require.NoError(t, err)
	assert.Len(t, configs, 2, "configs for unknown tables are dropped")
}

func TestDump_RowLimit(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := newShopAdapter("John", "Jack", "Jill")

	summary, err := Dump(ctx, st, a, testProject(), DumpRequest{RowLimit: 2})
	require.NoError(t, err)

	tables, err := st.FindTableSnapshots(summary.ID)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Len(t, tables[0].Rows, 2)
}

func TestDump_DefaultRowLimit(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := newShopAdapter("John")

	_, err := Dump(ctx, st, a, testProject(), DumpRequest{})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultRowLimit, a.Limits["user"])
}

func TestDump_TableFailure(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := newShopAdapter("John")
	a.RowErr["user"] = errors.New("connection reset")

	summary, err := Dump(ctx, st, a, testProject(), DumpRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.NotNil(t, summary)

	result, err := st.FindSnapshotResult(summary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResultFailed, result.Status)
}

func TestDump_ThenDiff(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	before, err := Dump(ctx, st, newShopAdapter("John", "Jack"), testProject(), DumpRequest{})
	require.NoError(t, err)
	after, err := Dump(ctx, st, newShopAdapter("John", "Jane", "Jill"), testProject(), DumpRequest{})
	require.NoError(t, err)

	diff, err := CreateSnapshotDiff(ctx, st, before.ID, after.ID, 2)
	require.NoError(t, err)
	require.Len(t, diff.TableDiffs, 1)

	td := diff.TableDiffs[0]
	assert.Equal(t, "user", td.TableName)
	assert.Equal(t, []models.PrimaryKey{pk(num("1")), pk(num("2")), pk(num("3"))}, td.PrimaryKeys)
	assert.NotContains(t, td.RowDiffs1, "1")
	assert.Equal(t, models.Deleted(str("Jack")), td.RowDiffs1["2"]["name"])
	assert.Equal(t, models.Stay(models.DateValue("2024-01-01")), td.RowDiffs1["2"]["updated_at"])
	assert.Equal(t, models.Added(str("Jane")), td.RowDiffs2["2"]["name"])
	assert.Equal(t, models.Added(str("Jill")), td.RowDiffs2["3"]["name"])
}

func TestRecentDumpConfigs(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := newShopAdapter("John")

	configs, err := RecentDumpConfigs(ctx, st, a, "p1")
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, models.DumpIgnore, configs[0].Value)
	assert.Equal(t, "updated_at", configs[1].Value)

	_, err = Dump(ctx, st, a, testProject(), DumpRequest{
		Configs: []models.DumpConfig{{TableName: "audit", Value: "msg"}},
	})
	require.NoError(t, err)

	configs, err = RecentDumpConfigs(ctx, st, a, "p1")
	require.NoError(t, err)
	assert.Equal(t, "msg", configs[0].Value)
	assert.Equal(t, []string{"id", "msg"}, configs[0].ColNames)
	assert.Equal(t, "updated_at", configs[1].Value)
}

func TestSnapshotDumpConfigs_UnknownSnapshot(t *testing.T) {
	st := newTestStore(t)
	_, err := SnapshotDumpConfigs(st, "missing")
	assert.Error(t, err)
}
