package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kilupskalvis/dbdiff/internal/models"
	"github.com/kilupskalvis/dbdiff/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a new bbolt store in a temp directory for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.New(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Initialize())
	t.Cleanup(func() { st.Close() })
	return st
}

func num(v string) models.ColumnValue { return models.NumberValue(v) }
func str(v string) models.ColumnValue { return models.StringValue(v) }

func row(key []models.ColumnValue, values ...models.ColumnValue) models.RowSnapshot {
	return models.NewRowSnapshot(key, values)
}

func pk(values ...models.ColumnValue) models.PrimaryKey {
	return models.NewPrimaryKey(values...)
}

func users(colNames []string, rows ...models.RowSnapshot) *models.TableSnapshot {
	return models.NewTableSnapshot("user", "id", colNames, rows)
}

func TestCreateTableDiff_RowOnlyAfter(t *testing.T) {
	ts2 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John")))

	act := CreateTableDiff(nil, ts2)

	assert.Equal(t, []models.PrimaryKey{pk(num("1"))}, act.PrimaryKeys)
	assert.Empty(t, act.RowDiffs1)
	require.Len(t, act.RowDiffs2, 1)
	assert.Equal(t, models.Added(str("John")), act.RowDiffs2["1"]["name"])
	assert.Equal(t, "user", act.TableName)
	assert.Equal(t, "id", act.PrimaryColName)
}

func TestCreateTableDiff_RowOnlyBefore(t *testing.T) {
	ts1 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John")))

	act := CreateTableDiff(ts1, nil)

	assert.Equal(t, []models.PrimaryKey{pk(num("1"))}, act.PrimaryKeys)
	require.Len(t, act.RowDiffs1, 1)
	assert.Equal(t, models.Deleted(str("John")), act.RowDiffs1["1"]["name"])
	assert.Empty(t, act.RowDiffs2)
}

func TestCreateTableDiff_ValueChanged(t *testing.T) {
	ts1 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John")))
	ts2 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("Jane")))

	act := CreateTableDiff(ts1, ts2)

	assert.Equal(t, []models.PrimaryKey{pk(num("1"))}, act.PrimaryKeys)
	require.Len(t, act.RowDiffs1, 1)
	assert.Equal(t, models.Deleted(str("John")), act.RowDiffs1["1"]["name"])
	require.Len(t, act.RowDiffs2, 1)
	assert.Equal(t, models.Added(str("Jane")), act.RowDiffs2["1"]["name"])
}

func TestCreateTableDiff_StayColumns(t *testing.T) {
	ts1 := users([]string{"name", "age"}, row([]models.ColumnValue{num("1")}, str("John"), num("39")))
	ts2 := users([]string{"name", "age"}, row([]models.ColumnValue{num("1")}, str("John"), num("40")))

	act := CreateTableDiff(ts1, ts2)

	assert.Equal(t, models.Stay(str("John")), act.RowDiffs1["1"]["name"])
	assert.Equal(t, models.Stay(str("John")), act.RowDiffs2["1"]["name"])
	assert.Equal(t, models.Deleted(num("39")), act.RowDiffs1["1"]["age"])
	assert.Equal(t, models.Added(num("40")), act.RowDiffs2["1"]["age"])
}

func TestCreateTableDiff_SchemaDrift(t *testing.T) {
	ts1 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John")))
	ts2 := users([]string{"age"}, row([]models.ColumnValue{num("1")}, num("39")))

	act := CreateTableDiff(ts1, ts2)

	assert.Equal(t, []string{"name", "age"}, act.ColNames)
	assert.Equal(t, []models.PrimaryKey{pk(num("1"))}, act.PrimaryKeys)

	require.Len(t, act.RowDiffs1, 1)
	assert.Equal(t, models.Deleted(str("John")), act.RowDiffs1["1"]["name"])
	assert.Equal(t, models.NoValue(), act.RowDiffs1["1"]["age"])

	require.Len(t, act.RowDiffs2, 1)
	assert.Equal(t, models.NoValue(), act.RowDiffs2["1"]["name"])
	assert.Equal(t, models.Added(num("39")), act.RowDiffs2["1"]["age"])
}

func TestCreateTableDiff_SupersetBefore(t *testing.T) {
	ts1 := users([]string{"name"},
		row([]models.ColumnValue{num("1")}, str("John")),
		row([]models.ColumnValue{num("2")}, str("Jack")),
	)
	ts2 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John")))

	act := CreateTableDiff(ts1, ts2)

	assert.Equal(t, []models.PrimaryKey{pk(num("1")), pk(num("2"))}, act.PrimaryKeys)
	require.Len(t, act.RowDiffs1, 1)
	assert.Equal(t, models.Deleted(str("Jack")), act.RowDiffs1["2"]["name"])
	assert.Empty(t, act.RowDiffs2)
}

func TestCreateTableDiff_SupersetAfter(t *testing.T) {
	ts1 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John")))
	ts2 := users([]string{"name"},
		row([]models.ColumnValue{num("1")}, str("John")),
		row([]models.ColumnValue{num("2")}, str("Jack")),
	)

	act := CreateTableDiff(ts1, ts2)

	assert.Equal(t, []models.PrimaryKey{pk(num("1")), pk(num("2"))}, act.PrimaryKeys)
	assert.Empty(t, act.RowDiffs1)
	require.Len(t, act.RowDiffs2, 1)
	assert.Equal(t, models.Added(str("Jack")), act.RowDiffs2["2"]["name"])
}

func TestCreateTableDiff_ChangedAndRemoved(t *testing.T) {
	ts1 := users([]string{"name"},
		row([]models.ColumnValue{num("1")}, str("John")),
		row([]models.ColumnValue{num("2")}, str("Jack")),
	)
	ts2 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("Jane")))

	act := CreateTableDiff(ts1, ts2)

	assert.Len(t, act.RowDiffs1, 2)
	assert.Equal(t, models.Deleted(str("John")), act.RowDiffs1["1"]["name"])
	assert.Equal(t, models.Deleted(str("Jack")), act.RowDiffs1["2"]["name"])
	assert.Len(t, act.RowDiffs2, 1)
	assert.Equal(t, models.Added(str("Jane")), act.RowDiffs2["1"]["name"])
}

func TestCreateTableDiff_PrimaryKeyMismatch(t *testing.T) {
	ts1 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John")))
	ts2 := users([]string{"name"}, row([]models.ColumnValue{num("2")}, str("Jane")))

	act := CreateTableDiff(ts1, ts2)

	assert.Equal(t, []models.PrimaryKey{pk(num("1")), pk(num("2"))}, act.PrimaryKeys)
	assert.Equal(t, models.Deleted(str("John")), act.RowDiffs1["1"]["name"])
	assert.Equal(t, models.Added(str("Jane")), act.RowDiffs2["2"]["name"])
	assert.NotContains(t, act.RowDiffs1, "2")
	assert.NotContains(t, act.RowDiffs2, "1")
}

func TestCreateTableDiff_CompositeKey(t *testing.T) {
	ts2 := models.NewTableSnapshot("user", "id-code", []string{"name", "age"},
		[]models.RowSnapshot{row([]models.ColumnValue{num("123"), num("789")}, str("John"), num("39"))})

	act := CreateTableDiff(nil, ts2)

	assert.Equal(t, []models.PrimaryKey{pk(num("123"), num("789"))}, act.PrimaryKeys)
	assert.Equal(t, "id-code", act.PrimaryColName)
	assert.Empty(t, act.RowDiffs1)
	require.Len(t, act.RowDiffs2, 1)
	assert.Equal(t, map[string]models.ColDiff{
		"name": models.Added(str("John")),
		"age":  models.Added(num("39")),
	}, act.RowDiffs2["123-789"])
}

func TestCreateTableDiff_Identical(t *testing.T) {
	ts1 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John")))
	ts2 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John")))

	act := CreateTableDiff(ts1, ts2)
	assert.True(t, act.IsEmpty())
	assert.Equal(t, []models.PrimaryKey{pk(num("1"))}, act.PrimaryKeys)
}

func TestCreateTableDiff_EqualHashSkipsRow(t *testing.T) {
	r1 := row([]models.ColumnValue{num("1")}, str("John"))
	r2 := row([]models.ColumnValue{num("1")}, str("Jane"))
	r2.Hash = r1.Hash

	act := CreateTableDiff(users([]string{"name"}, r1), users([]string{"name"}, r2))

	assert.True(t, act.IsEmpty())
}

func TestCreateTableDiff_KeysSortedRegardlessOfArrival(t *testing.T) {
	ts1 := users([]string{"name"},
		row([]models.ColumnValue{num("3")}, str("c")),
		row([]models.ColumnValue{num("1")}, str("a")),
	)
	ts2 := users([]string{"name"},
		row([]models.ColumnValue{num("2")}, str("b")),
		row([]models.ColumnValue{num("1")}, str("a")),
	)

	act := CreateTableDiff(ts1, ts2)
	assert.Equal(t, []models.PrimaryKey{pk(num("1")), pk(num("2")), pk(num("3"))}, act.PrimaryKeys)

	again := CreateTableDiff(ts1, ts2)
	if d := cmp.Diff(act, again); d != "" {
		t.Errorf("repeated diff differs (-first +second):\n%s", d)
	}
}

func TestCreateTableDiff_BothNilPanics(t *testing.T) {
	assert.Panics(t, func() { CreateTableDiff(nil, nil) })
}

func TestDiffTables(t *testing.T) {
	ctx := context.Background()

	same1 := models.NewTableSnapshot("groups", "id", []string{"name"}, []models.RowSnapshot{row([]models.ColumnValue{num("1")}, str("admin"))})
	same2 := models.NewTableSnapshot("groups", "id", []string{"name"}, []models.RowSnapshot{row([]models.ColumnValue{num("1")}, str("admin"))})
	gone := models.NewTableSnapshot("archive", "id", []string{"note"}, []models.RowSnapshot{row([]models.ColumnValue{num("9")}, str("old"))})
	fresh := models.NewTableSnapshot("zeta", "id", []string{"note"}, []models.RowSnapshot{row([]models.ColumnValue{num("1")}, str("new"))})
	u1 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John")))
	u2 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("Jane")))

	diffs, err := DiffTables(ctx,
		[]*models.TableSnapshot{u1, same1, gone},
		[]*models.TableSnapshot{fresh, same2, u2},
		2,
	)
	require.NoError(t, err)

	var names []string
	for _, d := range diffs {
		names = append(names, d.TableName)
	}
	assert.Equal(t, []string{"archive", "user", "zeta"}, names)
	assert.Len(t, diffs[0].RowDiffs1, 1)
	assert.Empty(t, diffs[0].RowDiffs2)
	assert.Empty(t, diffs[2].RowDiffs1)
	assert.Len(t, diffs[2].RowDiffs2, 1)
}

func TestDiffTables_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	u1 := users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John")))
	_, err := DiffTables(ctx, []*models.TableSnapshot{u1}, nil, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func saveSnapshot(t *testing.T, st *store.Store, projectID string, tables ...*models.TableSnapshot) string {
	t.Helper()
	summary := &models.SnapshotSummary{ID: models.NewID(), ProjectID: projectID, Name: "snap", CreatedAt: time.Now()}
	require.NoError(t, st.InsertSnapshotSummary(summary))
	for _, ts := range tables {
		require.NoError(t, st.InsertTableSnapshot(summary.ID, ts))
	}
	return summary.ID
}

func TestCreateSnapshotDiff_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	id1 := saveSnapshot(t, st, "p1", users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John"))))
	id2 := saveSnapshot(t, st, "p1", users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("Jane"))))

	_, err := FindSnapshotDiff(st, id1, id2)
	assert.ErrorIs(t, err, ErrDiffNotCreated)

	first, err := CreateSnapshotDiff(ctx, st, id1, id2, 2)
	require.NoError(t, err)
	require.Len(t, first.TableDiffs, 1)
	assert.Equal(t, id1, first.SnapshotID1)
	assert.Equal(t, id2, first.SnapshotID2)

	second, err := CreateSnapshotDiff(ctx, st, id1, id2, 2)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	found, err := FindSnapshotDiff(st, id1, id2)
	require.NoError(t, err)
	assert.Equal(t, first, found)
}

func TestCreateSnapshotDiff_IdenticalSnapshots(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	id1 := saveSnapshot(t, st, "p1", users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John"))))
	id2 := saveSnapshot(t, st, "p1", users([]string{"name"}, row([]models.ColumnValue{num("1")}, str("John"))))

	diff, err := CreateSnapshotDiff(ctx, st, id1, id2, 0)
	require.NoError(t, err)
	assert.Empty(t, diff.TableDiffs)
}

func TestCreateSnapshotDiff_UnknownSnapshot(t *testing.T) {
	st := newTestStore(t)
	id1 := saveSnapshot(t, st, "p1")

	_, err := CreateSnapshotDiff(context.Background(), st, id1, "missing", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
