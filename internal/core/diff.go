// Package core implements the domain logic for dbdiff including
// snapshot capture, table diff computation, and project management.
package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kilupskalvis/dbdiff/internal/config"
	"github.com/kilupskalvis/dbdiff/internal/models"
	"github.com/kilupskalvis/dbdiff/internal/store"
	"golang.org/x/sync/errgroup"
)

// ErrDiffNotCreated is returned when no diff is stored for a snapshot pair.
var ErrDiffNotCreated = errors.New("snapshot diff not created")

// rowIndex is one side's lookup from primary key to row hash and columns.
type rowIndex map[string]indexedRow

type indexedRow struct {
	hash string
	cols map[string]models.ColumnValue
	// order of the row's own columns, used when every column is emitted
	names []string
}

func newRowIndex(ts *models.TableSnapshot) rowIndex {
	idx := make(rowIndex, len(ts.Rows))
	for i := range ts.Rows {
		row := &ts.Rows[i]
		cols := make(map[string]models.ColumnValue, len(ts.ColNames))
		for _, c := range row.Columns(ts.ColNames) {
			cols[c.Name] = c.Value
		}
		idx[row.PrimaryKey.Key()] = indexedRow{hash: row.Hash, cols: cols, names: ts.ColNames}
	}
	return idx
}

// all classifies every column of the row with the same verdict constructor.
func (r indexedRow) all(verdict func(models.ColumnValue) models.ColDiff) map[string]models.ColDiff {
	out := make(map[string]models.ColDiff, len(r.names))
	for _, name := range r.names {
		out[name] = verdict(r.cols[name])
	}
	return out
}

// CreateTableDiff compares two captures of one table. Either side may be nil
// when the table exists in only one capture, but not both.
func CreateTableDiff(ts1, ts2 *models.TableSnapshot) *models.TableDiff {
	switch {
	case ts1 != nil && ts2 != nil:
		return diffBoth(ts1, ts2)
	case ts2 != nil:
		return diffOneSide(ts2, 2)
	case ts1 != nil:
		return diffOneSide(ts1, 1)
	default:
		panic("core: CreateTableDiff called without any table snapshot")
	}
}

func diffBoth(ts1, ts2 *models.TableSnapshot) *models.TableDiff {
	td := &models.TableDiff{
		TableName:      ts1.TableName,
		PrimaryKeys:    MergePrimaryKeys(ts1, ts2),
		PrimaryColName: ts1.PrimaryColName,
		ColNames:       MergeColumnNames(ts1.ColNames, ts2.ColNames),
		RowDiffs1:      models.RowDiffs{},
		RowDiffs2:      models.RowDiffs{},
	}
	if td.PrimaryColName == "" {
		td.PrimaryColName = ts2.PrimaryColName
	}

	rows1 := newRowIndex(ts1)
	rows2 := newRowIndex(ts2)

	for _, pk := range td.PrimaryKeys {
		key := pk.Key()
		row1, ok1 := rows1[key]
		row2, ok2 := rows2[key]

		switch {
		case ok1 && ok2 && row1.hash == row2.hash:
			// Equal hashes are treated as equal rows.
			continue
		case ok2 && !ok1:
			td.RowDiffs2[pk.Display()] = row2.all(models.Added)
		case ok1 && !ok2:
			td.RowDiffs1[pk.Display()] = row1.all(models.Deleted)
		case ok1 && ok2:
			diff1, diff2 := classifyColumns(td.ColNames, row1, row2)
			td.RowDiffs1[pk.Display()] = diff1
			td.RowDiffs2[pk.Display()] = diff2
		}
	}

	return td
}

// classifyColumns produces both sides' verdicts for every merged column.
func classifyColumns(colNames []string, row1, row2 indexedRow) (map[string]models.ColDiff, map[string]models.ColDiff) {
	diff1 := make(map[string]models.ColDiff, len(colNames))
	diff2 := make(map[string]models.ColDiff, len(colNames))

	for _, name := range colNames {
		v1, has1 := row1.cols[name]
		v2, has2 := row2.cols[name]
		same := has1 && has2 && v1 == v2

		switch {
		case same:
			diff1[name] = models.Stay(v1)
		case has1:
			diff1[name] = models.Deleted(v1)
		default:
			diff1[name] = models.NoValue()
		}

		switch {
		case same:
			diff2[name] = models.Stay(v2)
		case has2:
			diff2[name] = models.Added(v2)
		default:
			diff2[name] = models.NoValue()
		}
	}

	return diff1, diff2
}

// diffOneSide handles a table present in only one capture: side 1 means the
// table disappeared, side 2 means it appeared.
func diffOneSide(ts *models.TableSnapshot, side int) *models.TableDiff {
	td := &models.TableDiff{
		TableName:      ts.TableName,
		PrimaryKeys:    MergePrimaryKeys(ts, nil),
		PrimaryColName: ts.PrimaryColName,
		ColNames:       ts.ColNames,
		RowDiffs1:      models.RowDiffs{},
		RowDiffs2:      models.RowDiffs{},
	}

	verdict, target := models.Deleted, td.RowDiffs1
	if side == 2 {
		verdict, target = models.Added, td.RowDiffs2
	}

	rows := newRowIndex(ts)
	for _, pk := range td.PrimaryKeys {
		if row, ok := rows[pk.Key()]; ok {
			target[pk.Display()] = row.all(verdict)
		}
	}

	return td
}

// DiffTables diffs every table seen in either capture, in ascending table
// name order, and drops tables that did not change. Up to workers tables are
// processed concurrently; the result order does not depend on scheduling.
func DiffTables(ctx context.Context, tables1, tables2 []*models.TableSnapshot, workers int) ([]*models.TableDiff, error) {
	if workers <= 0 {
		workers = config.DefaultDiffWorkers
	}

	byName1 := indexTables(tables1)
	byName2 := indexTables(tables2)

	names := make([]string, 0, len(byName1)+len(byName2))
	for name := range byName1 {
		names = append(names, name)
	}
	for name := range byName2 {
		if _, ok := byName1[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	results := make([]*models.TableDiff, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = CreateTableDiff(byName1[name], byName2[name])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	diffs := make([]*models.TableDiff, 0, len(results))
	for _, td := range results {
		if !td.IsEmpty() {
			diffs = append(diffs, td)
		}
	}
	return diffs, nil
}

// indexTables keys snapshots by table name; the first snapshot of a name wins.
func indexTables(tables []*models.TableSnapshot) map[string]*models.TableSnapshot {
	m := make(map[string]*models.TableSnapshot, len(tables))
	for _, ts := range tables {
		if _, ok := m[ts.TableName]; !ok {
			m[ts.TableName] = ts
		}
	}
	return m
}

// CreateSnapshotDiff compares two snapshots and stores the result. A diff
// already stored for the same pair is returned without recomputing it.
func CreateSnapshotDiff(ctx context.Context, st *store.Store, snapshotID1, snapshotID2 string, workers int) (*models.SnapshotDiff, error) {
	existing, err := st.FindSnapshotDiff(snapshotID1, snapshotID2)
	if err != nil {
		return nil, fmt.Errorf("find snapshot diff: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	for _, id := range []string{snapshotID1, snapshotID2} {
		if _, err := st.GetSnapshotSummary(id); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", id, err)
		}
	}

	tables1, err := st.FindTableSnapshots(snapshotID1)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", snapshotID1, err)
	}
	tables2, err := st.FindTableSnapshots(snapshotID2)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", snapshotID2, err)
	}

	tableDiffs, err := DiffTables(ctx, tables1, tables2, workers)
	if err != nil {
		return nil, err
	}

	diff := models.NewSnapshotDiff(models.NewID(), snapshotID1, snapshotID2, tableDiffs)
	if err := st.InsertSnapshotDiff(diff); err != nil {
		return nil, fmt.Errorf("save snapshot diff: %w", err)
	}

	return diff, nil
}

// FindSnapshotDiff returns the stored diff for a snapshot pair.
func FindSnapshotDiff(st *store.Store, snapshotID1, snapshotID2 string) (*models.SnapshotDiff, error) {
	diff, err := st.FindSnapshotDiff(snapshotID1, snapshotID2)
	if err != nil {
		return nil, err
	}
	if diff == nil {
		return nil, ErrDiffNotCreated
	}
	return diff, nil
}
