package models

// ColDiffView is the presentation form of a ColDiff. A missing column
// renders as an empty object.
type ColDiffView struct {
	Status DiffStatus `json:"status,omitempty"`
	Value  string     `json:"value,omitempty"`
}

// TableDiffView is the presentation form of a TableDiff.
type TableDiffView struct {
	TableName      string                            `json:"tableName"`
	PrimaryColName string                            `json:"primaryColName"`
	PrimaryValues  []string                          `json:"primaryValues"`
	ColNames       []string                          `json:"colNames"`
	RowDiffs1      map[string]map[string]ColDiffView `json:"rowDiffs1"`
	RowDiffs2      map[string]map[string]ColDiffView `json:"rowDiffs2"`
}

// SnapshotDiffView is the presentation form of a SnapshotDiff.
type SnapshotDiffView struct {
	DiffID      string           `json:"diffId"`
	SnapshotID1 string           `json:"snapshotId1"`
	SnapshotID2 string           `json:"snapshotId2"`
	TableDiffs  []*TableDiffView `json:"tableDiffs"`
}

// View converts a ColDiff to its presentation form.
func (d ColDiff) View() ColDiffView {
	if d.value == nil {
		return ColDiffView{}
	}
	return ColDiffView{Status: d.status, Value: d.value.Display()}
}

func rowDiffsView(rows RowDiffs) map[string]map[string]ColDiffView {
	out := make(map[string]map[string]ColDiffView, len(rows))
	for key, cols := range rows {
		view := make(map[string]ColDiffView, len(cols))
		for name, d := range cols {
			view[name] = d.View()
		}
		out[key] = view
	}
	return out
}

// View converts a TableDiff to its presentation form.
func (t *TableDiff) View() *TableDiffView {
	values := make([]string, len(t.PrimaryKeys))
	for i, pk := range t.PrimaryKeys {
		values[i] = pk.Display()
	}
	colNames := t.ColNames
	if colNames == nil {
		colNames = []string{}
	}

	return &TableDiffView{
		TableName:      t.TableName,
		PrimaryColName: t.PrimaryColName,
		PrimaryValues:  values,
		ColNames:       colNames,
		RowDiffs1:      rowDiffsView(t.RowDiffs1),
		RowDiffs2:      rowDiffsView(t.RowDiffs2),
	}
}

// View converts a SnapshotDiff to its presentation form.
func (d *SnapshotDiff) View() *SnapshotDiffView {
	tables := make([]*TableDiffView, len(d.TableDiffs))
	for i, td := range d.TableDiffs {
		tables[i] = td.View()
	}
	return &SnapshotDiffView{
		DiffID:      d.ID,
		SnapshotID1: d.SnapshotID1,
		SnapshotID2: d.SnapshotID2,
		TableDiffs:  tables,
	}
}
