package models

import (
	"encoding/json"
	"fmt"
)

// DiffStatus classifies one cell of a row diff.
type DiffStatus string

const (
	// StatusNone means the column did not exist in this side's row.
	StatusNone    DiffStatus = "none"
	StatusStay    DiffStatus = "stay"
	StatusAdded   DiffStatus = "added"
	StatusDeleted DiffStatus = "deleted"
)

// ColDiff is the verdict for one column of one row on one side. It can only
// be built by NoValue, Stay, Added and Deleted; the zero value is NoValue.
type ColDiff struct {
	status DiffStatus
	value  ColumnValue
}

// NoValue is the verdict for a column missing from this side's schema.
func NoValue() ColDiff { return ColDiff{} }

// Stay is the verdict for a value identical on both sides.
func Stay(v ColumnValue) ColDiff { return withValue(StatusStay, v) }

// Added is the verdict for a value present only on, or changed on, the after side.
func Added(v ColumnValue) ColDiff { return withValue(StatusAdded, v) }

// Deleted is the verdict for a value present only on, or changed from, the before side.
func Deleted(v ColumnValue) ColDiff { return withValue(StatusDeleted, v) }

func withValue(status DiffStatus, v ColumnValue) ColDiff {
	if v == nil {
		panic("models: " + string(status) + " verdict without a value")
	}
	return ColDiff{status: status, value: v}
}

// Status returns the verdict kind.
func (d ColDiff) Status() DiffStatus {
	if d.status == "" {
		return StatusNone
	}
	return d.status
}

// Value returns the captured value, or nil for NoValue.
func (d ColDiff) Value() ColumnValue { return d.value }

// Equal reports whether both verdicts have the same kind and value.
func (d ColDiff) Equal(other ColDiff) bool {
	return d.Status() == other.Status() && d.value == other.value
}

type colDiffJSON struct {
	Status DiffStatus `json:"status"`
	Value  *valueJSON `json:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (d ColDiff) MarshalJSON() ([]byte, error) {
	out := colDiffJSON{Status: d.Status()}
	if d.value != nil {
		v := encodeValue(d.value)
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *ColDiff) UnmarshalJSON(data []byte) error {
	var in colDiffJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Status {
	case StatusNone:
		*d = NoValue()
		return nil
	case StatusStay, StatusAdded, StatusDeleted:
		if in.Value == nil {
			return fmt.Errorf("col diff %q without value", in.Status)
		}
		*d = withValue(in.Status, decodeValue(*in.Value))
		return nil
	default:
		return fmt.Errorf("unknown col diff status %q", in.Status)
	}
}

// RowDiffs maps a primary key display value to the verdict of every column.
type RowDiffs map[string]map[string]ColDiff

// TableDiff is the diff of one table between two snapshots.
type TableDiff struct {
	TableName      string       `json:"table_name"`
	PrimaryKeys    []PrimaryKey `json:"primary_keys"`
	PrimaryColName string       `json:"primary_col_name"`
	ColNames       []string     `json:"col_names"`
	RowDiffs1      RowDiffs     `json:"row_diffs1"`
	RowDiffs2      RowDiffs     `json:"row_diffs2"`
}

// IsEmpty reports whether both captures are identical for this table.
func (t *TableDiff) IsEmpty() bool {
	return len(t.RowDiffs1) == 0 && len(t.RowDiffs2) == 0
}

// SnapshotDiff is the result of comparing two snapshots.
type SnapshotDiff struct {
	ID          string       `json:"id"`
	SnapshotID1 string       `json:"snapshot_id1"`
	SnapshotID2 string       `json:"snapshot_id2"`
	TableDiffs  []*TableDiff `json:"table_diffs"`
}

// NewSnapshotDiff aggregates already filtered table diffs.
func NewSnapshotDiff(id, snapshotID1, snapshotID2 string, tableDiffs []*TableDiff) *SnapshotDiff {
	if tableDiffs == nil {
		tableDiffs = []*TableDiff{}
	}
	return &SnapshotDiff{
		ID:          id,
		SnapshotID1: snapshotID1,
		SnapshotID2: snapshotID2,
		TableDiffs:  tableDiffs,
	}
}

// ShortID returns the first 8 characters of the diff ID.
func (d *SnapshotDiff) ShortID() string {
	if len(d.ID) > 8 {
		return d.ID[:8]
	}
	return d.ID
}
