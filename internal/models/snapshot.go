package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Separator used to join composite primary key names and display values.
const KeySeparator = "-"

// NewID generates a random identifier for projects, snapshots and diffs.
func NewID() string {
	return uuid.New().String()
}

// SnapshotSummary describes one capture of a project's tables.
type SnapshotSummary struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ShortID returns the first 8 characters of the snapshot ID.
func (s *SnapshotSummary) ShortID() string {
	if len(s.ID) > 8 {
		return s.ID[:8]
	}
	return s.ID
}

// PrimaryKey is the ordered tuple of values identifying a row.
type PrimaryKey struct {
	Values Values `json:"values"`
}

// NewPrimaryKey creates a PrimaryKey from its component values.
func NewPrimaryKey(values ...ColumnValue) PrimaryKey {
	return PrimaryKey{Values: values}
}

// Compare orders keys lexicographically by component.
func (k PrimaryKey) Compare(other PrimaryKey) int {
	n := min(len(k.Values), len(other.Values))
	for i := 0; i < n; i++ {
		if c := CompareValues(k.Values[i], other.Values[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(k.Values) < len(other.Values):
		return -1
	case len(k.Values) > len(other.Values):
		return 1
	}
	return 0
}

// Equal reports whether both keys hold the same values.
func (k PrimaryKey) Equal(other PrimaryKey) bool {
	return k.Compare(other) == 0
}

// Key returns an unambiguous encoding of the tuple for use as a map key.
func (k PrimaryKey) Key() string {
	var b strings.Builder
	for _, v := range k.Values {
		p := v.payload()
		b.WriteString(strconv.Itoa(v.rank()))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// Display joins the display form of every component.
// This is the row identifier shown to users and used in row diff maps.
func (k PrimaryKey) Display() string {
	parts := make([]string, len(k.Values))
	for i, v := range k.Values {
		parts[i] = v.Display()
	}
	return strings.Join(parts, KeySeparator)
}

// Column pairs a column name with its captured value.
type Column struct {
	Name  string
	Value ColumnValue
}

// RowSnapshot is one captured row.
type RowSnapshot struct {
	PrimaryKey PrimaryKey `json:"primary_key"`
	Values     Values     `json:"values"`
	Hash       string     `json:"hash"`
}

// NewRowSnapshot builds a row and its content hash over key columns first,
// then the remaining columns.
func NewRowSnapshot(keyValues, values []ColumnValue) RowSnapshot {
	parts := make([]string, 0, len(keyValues)+len(values))
	for _, v := range keyValues {
		parts = append(parts, v.HashPart())
	}
	for _, v := range values {
		parts = append(parts, v.HashPart())
	}

	return RowSnapshot{
		PrimaryKey: NewPrimaryKey(keyValues...),
		Values:     values,
		Hash:       md5Hex(strings.Join(parts, ",")),
	}
}

// Columns pairs the row's non-key values with colNames.
// The adapter guarantees both have the same length.
func (r *RowSnapshot) Columns(colNames []string) []Column {
	cols := make([]Column, len(colNames))
	for i, name := range colNames {
		cols[i] = Column{Name: name, Value: r.Values[i]}
	}
	return cols
}

// TableSnapshot is one captured table.
type TableSnapshot struct {
	TableName      string        `json:"table_name"`
	PrimaryColName string        `json:"primary_col_name"`
	ColNames       []string      `json:"col_names"`
	Hash           string        `json:"hash"`
	Rows           []RowSnapshot `json:"rows"`
}

// NewTableSnapshot builds a table snapshot and its aggregate hash.
func NewTableSnapshot(tableName, primaryColName string, colNames []string, rows []RowSnapshot) *TableSnapshot {
	var b strings.Builder
	b.WriteString(primaryColName)
	b.WriteString(strings.Join(colNames, ""))
	for _, row := range rows {
		b.WriteString(row.Hash)
	}

	return &TableSnapshot{
		TableName:      tableName,
		PrimaryColName: primaryColName,
		ColNames:       colNames,
		Hash:           md5Hex(b.String()),
		Rows:           rows,
	}
}

// PrimaryKeys returns the key of every row in capture order.
func (t *TableSnapshot) PrimaryKeys() []PrimaryKey {
	keys := make([]PrimaryKey, len(t.Rows))
	for i := range t.Rows {
		keys[i] = t.Rows[i].PrimaryKey
	}
	return keys
}

// PrimaryColumnName joins the names of a composite key.
func PrimaryColumnName(names []string) string {
	return strings.Join(names, KeySeparator)
}
