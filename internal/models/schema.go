package models

// ColumnSchema describes one column of a target table.
type ColumnSchema struct {
	Name     string
	DataType string
}

// TableSchema describes a target table split into key and non-key columns,
// each in ordinal order.
type TableSchema struct {
	TableName   string
	PrimaryCols []ColumnSchema
	Cols        []ColumnSchema
}

// HasPrimaryKey reports whether the table can be diffed row by row.
func (t *TableSchema) HasPrimaryKey() bool {
	return len(t.PrimaryCols) > 0
}

// ColumnNames returns the joined key column name and the non-key column names.
func (t *TableSchema) ColumnNames() (string, []string) {
	keys := make([]string, len(t.PrimaryCols))
	for i, c := range t.PrimaryCols {
		keys[i] = c.Name
	}
	cols := make([]string, len(t.Cols))
	for i, c := range t.Cols {
		cols[i] = c.Name
	}
	return PrimaryColumnName(keys), cols
}

// AllColumns returns key columns followed by non-key columns.
func (t *TableSchema) AllColumns() []ColumnSchema {
	all := make([]ColumnSchema, 0, len(t.PrimaryCols)+len(t.Cols))
	all = append(all, t.PrimaryCols...)
	return append(all, t.Cols...)
}
