package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kilupskalvis/dbdiff/internal/models"
)

// valueFunc converts one scanned cell of a column with the given declared type.
type valueFunc func(dataType string, raw any) models.ColumnValue

// selectQuery builds the dump query for a table. quote escapes identifiers and
// column renders a select expression for a column.
func selectQuery(schema models.TableSchema, cfg models.DumpConfig, limit int, quote func(string) string, column func(models.ColumnSchema) string) string {
	all := schema.AllColumns()
	exprs := make([]string, len(all))
	for i, c := range all {
		exprs[i] = column(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(exprs, ", "), quote(schema.TableName))
	if col := cfg.OrderBy(); col != "" {
		// Newest rows first so a row limit keeps recent changes.
		fmt.Fprintf(&b, " ORDER BY %s DESC", quote(col))
	}
	fmt.Fprintf(&b, " LIMIT %d", limit)
	return b.String()
}

// scanRows reads every row of query and builds the row snapshots, splitting
// key columns from the rest.
func scanRows(ctx context.Context, db *sql.DB, query string, schema models.TableSchema, convert valueFunc) ([]models.RowSnapshot, error) {
	slog.Debug("dump table", "table", schema.TableName, "query", query)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", schema.TableName, err)
	}
	defer rows.Close()

	all := schema.AllColumns()
	nKeys := len(schema.PrimaryCols)
	var snapshots []models.RowSnapshot

	for rows.Next() {
		raw := make([]any, len(all))
		ptrs := make([]any, len(all))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", schema.TableName, err)
		}

		values := make([]models.ColumnValue, len(all))
		for i, c := range all {
			if raw[i] == nil {
				values[i] = models.NullValue{}
				continue
			}
			values[i] = convert(c.DataType, raw[i])
		}
		snapshots = append(snapshots, models.NewRowSnapshot(values[:nKeys], values[nKeys:]))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", schema.TableName, err)
	}

	return snapshots, nil
}

// text renders a scanned driver value as the text form of the cell.
func text(raw any) (string, bool) {
	switch v := raw.(type) {
	case []byte:
		return string(v), true
	case string:
		return v, true
	default:
		return "", false
	}
}
