package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kilupskalvis/dbdiff/internal/models"
	_ "modernc.org/sqlite"
)

// SQLite reads tables of a SQLite database file.
type SQLite struct {
	db *sql.DB
}

var _ Adapter = (*SQLite)(nil)

// OpenSQLite opens an existing database file.
func OpenSQLite(path string) (*SQLite, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Ping checks that the file can be opened and read.
func (s *SQLite) Ping(ctx context.Context) error {
	var n int
	return s.db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// TableSchemas reads user tables from sqlite_master and their columns from
// table_info. Key columns follow their position in the primary key.
func (s *SQLite) TableSchemas(ctx context.Context) ([]models.TableSchema, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read tables: %w", err)
	}

	schemas := make([]models.TableSchema, 0, len(tables))
	for _, table := range tables {
		schema, err := s.tableSchema(ctx, table)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}

	return withPrimaryKey(schemas), nil
}

func (s *SQLite) tableSchema(ctx context.Context, table string) (models.TableSchema, error) {
	schema := models.TableSchema{TableName: table}

	rows, err := s.db.QueryContext(ctx, "SELECT name, type, pk FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return schema, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	type keyCol struct {
		pos int
		col models.ColumnSchema
	}
	var keys []keyCol

	for rows.Next() {
		var name, dataType string
		var pk int
		if err := rows.Scan(&name, &dataType, &pk); err != nil {
			return schema, fmt.Errorf("scan column of %s: %w", table, err)
		}
		col := models.ColumnSchema{Name: name, DataType: strings.ToUpper(dataType)}
		if pk > 0 {
			keys = append(keys, keyCol{pos: pk, col: col})
		} else {
			schema.Cols = append(schema.Cols, col)
		}
	}
	if err := rows.Err(); err != nil {
		return schema, fmt.Errorf("read columns of %s: %w", table, err)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].pos < keys[j].pos })
	for _, k := range keys {
		schema.PrimaryCols = append(schema.PrimaryCols, k.col)
	}

	return schema, nil
}

// DumpConfigs returns the default policy of every table.
func (s *SQLite) DumpConfigs(ctx context.Context) ([]models.DumpConfig, error) {
	schemas, err := s.TableSchemas(ctx)
	if err != nil {
		return nil, err
	}
	return defaultDumpConfigs(schemas), nil
}

// RowSnapshots reads rows of one table.
func (s *SQLite) RowSnapshots(ctx context.Context, schema models.TableSchema, cfg models.DumpConfig, limit int) ([]models.RowSnapshot, error) {
	query := selectQuery(schema, cfg, limit, quoteSQLite, func(c models.ColumnSchema) string {
		return quoteSQLite(c.Name)
	})
	return scanRows(ctx, s.db, query, schema, sqliteValue)
}

func quoteSQLite(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// sqliteKind classifies a declared column type by affinity. Columns without a
// declared type are classified by the stored value instead.
func sqliteKind(declType string, raw any) string {
	t := strings.ToUpper(declType)
	switch {
	case t == "":
		switch raw.(type) {
		case int64, float64:
			return models.KindNumber
		case []byte:
			return models.KindBinary
		default:
			return models.KindString
		}
	case strings.Contains(t, "JSON"):
		return models.KindJSON
	case strings.Contains(t, "BOOL"), strings.Contains(t, "BIT"):
		return models.KindBit
	case strings.Contains(t, "INT"):
		return models.KindNumber
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return models.KindString
	case strings.Contains(t, "BLOB"):
		return models.KindBinary
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"),
		strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return models.KindNumber
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return models.KindDate
	default:
		return models.KindParseError
	}
}

// sqliteValue maps a SQLite cell to a value following the column's affinity.
func sqliteValue(declType string, raw any) models.ColumnValue {
	kind := sqliteKind(declType, raw)

	if kind == models.KindBit {
		if n, ok := raw.(int64); ok {
			return models.BitValue(strconv.FormatInt(n, 2))
		}
	}

	var s string
	switch v := raw.(type) {
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = "0"
		if v {
			s = "1"
		}
	case time.Time:
		s = v.Format(time.DateTime)
	default:
		var ok bool
		if s, ok = text(raw); !ok {
			return models.ParseErrorValue{}
		}
	}

	switch kind {
	case models.KindNumber:
		return models.NumberValue(s)
	case models.KindBit:
		return models.BitValue(s)
	case models.KindString:
		return models.StringValue(s)
	case models.KindDate:
		return models.DateValue(s)
	case models.KindBinary:
		return models.BinaryValue(s)
	case models.KindJSON:
		return models.JSONValue(s)
	default:
		return models.ParseErrorValue{}
	}
}
