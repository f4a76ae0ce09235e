package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kilupskalvis/dbdiff/internal/models"
)

const defaultMySQLPort = "3306"

// MySQL reads tables of one MySQL schema.
type MySQL struct {
	db     *sql.DB
	schema string
}

var _ Adapter = (*MySQL)(nil)

// MySQLDSN builds the driver DSN for a project.
func MySQLDSN(p *models.Project) string {
	port := p.Port
	if port == "" {
		port = defaultMySQLPort
	}

	cfg := mysql.NewConfig()
	cfg.User = p.User
	cfg.Passwd = p.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(p.Host, port)
	cfg.DBName = p.Schema
	cfg.Timeout = 10 * time.Second
	return cfg.FormatDSN()
}

// OpenMySQL creates a connection pool for the project. No connection is made
// until the first query.
func OpenMySQL(p *models.Project) (*MySQL, error) {
	db, err := sql.Open("mysql", MySQLDSN(p))
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(4)
	return &MySQL{db: db, schema: p.Schema}, nil
}

// Ping checks the connection.
func (m *MySQL) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Close closes the connection pool.
func (m *MySQL) Close() error {
	return m.db.Close()
}

// TableSchemas reads column metadata from information_schema.
func (m *MySQL) TableSchemas(ctx context.Context) ([]models.TableSchema, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, COLUMN_KEY
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME, ORDINAL_POSITION
	`, m.schema)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var schemas []models.TableSchema
	for rows.Next() {
		var table, column, dataType, key string
		if err := rows.Scan(&table, &column, &dataType, &key); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}

		if len(schemas) == 0 || schemas[len(schemas)-1].TableName != table {
			schemas = append(schemas, models.TableSchema{TableName: table})
		}
		ts := &schemas[len(schemas)-1]
		col := models.ColumnSchema{Name: column, DataType: strings.ToLower(dataType)}
		if key == "PRI" {
			ts.PrimaryCols = append(ts.PrimaryCols, col)
		} else {
			ts.Cols = append(ts.Cols, col)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	return withPrimaryKey(schemas), nil
}

// DumpConfigs returns the default policy of every table.
func (m *MySQL) DumpConfigs(ctx context.Context) ([]models.DumpConfig, error) {
	schemas, err := m.TableSchemas(ctx)
	if err != nil {
		return nil, err
	}
	return defaultDumpConfigs(schemas), nil
}

// RowSnapshots reads rows of one table. Bit columns are selected through bin()
// so they arrive as binary digit strings.
func (m *MySQL) RowSnapshots(ctx context.Context, schema models.TableSchema, cfg models.DumpConfig, limit int) ([]models.RowSnapshot, error) {
	query := selectQuery(schema, cfg, limit, quoteMySQL, func(c models.ColumnSchema) string {
		if c.DataType == "bit" {
			return "bin(" + quoteMySQL(c.Name) + ")"
		}
		return quoteMySQL(c.Name)
	})
	return scanRows(ctx, m.db, query, schema, mysqlValue)
}

func quoteMySQL(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// mysqlValue maps a MySQL column type and its text protocol cell to a value.
func mysqlValue(dataType string, raw any) models.ColumnValue {
	s, ok := text(raw)
	if !ok {
		return models.ParseErrorValue{}
	}

	switch dataType {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint",
		"decimal", "numeric", "float", "double", "real":
		return models.NumberValue(s)
	case "bit":
		return models.BitValue(s)
	case "date", "datetime", "timestamp", "time", "year":
		return models.DateValue(s)
	case "char", "varchar", "tinytext", "text", "mediumtext", "longtext", "enum", "set":
		return models.StringValue(s)
	case "binary", "varbinary", "tinyblob", "blob", "mediumblob", "longblob":
		return models.BinaryValue(s)
	case "json":
		return models.JSONValue(s)
	default:
		return models.ParseErrorValue{}
	}
}

// withPrimaryKey drops tables that cannot be diffed row by row.
func withPrimaryKey(schemas []models.TableSchema) []models.TableSchema {
	kept := schemas[:0]
	for _, s := range schemas {
		if s.HasPrimaryKey() {
			kept = append(kept, s)
		}
	}
	return kept
}
