// Package adapter reads table schemas and rows from target databases and
// turns them into captured snapshot values.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilupskalvis/dbdiff/internal/models"
)

// ErrUnsupportedRDBMS is returned by Open for an unknown database kind.
var ErrUnsupportedRDBMS = errors.New("unsupported rdbms")

// Adapter defines the contract for reading a target database.
// This interface enables mocking for testing the core package.
type Adapter interface {
	// Ping checks that the database is reachable with the project's credentials.
	Ping(ctx context.Context) error

	// DumpConfigs returns the default dump policy of every table with a primary key.
	DumpConfigs(ctx context.Context) ([]models.DumpConfig, error)

	// TableSchemas returns every table with a primary key, columns in ordinal order.
	TableSchemas(ctx context.Context) ([]models.TableSchema, error)

	// RowSnapshots reads up to limit rows of a table following cfg.
	RowSnapshots(ctx context.Context, schema models.TableSchema, cfg models.DumpConfig, limit int) ([]models.RowSnapshot, error)

	Close() error
}

// Open connects to the project's database.
func Open(p *models.Project) (Adapter, error) {
	switch p.RDBMS {
	case models.RDBMSMySQL:
		return OpenMySQL(p)
	case models.RDBMSSQLite:
		return OpenSQLite(p.Schema)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRDBMS, p.RDBMS)
	}
}

// defaultDumpConfigs derives each table's policy from all of its column names.
func defaultDumpConfigs(schemas []models.TableSchema) []models.DumpConfig {
	configs := make([]models.DumpConfig, 0, len(schemas))
	for _, schema := range schemas {
		all := schema.AllColumns()
		names := make([]string, len(all))
		for i, c := range all {
			names[i] = c.Name
		}
		configs = append(configs, models.InitDumpConfig(schema.TableName, names))
	}
	return models.SortDumpConfigs(configs)
}
