package adapter

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/dbdiff/internal/models"
)

// MockAdapter is a mock implementation of Adapter for testing.
type MockAdapter struct {
	// Schemas is returned by TableSchemas
	Schemas []models.TableSchema
	// Rows holds the rows of each table by name
	Rows map[string][]models.RowSnapshot
	// Err can be set to make methods return an error
	Err error
	// RowErr fails RowSnapshots for the named table only
	RowErr map[string]error

	// Requests records the config and limit of each RowSnapshots call by table
	Requests map[string]models.DumpConfig
	Limits   map[string]int
	Closed   bool
}

// NewMockAdapter creates a new MockAdapter for testing.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		Rows:     make(map[string][]models.RowSnapshot),
		RowErr:   make(map[string]error),
		Requests: make(map[string]models.DumpConfig),
		Limits:   make(map[string]int),
	}
}

// AddTable adds a table and its rows to the mock database.
func (m *MockAdapter) AddTable(schema models.TableSchema, rows ...models.RowSnapshot) {
	m.Schemas = append(m.Schemas, schema)
	m.Rows[schema.TableName] = rows
}

// Ping returns Err.
func (m *MockAdapter) Ping(ctx context.Context) error {
	return m.Err
}

// DumpConfigs returns the default policy for every mock table.
func (m *MockAdapter) DumpConfigs(ctx context.Context) ([]models.DumpConfig, error) {
	schemas, err := m.TableSchemas(ctx)
	if err != nil {
		return nil, err
	}
	return defaultDumpConfigs(schemas), nil
}

// TableSchemas returns the mock tables that have a primary key.
func (m *MockAdapter) TableSchemas(ctx context.Context) ([]models.TableSchema, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	schemas := make([]models.TableSchema, len(m.Schemas))
	copy(schemas, m.Schemas)
	return withPrimaryKey(schemas), nil
}

// RowSnapshots returns up to limit stored rows of the table.
func (m *MockAdapter) RowSnapshots(ctx context.Context, schema models.TableSchema, cfg models.DumpConfig, limit int) ([]models.RowSnapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if err := m.RowErr[schema.TableName]; err != nil {
		return nil, err
	}
	rows, ok := m.Rows[schema.TableName]
	if !ok {
		return nil, fmt.Errorf("table %s not found", schema.TableName)
	}

	m.Requests[schema.TableName] = cfg
	m.Limits[schema.TableName] = limit

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Close marks the adapter closed.
func (m *MockAdapter) Close() error {
	m.Closed = true
	return nil
}
