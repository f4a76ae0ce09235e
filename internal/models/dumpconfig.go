package models

import (
	"sort"
	"strings"
	"time"
)

// Dump policies besides ordering by a column.
const (
	DumpLimited = "limited"
	DumpIgnore  = "ignore"
)

// DumpConfig decides which rows of a table are captured.
// Value is DumpLimited, DumpIgnore, or a column name to order by (newest first).
type DumpConfig struct {
	TableName string   `json:"table_name"`
	ColNames  []string `json:"col_names"`
	Value     string   `json:"value"`
}

// InitDumpConfig derives the default policy from the column names: order by
// the last update* column, else the last create* column, else ignore.
func InitDumpConfig(tableName string, colNames []string) DumpConfig {
	var created, updated string
	for i := len(colNames) - 1; i >= 0; i-- {
		name := colNames[i]
		if created == "" && strings.HasPrefix(name, "create") {
			created = name
		}
		if updated == "" && strings.HasPrefix(name, "update") {
			updated = name
		}
	}

	value := DumpIgnore
	switch {
	case updated != "":
		value = updated
	case created != "":
		value = created
	}

	return DumpConfig{TableName: tableName, ColNames: colNames, Value: value}
}

// IsIgnored reports whether the table is skipped.
func (c DumpConfig) IsIgnored() bool {
	return c.Value == DumpIgnore
}

// OrderBy returns the column rows are ordered by, or "" for no ordering.
func (c DumpConfig) OrderBy() string {
	if c.Value == DumpLimited || c.Value == DumpIgnore {
		return ""
	}
	return c.Value
}

// MergeDumpConfigs overlays saved values onto defaults, keyed by table name.
// Tables only present in saved are dropped.
func MergeDumpConfigs(defaults, saved []DumpConfig) []DumpConfig {
	values := make(map[string]string, len(saved))
	for _, c := range saved {
		values[c.TableName] = c.Value
	}

	merged := make([]DumpConfig, len(defaults))
	for i, c := range defaults {
		if v, ok := values[c.TableName]; ok {
			c.Value = v
		}
		merged[i] = c
	}
	return merged
}

// SortDumpConfigs sorts configs by table name in place and returns them.
func SortDumpConfigs(configs []DumpConfig) []DumpConfig {
	sort.SliceStable(configs, func(i, j int) bool {
		return configs[i].TableName < configs[j].TableName
	})
	return configs
}

// DumpConfigSet is the set of configs used for one snapshot.
type DumpConfigSet struct {
	SnapshotID string       `json:"snapshot_id"`
	ProjectID  string       `json:"project_id"`
	Configs    []DumpConfig `json:"configs"`
	CreatedAt  time.Time    `json:"created_at"`
}
