package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kilupskalvis/dbdiff/internal/adapter"
	"github.com/kilupskalvis/dbdiff/internal/config"
	"github.com/kilupskalvis/dbdiff/internal/models"
	"github.com/kilupskalvis/dbdiff/internal/store"
)

// DumpRequest describes one snapshot to capture.
type DumpRequest struct {
	SnapshotID string // generated when empty
	Name       string // defaults to the capture time
	// Configs overrides the default policy per table. Tables missing here use
	// their default.
	Configs  []models.DumpConfig
	RowLimit int
}

// Dump captures the project's tables into a new snapshot. Progress is
// recorded as a SnapshotResult after every table so it can be polled while
// the dump runs. On failure the result is marked failed and the partial
// snapshot is kept.
func Dump(ctx context.Context, st *store.Store, a adapter.Adapter, project *models.Project, req DumpRequest) (*models.SnapshotSummary, error) {
	now := time.Now()
	summary := &models.SnapshotSummary{
		ID:        req.SnapshotID,
		ProjectID: project.ID,
		Name:      req.Name,
		CreatedAt: now,
	}
	if summary.ID == "" {
		summary.ID = models.NewID()
	}
	if summary.Name == "" {
		summary.Name = now.Format(time.DateTime)
	}
	if req.RowLimit <= 0 {
		req.RowLimit = config.DefaultRowLimit
	}

	if err := st.InsertSnapshotSummary(summary); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	if err := st.PutSnapshotResult(models.QueuedSnapshotResult(summary.ID)); err != nil {
		return nil, fmt.Errorf("save snapshot result: %w", err)
	}

	slog.Info("dump start", "project", project.Name, "snapshot", summary.ShortID())

	if err := dumpTables(ctx, st, a, summary, req); err != nil {
		slog.Error("dump failed", "snapshot", summary.ShortID(), "error", err)
		if perr := st.PutSnapshotResult(models.FailedSnapshotResult(summary.ID)); perr != nil {
			slog.Error("save failed snapshot result", "snapshot", summary.ShortID(), "error", perr)
		}
		return summary, err
	}

	slog.Info("dump end", "project", project.Name, "snapshot", summary.ShortID())
	return summary, nil
}

func dumpTables(ctx context.Context, st *store.Store, a adapter.Adapter, summary *models.SnapshotSummary, req DumpRequest) error {
	schemas, err := a.TableSchemas(ctx)
	if err != nil {
		return fmt.Errorf("read table schemas: %w", err)
	}
	byName := make(map[string]models.TableSchema, len(schemas))
	for _, s := range schemas {
		byName[s.TableName] = s
	}

	defaults, err := a.DumpConfigs(ctx)
	if err != nil {
		return fmt.Errorf("read dump configs: %w", err)
	}
	configs := models.SortDumpConfigs(models.MergeDumpConfigs(defaults, req.Configs))

	var selected []models.DumpConfig
	for _, cfg := range configs {
		if _, ok := byName[cfg.TableName]; ok && !cfg.IsIgnored() {
			selected = append(selected, cfg)
		}
	}

	result := models.NewSnapshotResult(summary.ID, len(selected))
	if err := st.PutSnapshotResult(result); err != nil {
		return fmt.Errorf("save snapshot result: %w", err)
	}

	for _, cfg := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}

		schema := byName[cfg.TableName]
		rows, err := a.RowSnapshots(ctx, schema, cfg, req.RowLimit)
		if err != nil {
			return fmt.Errorf("dump table %s: %w", cfg.TableName, err)
		}

		primaryColName, colNames := schema.ColumnNames()
		ts := models.NewTableSnapshot(schema.TableName, primaryColName, colNames, rows)
		if err := st.InsertTableSnapshot(summary.ID, ts); err != nil {
			return fmt.Errorf("save table %s: %w", cfg.TableName, err)
		}

		slog.Debug("dumped table", "table", cfg.TableName, "rows", len(rows), "policy", cfg.Value)

		result.Increment()
		if err := st.PutSnapshotResult(result); err != nil {
			return fmt.Errorf("save snapshot result: %w", err)
		}
	}

	set := &models.DumpConfigSet{
		SnapshotID: summary.ID,
		ProjectID:  summary.ProjectID,
		Configs:    configs,
		CreatedAt:  summary.CreatedAt,
	}
	if err := st.InsertDumpConfigs(set); err != nil {
		return fmt.Errorf("save dump configs: %w", err)
	}

	result.Complete()
	return st.PutSnapshotResult(result)
}

// RecentDumpConfigs returns the project's current default policy per table,
// overlaid with the policy of the project's most recent snapshot.
func RecentDumpConfigs(ctx context.Context, st *store.Store, a adapter.Adapter, projectID string) ([]models.DumpConfig, error) {
	defaults, err := a.DumpConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("read dump configs: %w", err)
	}

	recent, err := st.FindRecentDumpConfigs(projectID)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		return models.SortDumpConfigs(defaults), nil
	}

	return models.SortDumpConfigs(models.MergeDumpConfigs(defaults, recent.Configs)), nil
}

// SnapshotDumpConfigs returns the policy a snapshot was captured with.
func SnapshotDumpConfigs(st *store.Store, snapshotID string) ([]models.DumpConfig, error) {
	if _, err := st.GetSnapshotSummary(snapshotID); err != nil {
		return nil, err
	}

	set, err := st.FindDumpConfigs(snapshotID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return []models.DumpConfig{}, nil
	}
	return set.Configs, nil
}
