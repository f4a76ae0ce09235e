package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/dbdiff/internal/core"
	"github.com/kilupskalvis/dbdiff/internal/models"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage snapshots of the current project",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	Run:   runSnapshotList,
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Capture a new snapshot",
	Long: `Capture the rows of every table of the current project.

Each table is captured according to its dump config: "limited" takes the first
rows, "ignore" skips the table, and a column name takes the newest rows ordered
by that column. Configs default to the ones used by the previous snapshot.

Examples:
  dbdiff snapshot create --name before-migration
  dbdiff snapshot create --config audit_log=ignore --config user=updated_at`,
	Args: cobra.NoArgs,
	Run:  runSnapshotCreate,
}

var snapshotRenameCmd = &cobra.Command{
	Use:   "rename <snapshot> <name>",
	Short: "Rename a snapshot",
	Args:  cobra.ExactArgs(2),
	Run:   runSnapshotRename,
}

var snapshotRemoveCmd = &cobra.Command{
	Use:   "remove <snapshot>",
	Short: "Remove a snapshot and the diffs that use it",
	Args:  cobra.ExactArgs(1),
	Run:   runSnapshotRemove,
}

var snapshotStatusCmd = &cobra.Command{
	Use:   "status <snapshot>",
	Short: "Show the capture progress of a snapshot",
	Args:  cobra.ExactArgs(1),
	Run:   runSnapshotStatus,
}

var (
	snapshotName     string
	snapshotRowLimit int
	snapshotConfigs  []string
)

func init() {
	snapshotCmd.AddCommand(snapshotListCmd, snapshotCreateCmd, snapshotRenameCmd, snapshotRemoveCmd, snapshotStatusCmd)

	f := snapshotCreateCmd.Flags()
	f.StringVar(&snapshotName, "name", "", "Snapshot name (default: capture time)")
	f.IntVar(&snapshotRowLimit, "row-limit", 0, "Maximum rows per table (default: row_limit from config)")
	f.StringArrayVar(&snapshotConfigs, "config", nil, "Dump config as table=value, repeat for multiple")
}

func runSnapshotList(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	p := c.project()
	summaries, err := c.Store.ListSnapshotSummaries(p.ID)
	if err != nil {
		exitError("failed to list snapshots: %v", err)
	}

	if len(summaries) == 0 {
		fmt.Printf("No snapshots in project '%s'\n", p.Name)
		return
	}

	yellow := color.New(color.FgYellow)
	for _, s := range summaries {
		result, err := c.Store.FindSnapshotResult(s.ID)
		if err != nil {
			exitError("failed to read snapshot status: %v", err)
		}
		yellow.Printf("%s ", s.ShortID())
		fmt.Printf("%s  %-30s ", s.CreatedAt.Local().Format("2006-01-02 15:04:05"), s.Name)
		statusColor(result.Status).Println(result.Status)
	}
}

func statusColor(status string) *color.Color {
	switch status {
	case models.ResultComplete:
		return color.New(color.FgGreen)
	case models.ResultFailed:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgCyan)
	}
}

func runSnapshotCreate(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	p := c.project()
	a := c.connect(p)
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	configs, err := core.RecentDumpConfigs(ctx, c.Store, a, p.ID)
	if err != nil {
		exitError("failed to load dump configs: %v", err)
	}
	configs, err = applyConfigFlags(configs, snapshotConfigs)
	if err != nil {
		exitError("%v", err)
	}

	rowLimit := snapshotRowLimit
	if rowLimit <= 0 {
		rowLimit = c.Config.RowLimit
	}

	fmt.Printf("Capturing snapshot of '%s'...\n", p.Name)
	summary, err := core.Dump(ctx, c.Store, a, p, core.DumpRequest{
		Name:     snapshotName,
		Configs:  configs,
		RowLimit: rowLimit,
	})
	if err != nil {
		if summary != nil {
			color.New(color.FgRed).Printf("Snapshot %s failed\n", summary.ShortID())
		}
		exitError("%v", err)
	}

	result, err := c.Store.FindSnapshotResult(summary.ID)
	if err != nil {
		exitError("failed to read snapshot status: %v", err)
	}

	color.New(color.FgGreen).Printf("Created snapshot %s", summary.ShortID())
	fmt.Printf(" '%s' (%d tables)\n", summary.Name, result.Done)
}

// applyConfigFlags overrides configs with "table=value" assignments. Unknown
// tables are rejected so a typo does not silently fall back to the default.
func applyConfigFlags(configs []models.DumpConfig, flags []string) ([]models.DumpConfig, error) {
	index := make(map[string]int, len(configs))
	for i, cfg := range configs {
		index[cfg.TableName] = i
	}

	for _, flag := range flags {
		table, value, ok := strings.Cut(flag, "=")
		if !ok || table == "" || value == "" {
			return nil, fmt.Errorf("invalid dump config %q (expected table=value)", flag)
		}
		i, ok := index[table]
		if !ok {
			return nil, fmt.Errorf("unknown table '%s'", table)
		}
		cfg := configs[i]
		if value != models.DumpLimited && value != models.DumpIgnore && !contains(cfg.ColNames, value) {
			return nil, fmt.Errorf("table '%s' has no column '%s'", table, value)
		}
		configs[i].Value = value
	}
	return configs, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func runSnapshotRename(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	id := c.snapshotID(c.project(), args[0])
	if err := c.Store.RenameSnapshot(id, args[1]); err != nil {
		exitError("failed to rename snapshot: %v", err)
	}

	fmt.Printf("Renamed snapshot %s to '%s'\n", shortID(id), args[1])
}

func runSnapshotRemove(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	id := c.snapshotID(c.project(), args[0])
	if err := c.Store.DeleteSnapshot(id); err != nil {
		exitError("failed to remove snapshot: %v", err)
	}

	fmt.Printf("Removed snapshot %s\n", shortID(id))
}

func runSnapshotStatus(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	id := c.snapshotID(c.project(), args[0])
	result, err := c.Store.FindSnapshotResult(id)
	if err != nil {
		exitError("failed to read snapshot status: %v", err)
	}

	fmt.Printf("snapshot %s: ", shortID(id))
	statusColor(result.Status).Println(result.Status)
	if result.Total > 0 {
		fmt.Printf("  tables: %d/%d (%d%%)\n", result.Done, result.Total, result.Percent)
	}
}
