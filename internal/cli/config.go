package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/dbdiff/internal/core"
	"github.com/kilupskalvis/dbdiff/internal/models"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect dump configs",
}

var configDumpCmd = &cobra.Command{
	Use:   "dump [snapshot]",
	Short: "Show the dump config per table",
	Long: `Show which rows of each table are captured.

Without an argument the configs the next snapshot would use are shown: the
database's defaults overlaid with the configs of the newest snapshot. With a
snapshot argument the configs that snapshot was captured with are shown.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runConfigDump,
}

func init() {
	configCmd.AddCommand(configDumpCmd)
}

func runConfigDump(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	p := c.project()

	var configs []models.DumpConfig
	var err error
	if len(args) == 1 {
		configs, err = core.SnapshotDumpConfigs(c.Store, c.snapshotID(p, args[0]))
	} else {
		a := c.connect(p)
		defer a.Close()
		configs, err = core.RecentDumpConfigs(context.Background(), c.Store, a, p.ID)
	}
	if err != nil {
		exitError("failed to load dump configs: %v", err)
	}

	writeDumpConfigs(os.Stdout, configs)
}

func writeDumpConfigs(w io.Writer, configs []models.DumpConfig) {
	if len(configs) == 0 {
		fmt.Fprintln(w, "No tables")
		return
	}

	faint := color.New(color.Faint)
	for _, cfg := range configs {
		value := cfg.Value
		if cfg.OrderBy() != "" {
			value = "order by " + value + " desc"
		}
		fmt.Fprintf(w, "%-30s ", cfg.TableName)
		if cfg.IsIgnored() {
			color.New(color.FgRed).Fprintf(w, "%-30s", value)
		} else {
			fmt.Fprintf(w, "%-30s", value)
		}
		faint.Fprintf(w, " [%s]\n", strings.Join(cfg.ColNames, ", "))
	}
}
