package cli

import (
	"fmt"

	"github.com/kilupskalvis/dbdiff/internal/config"
	"github.com/kilupskalvis/dbdiff/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a new dbdiff workspace",
	Long: `Initialize a new dbdiff workspace in the given directory (default: current).
This creates a .dbdiff directory holding the config, the snapshot database and the log file.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runInit,
}

var (
	initRowLimit    int
	initDiffWorkers int
)

func init() {
	initCmd.Flags().IntVar(&initRowLimit, "row-limit", config.DefaultRowLimit, "Maximum rows captured per table")
	initCmd.Flags().IntVar(&initDiffWorkers, "diff-workers", config.DefaultDiffWorkers, "Tables diffed concurrently")
}

func runInit(cmd *cobra.Command, args []string) {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	cfg, err := config.Initialize(dir)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	if cmd.Flags().Changed("row-limit") || cmd.Flags().Changed("diff-workers") {
		cfg.RowLimit = initRowLimit
		cfg.DiffWorkers = initDiffWorkers
		if err := cfg.Save(); err != nil {
			exitError("failed to save config: %v", err)
		}
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to create store: %v", err)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		exitError("failed to initialize store: %v", err)
	}

	fmt.Printf("Initialized empty dbdiff workspace in %s\n", cfg.Path())
	fmt.Printf("\nRun 'dbdiff project add <name> ...' to register a database.\n")
}
