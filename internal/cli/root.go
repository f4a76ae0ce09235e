// Package cli implements the command-line interface for dbdiff.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kilupskalvis/dbdiff/internal/adapter"
	"github.com/kilupskalvis/dbdiff/internal/config"
	"github.com/kilupskalvis/dbdiff/internal/core"
	"github.com/kilupskalvis/dbdiff/internal/models"
	"github.com/kilupskalvis/dbdiff/internal/store"
	"github.com/spf13/cobra"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Store  *store.Store
	logOut io.Closer
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
	if c.logOut != nil {
		c.logOut.Close()
	}
}

// initContext loads the workspace config, routes logs into the workspace log
// file and opens the store.
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	logOut, err := setupLogger(cfg)
	if err != nil {
		exitError("failed to open log file: %v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		logOut.Close()
		exitError("failed to open store: %v", err)
	}

	if err := st.Initialize(); err != nil {
		st.Close()
		logOut.Close()
		exitError("failed to initialize store: %v", err)
	}

	return &cmdContext{Config: cfg, Store: st, logOut: logOut}
}

// project returns the currently selected project or exits.
func (c *cmdContext) project() *models.Project {
	p, err := core.CurrentProject(c.Config, c.Store)
	if err != nil {
		c.Close()
		exitError("%v", err)
	}
	return p
}

// connect connects to the project's database or exits.
func (c *cmdContext) connect(p *models.Project) adapter.Adapter {
	a, err := adapter.Open(p)
	if err != nil {
		c.Close()
		exitError("failed to open %s: %v", p.Name, err)
	}
	return a
}

// snapshotID expands a snapshot ID prefix of the given project or exits.
func (c *cmdContext) snapshotID(p *models.Project, ref string) string {
	id, err := c.Store.ResolveSnapshotID(p.ID, ref)
	if err != nil {
		c.Close()
		exitError("%v", err)
	}
	return id
}

// setupLogger installs a slog default logger writing to the workspace log
// file so diagnostic output never mixes with command output.
func setupLogger(cfg *config.Config) (io.Closer, error) {
	f, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(f, cfg.LogLevel, cfg.LogFormat))
	return f, nil
}

func newLogger(w io.Writer, logLevel, logFormat string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(logLevel)}
	if logFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var rootCmd = &cobra.Command{
	Use:   "dbdiff",
	Short: "Database snapshot diff",
	Long: `dbdiff captures snapshots of the rows in a MySQL or SQLite database and
shows what changed between two snapshots, table by table and column by column.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(serveCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
