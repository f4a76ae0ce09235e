package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/dbdiff/internal/core"
	"github.com/kilupskalvis/dbdiff/internal/models"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <snapshot1> <snapshot2>",
	Short: "Show changes between two snapshots",
	Long: `Show the rows that differ between two snapshots of the current project.

The diff is computed once and stored; later calls with the same snapshots
reuse it.`,
	Args: cobra.ExactArgs(2),
	Run:  runDiff,
}

var (
	diffStat   bool
	diffJSON   bool
	diffValues bool
)

func init() {
	diffCmd.Flags().BoolVar(&diffStat, "stat", false, "Show changed row counts per table instead of full diff")
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Print the diff as JSON")
	diffCmd.Flags().BoolVar(&diffValues, "values", false, "Show unchanged columns and line diffs of JSON columns")
}

func runDiff(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	p := c.project()
	id1 := c.snapshotID(p, args[0])
	id2 := c.snapshotID(p, args[1])

	diff, err := core.CreateSnapshotDiff(context.Background(), c.Store, id1, id2, c.Config.DiffWorkers)
	if err != nil {
		exitError("failed to compute diff: %v", err)
	}

	switch {
	case diffJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(diff.View()); err != nil {
			exitError("failed to encode diff: %v", err)
		}
	case len(diff.TableDiffs) == 0:
		fmt.Println("No changes")
	case diffStat:
		writeDiffStat(os.Stdout, diff)
	default:
		writeSnapshotDiff(os.Stdout, diff, diffValues)
	}
}

// rowChange is how one primary key changed between the two snapshots.
type rowChange int

const (
	rowUnchanged rowChange = iota
	rowAdded
	rowDeleted
	rowModified
)

func classifyRow(td *models.TableDiff, key string) rowChange {
	_, in1 := td.RowDiffs1[key]
	_, in2 := td.RowDiffs2[key]
	switch {
	case in1 && in2:
		return rowModified
	case in2:
		return rowAdded
	case in1:
		return rowDeleted
	default:
		return rowUnchanged
	}
}

// writeDiffStat prints one line of row counts per changed table.
func writeDiffStat(w io.Writer, diff *models.SnapshotDiff) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	var total int
	for _, td := range diff.TableDiffs {
		var added, deleted, modified int
		for _, pk := range td.PrimaryKeys {
			switch classifyRow(td, pk.Display()) {
			case rowAdded:
				added++
			case rowDeleted:
				deleted++
			case rowModified:
				modified++
			}
		}
		total += added + deleted + modified

		fmt.Fprintf(w, " %-30s | %4d ", td.TableName, added+deleted+modified)
		green.Fprint(w, strings.Repeat("+", min(added, 20)))
		red.Fprint(w, strings.Repeat("-", min(deleted, 20)))
		yellow.Fprint(w, strings.Repeat("~", min(modified, 20)))
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, " %d tables changed, %d rows changed\n", len(diff.TableDiffs), total)
}

// writeSnapshotDiff prints every changed row, table by table.
// With values set, unchanged columns of modified rows are printed too and
// changed JSON columns are shown as a unified line diff.
func writeSnapshotDiff(w io.Writer, diff *models.SnapshotDiff, values bool) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	header := color.New(color.FgCyan, color.Bold)

	for i, td := range diff.TableDiffs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		header.Fprintf(w, "=== %s (%s)\n", td.TableName, td.PrimaryColName)

		for _, pk := range td.PrimaryKeys {
			key := pk.Display()
			switch classifyRow(td, key) {
			case rowAdded:
				green.Fprintf(w, "+++ %s\n", key)
				writeColumns(w, green, td.ColNames, td.RowDiffs2[key])
			case rowDeleted:
				red.Fprintf(w, "--- %s\n", key)
				writeColumns(w, red, td.ColNames, td.RowDiffs1[key])
			case rowModified:
				yellow.Fprintf(w, "~~~ %s\n", key)
				writeModified(w, td.ColNames, td.RowDiffs1[key], td.RowDiffs2[key], values)
			}
		}
	}
}

func writeColumns(w io.Writer, c *color.Color, colNames []string, cols map[string]models.ColDiff) {
	for _, name := range colNames {
		d, ok := cols[name]
		if !ok || d.Status() == models.StatusNone {
			continue
		}
		c.Fprintf(w, "    %s: %s\n", name, d.Value().Display())
	}
}

func writeModified(w io.Writer, colNames []string, before, after map[string]models.ColDiff, values bool) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	for _, name := range colNames {
		d1, d2 := before[name], after[name]
		if d1.Status() == models.StatusStay && d2.Status() == models.StatusStay {
			if values {
				fmt.Fprintf(w, "    %s: %s\n", name, d1.Value().Display())
			}
			continue
		}

		if values {
			if lines, ok := jsonLineDiff(d1, d2); ok {
				fmt.Fprintf(w, "    %s:\n", name)
				for _, line := range lines {
					switch {
					case strings.HasPrefix(line, "+"):
						green.Fprintf(w, "      %s\n", line)
					case strings.HasPrefix(line, "-"):
						red.Fprintf(w, "      %s\n", line)
					default:
						fmt.Fprintf(w, "      %s\n", line)
					}
				}
				continue
			}
		}

		fmt.Fprintf(w, "    %s: ", name)
		red.Fprint(w, displayColDiff(d1))
		fmt.Fprint(w, " -> ")
		green.Fprintln(w, displayColDiff(d2))
	}
}

func displayColDiff(d models.ColDiff) string {
	if d.Value() == nil {
		return "(absent)"
	}
	return d.Value().Display()
}

// jsonLineDiff renders a unified diff of two JSON cells, pretty printed.
// It reports false when either side is not a JSON value.
func jsonLineDiff(d1, d2 models.ColDiff) ([]string, bool) {
	v1, ok1 := d1.Value().(models.JSONValue)
	v2, ok2 := d2.Value().(models.JSONValue)
	if !ok1 || !ok2 {
		return nil, false
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(indentJSON(string(v1))),
		B:        difflib.SplitLines(indentJSON(string(v2))),
		FromFile: "snapshot1",
		ToFile:   "snapshot2",
		Context:  2,
	})
	if err != nil || text == "" {
		return nil, false
	}
	return strings.Split(strings.TrimRight(text, "\n"), "\n"), true
}

func indentJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(s), "", "  "); err != nil {
		return s + "\n"
	}
	buf.WriteByte('\n')
	return buf.String()
}
