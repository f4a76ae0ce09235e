// Command dbdiff captures database snapshots and diffs them.
package main

import (
	"os"

	"github.com/kilupskalvis/dbdiff/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
