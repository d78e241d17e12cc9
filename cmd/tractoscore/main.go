// tractoscore scores submitted tractograms against a ground-truth dataset of
// anatomical bundles and ROIs.
//
// Usage:
//
//	tractoscore score <submission.tck> --data-dir <gt-dir> --attribs <bundles.json> [-o scores.json]
//	tractoscore history [--db <path>] [--limit N]
//	tractoscore report --score-file <scores.json> --html <out.html> [--png <out.png>]
//	tractoscore migrate up [--db <path>]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "tractoscore",
	Short:         "Tractography challenge scoring",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(scoreCmd, historyCmd, reportCmd, migrateCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tractoscore: %v\n", err)
		os.Exit(1)
	}
}
