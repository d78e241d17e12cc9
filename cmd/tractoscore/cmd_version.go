package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tractometry/tractoscore/internal/tracto"
	"github.com/tractometry/tractoscore/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tractoscore %s (commit %s, built %s)\n",
			version.Version, version.GitSHA, version.BuildTime)
		fmt.Printf("scorecard schema v%d, algorithm v%d\n",
			tracto.ScorecardVersion, tracto.AlgoVersion)
	},
}
