package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tractometry/tractoscore/internal/tracto"
	"github.com/tractometry/tractoscore/internal/tracto/report"
	"github.com/tractometry/tractoscore/internal/tracto/storage/sqlite"
)

var reportFlags struct {
	scoreFile string
	scoreID   string
	dbPath    string
	htmlPath  string
	pngPath   string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render charts for a scorecard",
	Long: `Render per-bundle metric charts for a scorecard, read either from a JSON
file produced by "score -o" or from a stored record (--score-id).`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.scoreFile, "score-file", "", "Scorecard JSON file")
	f.StringVar(&reportFlags.scoreID, "score-id", "", "Stored scorecard ID")
	f.StringVar(&reportFlags.dbPath, "db", defaultDBPath, "SQLite database path (with --score-id)")
	f.StringVar(&reportFlags.htmlPath, "html", "", "Output HTML report path")
	f.StringVar(&reportFlags.pngPath, "png", "", "Output PNG chart path")
}

func runReport(cmd *cobra.Command, args []string) error {
	if (reportFlags.scoreFile == "") == (reportFlags.scoreID == "") {
		return fmt.Errorf("exactly one of --score-file or --score-id is required")
	}
	if reportFlags.htmlPath == "" && reportFlags.pngPath == "" {
		return fmt.Errorf("at least one of --html or --png is required")
	}

	var raw []byte
	if reportFlags.scoreFile != "" {
		data, err := os.ReadFile(reportFlags.scoreFile)
		if err != nil {
			return fmt.Errorf("read score file: %w", err)
		}
		raw = data
	} else {
		db, err := sqlite.Open(reportFlags.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		rec, err := sqlite.NewScoreStore(db).Get(reportFlags.scoreID)
		if err != nil {
			return err
		}
		raw = rec.DetailJSON
	}

	var scores tracto.Scorecard
	if err := json.Unmarshal(raw, &scores); err != nil {
		return fmt.Errorf("parse scorecard: %w", err)
	}

	if reportFlags.htmlPath != "" {
		if err := report.WriteHTML(&scores, reportFlags.htmlPath); err != nil {
			return err
		}
	}
	if reportFlags.pngPath != "" {
		if err := report.WritePNG(&scores, reportFlags.pngPath); err != nil {
			return err
		}
	}
	return nil
}
