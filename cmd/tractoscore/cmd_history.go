package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tractometry/tractoscore/internal/tracto/storage/sqlite"
)

var historyFlags struct {
	dbPath string
	limit  int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently stored scorecards",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.dbPath, "db", defaultDBPath, "SQLite database path")
	f.IntVar(&historyFlags.limit, "limit", 20, "Maximum records to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := sqlite.Open(historyFlags.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	recs, err := sqlite.NewScoreStore(db).ListRecent(historyFlags.limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no stored scorecards")
		return nil
	}

	fmt.Printf("%-36s  %-19s  %6s %6s %6s %4s %4s  %s\n",
		"SCORE ID", "CREATED", "VC", "IC", "NC", "VB", "IB", "SUBMISSION")
	for _, r := range recs {
		created := time.Unix(0, r.CreatedAt).Format("2006-01-02 15:04:05")
		fmt.Printf("%-36s  %-19s  %6.3f %6.3f %6.3f %4d %4d  %s\n",
			r.ScoreID, created, r.VC, r.IC, r.NC, r.VB, r.IB, r.SubmissionPath)
	}
	return nil
}
