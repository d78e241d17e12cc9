package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tractometry/tractoscore/internal/tracto/storage/sqlite"
)

const defaultDBPath = "tractoscore.db"

var migrateFlags struct {
	dbPath string
}

var migrateCmd = &cobra.Command{
	Use:       "migrate <up|down|version>",
	Short:     "Manage the scores database schema",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down", "version"},
	RunE:      runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFlags.dbPath, "db", defaultDBPath, "SQLite database path")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := sqlite.Open(migrateFlags.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch args[0] {
	case "up":
		return sqlite.MigrateUp(db)
	case "down":
		return sqlite.MigrateDown(db)
	case "version":
		version, dirty, err := sqlite.MigrateVersion(db)
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %v)\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown migrate action %q", args[0])
	}
}
