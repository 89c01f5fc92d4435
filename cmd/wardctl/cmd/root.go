// Package cmd contains the CLI commands for wardctl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

var verbose bool

// defaultDBPath is the default database path, can be overridden via WARDEN_DB_PATH env var
var defaultDBPath = "data/warden.db"

func init() {
	if envPath := os.Getenv("WARDEN_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wardctl",
	Short: "Warden administration tool",
	Long: `wardctl manages Warden tenants, API keys, notification
destinations, and alert rules. It operates directly on the server's
database file and is intended for operators, not tenants.

Examples:
  # Create a tenant and issue an ingestion key
  wardctl tenant create --name acme --tier growth
  wardctl key issue --tenant <tenant-id> --label production

  # Add a notification destination and a global alert rule
  wardctl destination add --tenant <tenant-id> --phone +15551234567
  wardctl alert set-global --tenant <tenant-id> --window 10 --threshold 50`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// openDatabase opens the SQLite database.
func openDatabase(path string) (*storage.SQLiteStorage, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("database file not found: %s", path)
	}

	store := storage.NewSQLiteStorage(path)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return store, nil
}
