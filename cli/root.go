// Package cli is the operator command surface. Every command opens the
// configured store and fact cache, runs one tracker operation and closes them.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"rental-tracker/services"
)

var (
	verbose      bool
	storeBackend string
)

var rootCmd = &cobra.Command{
	Use:   "rental-tracker",
	Short: "Track rental listings without losing your edits",
	Long: `rental-tracker scrapes rental listings from real-estate sites into a
spreadsheet (or PostgreSQL) and keeps your notes, decisions and protected
fields intact across rescrapes.

Quick Start:
  rental-tracker add --url https://www.zillow.com/homedetails/...
  rental-tracker update-notes --url <url> --notes "call landlord"
  rental-tracker rescrape

Configuration comes from .env and the environment (STORE_BACKEND,
SPREADSHEET_PATH, CACHE_DB_PATH, FETCH_MODE, ...).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "Store backend: xlsx, postgres or memory (overrides STORE_BACKEND)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(updateNotesCmd)
	rootCmd.AddCommand(updateDecisionCmd)
	rootCmd.AddCommand(rescrapeCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(protectFieldsCmd)
	rootCmd.AddCommand(unprotectFieldsCmd)
	rootCmd.AddCommand(resetHashesCmd)
	rootCmd.AddCommand(notesStatusCmd)
	rootCmd.AddCommand(protectionStatusCmd)
	rootCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(sitesCmd)
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}

// ExitCode maps a command error to a process exit status: 2 for bad operator
// input, 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, services.ErrListingNotFound),
		errors.Is(err, services.ErrInvalidDecision),
		errors.Is(err, services.ErrNoValidFields):
		return 2
	default:
		return 1
	}
}
