package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cacheMaxAgeHours int

var cacheStatsCmd = &cobra.Command{
	Use:   "cache-stats",
	Short: "Show fact cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "cache-clear",
	Short: "Drop cached pages (field protections are kept)",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheClearCmd.Flags().IntVar(&cacheMaxAgeHours, "max-age-hours", 0, "Only drop pages older than this (0 drops all)")
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if !a.cache.Available() {
		fmt.Fprintln(out, "⚠️  Fact cache is unavailable")
		return nil
	}
	s := a.tracker.CacheStats()
	fmt.Fprintln(out, "📊 Cache statistics")
	fmt.Fprintf(out, "  Cached pages        : %d (%d in the last 24h)\n", s.TotalPages, s.RecentPages)
	fmt.Fprintf(out, "  Cached bytes        : %d\n", s.TotalBytes)
	if s.TotalPages > 0 {
		fmt.Fprintf(out, "  Oldest page         : %s\n", s.OldestPage.Format(time.DateTime))
		fmt.Fprintf(out, "  Newest page         : %s\n", s.NewestPage.Format(time.DateTime))
	}
	fmt.Fprintf(out, "  Field hashes        : %d across %d URL(s)\n", s.TotalHashes, s.URLsWithHashes)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	n := a.tracker.CacheClear(time.Duration(cacheMaxAgeHours) * time.Hour)
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Cleared %d cached page(s)\n", n)
	return nil
}
