package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rental-tracker/models"
	"rental-tracker/services"
	"rental-tracker/storage"
)

var (
	addURL         string
	addFile        string
	addResetHashes bool

	listDetailed bool

	notesURL  string
	notesText string

	decisionURL   string
	decisionValue string

	rescrapeIgnoreProtections bool
	rescrapeForce             bool

	clearForce bool

	exportPath string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Scrape one URL or a file of URLs into the store",
	Long: `Scrape a listing and add it to the store, or update it if the URL is
already stored. Stored notes, decisions and protected fields are kept.

Examples:
  rental-tracker add --url https://www.trulia.com/p/or/portland/...
  rental-tracker add --file urls.txt
  rental-tracker add --url <url> --reset-hashes`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored listings",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var updateNotesCmd = &cobra.Command{
	Use:   "update-notes",
	Short: "Set the notes of a listing and protect them",
	Args:  cobra.NoArgs,
	RunE:  runUpdateNotes,
}

var updateDecisionCmd = &cobra.Command{
	Use:   "update-decision",
	Short: "Set the decision of a listing and protect it",
	Long: fmt.Sprintf(`Set the decision of a listing and protect it.

Allowed decisions: %s`, strings.Join(models.DecisionStrings(), ", ")),
	Args: cobra.NoArgs,
	RunE: runUpdateDecision,
}

var rescrapeCmd = &cobra.Command{
	Use:   "rescrape",
	Short: "Refetch every stored listing",
	Long: `Refetch every stored listing and merge the results, keeping notes,
decisions and protected fields. A failed fetch leaves the stored row as it was.

--ignore-protections clears every protection first and overwrites all fields,
notes and decisions included.`,
	Args: cobra.NoArgs,
	RunE: runRescrape,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored listing",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored listings to CSV",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print an overview of stored listings",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List supported sites in lookup order",
	Args:  cobra.NoArgs,
	RunE:  runSites,
}

func init() {
	addCmd.Flags().StringVarP(&addURL, "url", "u", "", "Rental listing URL to scrape")
	addCmd.Flags().StringVarP(&addFile, "file", "f", "", "File containing URLs (one per line)")
	addCmd.Flags().BoolVarP(&addResetHashes, "reset-hashes", "r", false, "Drop field protections before merging")
	addCmd.MarkFlagsMutuallyExclusive("url", "file")
	addCmd.MarkFlagsOneRequired("url", "file")

	listCmd.Flags().BoolVarP(&listDetailed, "detailed", "d", false, "Show every field")

	updateNotesCmd.Flags().StringVarP(&notesURL, "url", "u", "", "URL of the listing")
	updateNotesCmd.Flags().StringVarP(&notesText, "notes", "n", "", "New notes (empty clears them)")
	updateNotesCmd.MarkFlagRequired("url")
	updateNotesCmd.MarkFlagRequired("notes")

	updateDecisionCmd.Flags().StringVarP(&decisionURL, "url", "u", "", "URL of the listing")
	updateDecisionCmd.Flags().StringVarP(&decisionValue, "decision", "d", "", "New decision")
	updateDecisionCmd.MarkFlagRequired("url")
	updateDecisionCmd.MarkFlagRequired("decision")

	rescrapeCmd.Flags().BoolVarP(&rescrapeIgnoreProtections, "ignore-protections", "i", false, "Overwrite all fields, notes included")
	rescrapeCmd.Flags().BoolVarP(&rescrapeForce, "force", "f", false, "Skip confirmation prompt")

	clearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "Skip confirmation prompt")

	exportCmd.Flags().StringVarP(&exportPath, "out", "o", "./output/listings.csv", "CSV output path")
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if addURL != "" {
		fmt.Fprintf(out, "🔍 Scraping listing from: %s\n", addURL)
		res := a.tracker.Add(cmd.Context(), addURL, addResetHashes)
		printItem(out, res)
		if res.Outcome == services.OutcomeFailed {
			return fmt.Errorf("add %s: %w", addURL, res.Err)
		}
		return nil
	}

	urls, err := readURLFile(addFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "📄 Processing URLs from %s\n", addFile)
	fmt.Fprintln(out, strings.Repeat("-", 50))
	sum := a.tracker.AddBulk(cmd.Context(), urls, addResetHashes)
	for _, res := range sum.Items {
		printItem(out, res)
	}
	printSummary(out, sum, false)
	return nil
}

func printItem(w io.Writer, res services.ItemResult) {
	switch {
	case res.Outcome == services.OutcomeAdded:
		fmt.Fprintf(w, "   ✅ Added: %s\n", res.URL)
	case res.Outcome == services.OutcomeUpdated && res.Scraped:
		fmt.Fprintf(w, "   ✅ Updated: %s\n", res.URL)
	case res.Outcome == services.OutcomeUpdated:
		fmt.Fprintf(w, "   ⚠️  Kept stored values: %s (%v)\n", res.URL, res.Err)
	default:
		fmt.Fprintf(w, "   ❌ Failed: %s (%v)\n", res.URL, res.Err)
	}
	if len(res.Kept) > 0 {
		fmt.Fprintf(w, "      🔒 Preserved: %s\n", strings.Join(res.Kept, ", "))
	}
}

func printSummary(w io.Writer, sum services.Summary, rescrape bool) {
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Run %s: %d successful, %d failed\n", sum.RunID, sum.Successful, sum.Failed)
	if rescrape {
		fmt.Fprintf(w, "Fetched: %d, fetch failures (stored values kept): %d\n",
			sum.ScrapedSuccessfully, sum.ScrapedFailed)
	}
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	listings, err := a.tracker.List(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(listings) == 0 {
		fmt.Fprintln(out, "📋 No listings found")
		return nil
	}
	fmt.Fprintf(out, "📋 Found %d listings:\n", len(listings))

	if !listDetailed {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ADDRESS\tPRICE\tBEDS\tBATHS\tTYPE\tDECISION\tURL")
		for _, l := range listings {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				clip(l.Address, 40), l.Price, l.Beds, l.Baths, l.HouseType, l.Decision, l.URL)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(out, "💡 Use 'rental-tracker list --detailed' for every field")
		return nil
	}

	headers := models.Headers()
	for i, l := range listings {
		fmt.Fprintln(out, strings.Repeat("=", 80))
		fmt.Fprintf(out, "#%d\n", i+1)
		for j, v := range l.ToRow() {
			if v == "" {
				continue
			}
			fmt.Fprintf(out, "  %-16s %s\n", headers[j]+":", v)
		}
	}
	fmt.Fprintln(out, strings.Repeat("=", 80))
	return nil
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func runUpdateNotes(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.tracker.UpdateNotes(cmd.Context(), notesURL, notesText); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Updated notes for listing: %s\n", notesURL)
	return nil
}

func runUpdateDecision(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.tracker.UpdateDecision(cmd.Context(), decisionURL, decisionValue); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Updated decision for listing: %s\n", decisionURL)
	return nil
}

func runRescrape(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	listings, err := a.tracker.List(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(listings) == 0 {
		fmt.Fprintln(out, "📋 No listings found")
		return nil
	}
	fmt.Fprintf(out, "📋 Found %d listings to rescrape\n", len(listings))

	if !rescrapeForce {
		if rescrapeIgnoreProtections {
			fmt.Fprintln(out, "⚠️  WARNING: --ignore-protections overwrites ALL fields,")
			fmt.Fprintln(out, "   including the notes and decisions you have set.")
		} else {
			fmt.Fprintln(out, "⚠️  Fields will be updated while preserving manual edits.")
		}
		if !confirm(cmd.InOrStdin(), out, "Are you sure you want to continue?") {
			fmt.Fprintln(out, "❌ Operation cancelled")
			return nil
		}
	}

	sum, err := a.tracker.Rescrape(cmd.Context(), rescrapeIgnoreProtections)
	if err != nil {
		return err
	}
	for _, res := range sum.Items {
		printItem(out, res)
	}
	printSummary(out, sum, true)
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	listings, err := a.tracker.List(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(listings) == 0 {
		fmt.Fprintln(out, "📋 No listings to clear")
		return nil
	}
	if !clearForce {
		question := fmt.Sprintf("This will permanently delete %d listing(s). Continue?", len(listings))
		if !confirm(cmd.InOrStdin(), out, question) {
			fmt.Fprintln(out, "❌ Operation cancelled")
			return nil
		}
	}

	n, err := a.tracker.Clear(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Cleared %d listing(s)\n", n)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := storage.NewCSVWriter(exportPath)
	if err != nil {
		return err
	}
	n, err := a.tracker.Export(cmd.Context(), w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Exported %d listing(s) to %s\n", n, exportPath)
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.tracker.Report(cmd.Context())
	if err != nil {
		return err
	}
	a.tracker.Reports().Print(cmd.OutOrStdout(), r)
	return nil
}

func runSites(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🌐 Supported sites (lookup order):")
	for i, name := range a.tracker.Sites() {
		fmt.Fprintf(out, "  %d. %s\n", i+1, name)
	}
	if !a.cfg.GenericFallback {
		fmt.Fprintln(out, "💡 Set GENERIC_FALLBACK=true to try any other site with the generic extractor")
	}
	return nil
}
