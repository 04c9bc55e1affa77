package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"rental-tracker/models"
	"rental-tracker/services"
)

var (
	protectURL    string
	protectFields string

	resetURL string
)

var protectFieldsCmd = &cobra.Command{
	Use:   "protect-fields",
	Short: "Protect fields of a listing from being overwritten by rescrapes",
	Long: fmt.Sprintf(`Record the current values of the named fields so a rescrape that
returns something different keeps them.

Fields: %s

Example:
  rental-tracker protect-fields --url <url> --fields price,parking`, strings.Join(models.FieldNames(), ", ")),
	Args: cobra.NoArgs,
	RunE: runProtectFields,
}

var unprotectFieldsCmd = &cobra.Command{
	Use:   "unprotect-fields",
	Short: "Let rescrapes overwrite the named fields again",
	Args:  cobra.NoArgs,
	RunE:  runUnprotectFields,
}

var resetHashesCmd = &cobra.Command{
	Use:   "reset-hashes",
	Short: "Drop every protection of a listing, notes and decision included",
	Args:  cobra.NoArgs,
	RunE:  runResetHashes,
}

var notesStatusCmd = &cobra.Command{
	Use:   "notes-status",
	Short: "Show listings with notes and whether the notes are protected",
	Args:  cobra.NoArgs,
	RunE:  runNotesStatus,
}

var protectionStatusCmd = &cobra.Command{
	Use:   "protection-status",
	Short: "Show the protected fields of every listing",
	Args:  cobra.NoArgs,
	RunE:  runProtectionStatus,
}

func init() {
	for _, c := range []*cobra.Command{protectFieldsCmd, unprotectFieldsCmd} {
		c.Flags().StringVarP(&protectURL, "url", "u", "", "URL of the listing")
		c.Flags().StringVar(&protectFields, "fields", "", "Comma separated field names")
		c.MarkFlagRequired("url")
		c.MarkFlagRequired("fields")
	}
	resetHashesCmd.Flags().StringVarP(&resetURL, "url", "u", "", "URL of the listing")
	resetHashesCmd.MarkFlagRequired("url")
}

func runProtectFields(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	change, err := a.tracker.ProtectFields(cmd.Context(), protectURL, splitList(protectFields))
	printChange(cmd.OutOrStdout(), "Protected", change)
	return err
}

func runUnprotectFields(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	change, err := a.tracker.UnprotectFields(cmd.Context(), protectURL, splitList(protectFields))
	printChange(cmd.OutOrStdout(), "Unprotected", change)
	return err
}

func printChange(w io.Writer, verb string, change services.FieldChange) {
	if len(change.Applied) > 0 {
		fmt.Fprintf(w, "✅ %s: %s\n", verb, strings.Join(change.Applied, ", "))
	}
	if len(change.Skipped) > 0 {
		fmt.Fprintf(w, "⏭️  Skipped: %s\n", strings.Join(change.Skipped, ", "))
	}
	if len(change.Invalid) > 0 {
		fmt.Fprintf(w, "❌ Unknown fields: %s\n", strings.Join(change.Invalid, ", "))
	}
}

func runResetHashes(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.tracker.ResetHashes(resetURL)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Reset all protections for: %s\n", resetURL)
	fmt.Fprintln(out, "   Notes are still kept when a rescrape brings none.")
	return nil
}

func runNotesStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.tracker.NotesStatus(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(status) == 0 {
		fmt.Fprintln(out, "📝 No listings have notes")
		return nil
	}
	fmt.Fprintf(out, "📝 %d listing(s) with notes:\n", len(status))
	for _, s := range status {
		mark := "🔓"
		if s.Protected {
			mark = "🔒"
		}
		fmt.Fprintf(out, "  %s %s\n     %s\n     %s\n", mark, s.Address, s.URL, s.Notes)
	}
	return nil
}

func runProtectionStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.tracker.ProtectionStatus(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(status) == 0 {
		fmt.Fprintln(out, "🔓 No protected fields")
		return nil
	}
	for _, s := range status {
		fmt.Fprintf(out, "🔒 %s\n     %s\n     %s\n", s.Address, s.URL, strings.Join(s.Fields, ", "))
	}
	return nil
}
