package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"rental-tracker/config"
	"rental-tracker/services"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"y", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := confirm(strings.NewReader(tt.input), &out, "Continue?"); got != tt.want {
			t.Errorf("confirm(%q) = %v; want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Continue? [y/N]") {
			t.Errorf("prompt not written: %q", out.String())
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList("price, parking,,sqft  notes")
	want := []string{"price", "parking", "sqft", "notes"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitList: got %v, want %v", got, want)
	}
}

func TestReadURLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "https://www.zillow.com/a\n\n# later\nhttps://www.trulia.com/b\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := readURLFile(path)
	if err != nil {
		t.Fatalf("readURLFile: %v", err)
	}
	if len(got) != 4 || got[0] != "https://www.zillow.com/a" || got[3] != "https://www.trulia.com/b" {
		t.Errorf("lines: got %q", got)
	}

	if _, err := readURLFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("wrapped: %w", services.ErrInvalidDecision), 2},
		{services.ErrListingNotFound, 2},
		{services.ErrNoValidFields, 2},
		{errors.New("disk full"), 1},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d; want %d", tt.err, got, tt.want)
		}
	}
}

func TestOpenStore(t *testing.T) {
	cfg := &config.Config{
		SpreadsheetPath: filepath.Join(t.TempDir(), "listings.xlsx"),
		SheetName:       "Listings",
	}
	for _, backend := range []string{"memory", "xlsx"} {
		s, err := openStore(cfg, backend)
		if err != nil {
			t.Fatalf("openStore(%s): %v", backend, err)
		}
		if err := s.Close(); err != nil {
			t.Errorf("close %s: %v", backend, err)
		}
	}
	if _, err := openStore(cfg, "sheets"); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

// runCommand executes the root command against an in-memory store and a
// throwaway fact cache.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CACHE_DB_PATH", filepath.Join(t.TempDir(), "cache.db"))
	t.Setenv("GENERIC_FALLBACK", "false")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--store", "memory"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSitesCommand(t *testing.T) {
	out, err := runCommand(t, "sites")
	if err != nil {
		t.Fatalf("sites: %v", err)
	}
	for _, want := range []string{"1. Trulia", "Zillow", "HotPads", "GENERIC_FALLBACK"} {
		if !strings.Contains(out, want) {
			t.Errorf("sites output missing %q:\n%s", want, out)
		}
	}
}

func TestListCommandEmptyStore(t *testing.T) {
	out, err := runCommand(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No listings found") {
		t.Errorf("list output: %q", out)
	}
}

func TestUpdateDecisionCommandRejectsBadInput(t *testing.T) {
	_, err := runCommand(t, "update-decision", "--url", "https://www.zillow.com/a", "--decision", "Maybe")
	if !errors.Is(err, services.ErrInvalidDecision) {
		t.Fatalf("got %v, want ErrInvalidDecision", err)
	}
	if ExitCode(err) != 2 {
		t.Errorf("exit code: got %d, want 2", ExitCode(err))
	}
}

func TestUpdateNotesCommandUnknownURL(t *testing.T) {
	_, err := runCommand(t, "update-notes", "--url", "https://www.zillow.com/none", "--notes", "hi")
	if !errors.Is(err, services.ErrListingNotFound) {
		t.Errorf("got %v, want ErrListingNotFound", err)
	}
}

func TestCacheStatsCommand(t *testing.T) {
	out, err := runCommand(t, "cache-stats")
	if err != nil {
		t.Fatalf("cache-stats: %v", err)
	}
	if !strings.Contains(out, "Field hashes") {
		t.Errorf("cache-stats output: %q", out)
	}
}
