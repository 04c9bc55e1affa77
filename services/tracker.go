package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rental-tracker/cache"
	"rental-tracker/models"
	"rental-tracker/scraper"
	"rental-tracker/storage"
	"rental-tracker/utils"
)

var (
	// ErrListingNotFound is returned when a URL has no stored row.
	ErrListingNotFound = errors.New("listing not found")
	// ErrInvalidDecision is returned for a decision outside the allowed set.
	ErrInvalidDecision = errors.New("invalid decision")
	// ErrNoValidFields is returned when none of the named fields exist.
	ErrNoValidFields = errors.New("no valid field names")
)

// Outcome is what happened to one URL during a run.
type Outcome string

const (
	OutcomeAdded   Outcome = "added"
	OutcomeUpdated Outcome = "updated"
	OutcomeFailed  Outcome = "failed"
)

// ItemResult reports one processed URL.
type ItemResult struct {
	URL     string
	Outcome Outcome
	// Scraped is false when the fetch failed and a placeholder was reconciled.
	Scraped bool
	Kept    []string
	Err     error
}

// Summary totals a bulk add or rescrape.
type Summary struct {
	RunID               string
	Successful          int
	Failed              int
	ScrapedSuccessfully int
	ScrapedFailed       int
	Items               []ItemResult
}

// FieldChange reports a protect or unprotect request.
type FieldChange struct {
	Applied []string
	Invalid []string
	// Skipped holds valid fields left alone: empty values for protect,
	// unprotected fields for unprotect.
	Skipped []string
}

// NoteStatus describes a listing that carries notes.
type NoteStatus struct {
	URL       string
	Address   string
	Notes     string
	Protected bool
}

// ProtectionStatus lists the protected fields of one listing.
type ProtectionStatus struct {
	URL     string
	Address string
	Fields  []string
}

// Tracker runs the operator commands: fetch, clean, reconcile and persist,
// plus the protection and cache housekeeping around them.
type Tracker struct {
	store      storage.ListingStore
	registry   *scraper.Registry
	cache      *cache.FactCache
	reconciler *Reconciler
	cleaner    *Cleaner
	reports    *ReportService
	pacer      *utils.Pacer
	logger     *utils.Logger
}

// NewTracker wires a Tracker. interval spaces out items of a bulk run.
func NewTracker(store storage.ListingStore, registry *scraper.Registry, fc *cache.FactCache,
	interval time.Duration, logger *utils.Logger) *Tracker {
	return &Tracker{
		store:      store,
		registry:   registry,
		cache:      fc,
		reconciler: NewReconciler(fc, fc.Hasher(), logger),
		cleaner:    NewCleaner(logger),
		reports:    NewReportService(logger),
		pacer:      utils.NewPacer(interval),
		logger:     logger,
	}
}

// Sites lists the registered sources in lookup order.
func (t *Tracker) Sites() []string {
	return t.registry.Names()
}

// Add fetches one URL and adds or updates its row. resetHashes drops every
// protection on the URL first.
func (t *Tracker) Add(ctx context.Context, url string, resetHashes bool) ItemResult {
	res := t.process(ctx, url, resetHashes)
	if res.Outcome != OutcomeFailed && !res.Scraped {
		// The placeholder kept the stored row intact, but nothing was added.
		res.Outcome = OutcomeFailed
	}
	switch res.Outcome {
	case OutcomeAdded:
		t.logger.Info("[tracker] Added %s", url)
	case OutcomeUpdated:
		t.logger.Info("[tracker] Updated %s", url)
	default:
		t.logger.Error("[tracker] Failed %s: %v", url, res.Err)
	}
	return res
}

// AddBulk runs Add for every URL in order.
func (t *Tracker) AddBulk(ctx context.Context, urls []string, resetHashes bool) Summary {
	urls = t.cleaner.CleanURLs(urls)
	sum := Summary{RunID: uuid.NewString()}
	t.logger.Info("[tracker] Run %s: adding %d URLs", sum.RunID, len(urls))

	for i, url := range urls {
		if err := t.pacer.Wait(ctx); err != nil {
			t.logger.Warn("[tracker] Run %s stopped after %d items: %v", sum.RunID, i, err)
			break
		}
		t.logger.Info("[tracker] Run %s: %d/%d %s", sum.RunID, i+1, len(urls), url)
		res := t.Add(ctx, url, resetHashes)
		sum.record(res)
		if res.Outcome == OutcomeFailed {
			sum.Failed++
		} else {
			sum.Successful++
		}
	}

	t.logger.Info("[tracker] Run %s done: %d successful, %d failed", sum.RunID, sum.Successful, sum.Failed)
	return sum
}

// Rescrape refetches every stored listing. A failed fetch reconciles a
// placeholder so the stored row survives. ignoreProtections clears each URL's
// hashes before merging.
func (t *Tracker) Rescrape(ctx context.Context, ignoreProtections bool) (Summary, error) {
	rows, err := t.store.ReadAllRows(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("rescrape: read rows: %w", err)
	}

	sum := Summary{RunID: uuid.NewString()}
	urls := make([]string, 0, len(rows))
	for _, r := range rows {
		if r[0] != "" {
			urls = append(urls, r[0])
		}
	}
	t.logger.Info("[tracker] Run %s: rescraping %d listings (ignore protections: %v)",
		sum.RunID, len(urls), ignoreProtections)

	for i, url := range urls {
		if err := t.pacer.Wait(ctx); err != nil {
			t.logger.Warn("[tracker] Run %s stopped after %d items: %v", sum.RunID, i, err)
			break
		}
		t.logger.Info("[tracker] Run %s: %d/%d %s", sum.RunID, i+1, len(urls), url)
		res := t.process(ctx, url, ignoreProtections)
		sum.record(res)
		if res.Outcome == OutcomeFailed {
			sum.Failed++
			t.logger.Error("[tracker] %s: %v", url, res.Err)
			continue
		}
		sum.Successful++
		if res.Scraped {
			sum.ScrapedSuccessfully++
		} else {
			sum.ScrapedFailed++
			t.logger.Warn("[tracker] %s: fetch failed, stored values kept: %v", url, res.Err)
		}
	}

	t.logger.Info("[tracker] Run %s done: %d successful, %d failed, %d scraped, %d scrape failures",
		sum.RunID, sum.Successful, sum.Failed, sum.ScrapedSuccessfully, sum.ScrapedFailed)
	return sum, nil
}

func (s *Summary) record(res ItemResult) {
	s.Items = append(s.Items, res)
}

// process fetches, cleans, reconciles and persists one URL.
func (t *Tracker) process(ctx context.Context, url string, force bool) ItemResult {
	res := ItemResult{URL: url}

	idx, existing, found, err := t.findRow(ctx, url)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}

	fresh, fetchErr := t.registry.Fetch(ctx, url)
	if fetchErr != nil {
		if !found {
			res.Outcome, res.Err = OutcomeFailed, fetchErr
			return res
		}
		fresh = models.Placeholder(url, existing)
		res.Err = fetchErr
	} else {
		res.Scraped = true
		fresh.URL = url
	}
	fresh = t.cleaner.Clean(fresh)

	merged := t.reconciler.Reconcile(fresh, existing, force)
	res.Kept = merged.Kept

	if found {
		err = t.store.WriteRow(ctx, idx, merged.Row)
		res.Outcome = OutcomeUpdated
	} else {
		_, err = t.store.AppendRow(ctx, merged.Row)
		res.Outcome = OutcomeAdded
	}
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("store write: %w", err)
		return res
	}

	t.reconciler.Commit(url, merged.Hashes)
	return res
}

// findRow returns the position and contents of url's row, decision
// normalized. The row is nil when the URL is not stored.
func (t *Tracker) findRow(ctx context.Context, url string) (int, []string, bool, error) {
	idx, found, err := t.store.FindRow(ctx, url)
	if err != nil {
		return 0, nil, false, fmt.Errorf("find row: %w", err)
	}
	if !found {
		return 0, nil, false, nil
	}
	rows, err := t.store.ReadAllRows(ctx)
	if err != nil {
		return 0, nil, false, fmt.Errorf("read rows: %w", err)
	}
	if idx < 0 || idx >= len(rows) {
		return 0, nil, false, fmt.Errorf("row %d: %w", idx, storage.ErrRowOutOfRange)
	}
	row := models.PadRow(rows[idx])
	decisionIdx := models.FieldIndex(models.FieldDecision)
	row[decisionIdx] = string(models.NormalizeDecision(row[decisionIdx]))
	return idx, row, true, nil
}

// List returns every stored listing in store order.
func (t *Tracker) List(ctx context.Context) ([]*models.Listing, error) {
	rows, err := t.store.ReadAllRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	out := make([]*models.Listing, 0, len(rows))
	for _, r := range rows {
		if len(r) == 0 || r[0] == "" {
			continue
		}
		out = append(out, models.FromRow(r))
	}
	return out, nil
}

// UpdateNotes writes notes for url and protects them. Empty notes clear the
// protection.
func (t *Tracker) UpdateNotes(ctx context.Context, url, notes string) error {
	return t.writeUserField(ctx, url, models.FieldNotes, notes)
}

// UpdateDecision validates and writes the decision for url and protects it.
func (t *Tracker) UpdateDecision(ctx context.Context, url, decision string) error {
	d, ok := models.ParseDecision(decision)
	if !ok {
		return fmt.Errorf("%w: %q (allowed: %v)", ErrInvalidDecision, decision, models.DecisionStrings())
	}
	return t.writeUserField(ctx, url, models.FieldDecision, string(d))
}

func (t *Tracker) writeUserField(ctx context.Context, url, field, value string) error {
	idx, row, found, err := t.findRow(ctx, url)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrListingNotFound, url)
	}
	row[models.FieldIndex(field)] = value
	if err := t.store.WriteRow(ctx, idx, row); err != nil {
		return fmt.Errorf("update %s: %w", field, err)
	}
	t.cache.SetHash(url, field, value)
	t.logger.Info("[tracker] Updated %s for %s", field, url)
	return nil
}

// ProtectFields seeds hashes for the named fields from their stored values.
func (t *Tracker) ProtectFields(ctx context.Context, url string, fields []string) (FieldChange, error) {
	valid, change := splitFields(fields)
	if len(valid) == 0 {
		return change, ErrNoValidFields
	}
	_, row, found, err := t.findRow(ctx, url)
	if err != nil {
		return change, err
	}
	if !found {
		return change, fmt.Errorf("%w: %s", ErrListingNotFound, url)
	}
	for _, f := range valid {
		value := row[models.FieldIndex(f)]
		if value == "" {
			change.Skipped = append(change.Skipped, f)
			continue
		}
		t.cache.SetHash(url, f, value)
		change.Applied = append(change.Applied, f)
	}
	return change, nil
}

// UnprotectFields removes the hashes of the named fields.
func (t *Tracker) UnprotectFields(ctx context.Context, url string, fields []string) (FieldChange, error) {
	valid, change := splitFields(fields)
	if len(valid) == 0 {
		return change, ErrNoValidFields
	}
	stored := t.cache.GetAllHashes(url)
	for _, f := range valid {
		if _, ok := stored[f]; ok {
			change.Applied = append(change.Applied, f)
		} else {
			change.Skipped = append(change.Skipped, f)
		}
	}
	t.cache.ClearSpecificHashes(url, change.Applied)
	return change, nil
}

// ResetHashes removes every hash for url, notes and decision included.
func (t *Tracker) ResetHashes(url string) {
	t.cache.ClearHashes(url)
	t.logger.Info("[tracker] Reset hashes for %s", url)
}

func splitFields(fields []string) ([]string, FieldChange) {
	var valid []string
	var change FieldChange
	for _, f := range fields {
		if models.IsValidField(f) {
			valid = append(valid, f)
		} else {
			change.Invalid = append(change.Invalid, f)
		}
	}
	return valid, change
}

// NotesStatus lists listings with notes and whether those notes are protected.
func (t *Tracker) NotesStatus(ctx context.Context) ([]NoteStatus, error) {
	listings, err := t.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []NoteStatus
	for _, l := range listings {
		if l.Notes == "" {
			continue
		}
		_, protected := t.cache.GetHash(l.URL, models.FieldNotes)
		out = append(out, NoteStatus{URL: l.URL, Address: l.Address, Notes: l.Notes, Protected: protected})
	}
	return out, nil
}

// ProtectionStatus lists, per listing, the fields whose hashes guard them.
// The key and bookkeeping fields are left out.
func (t *Tracker) ProtectionStatus(ctx context.Context) ([]ProtectionStatus, error) {
	listings, err := t.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []ProtectionStatus
	for _, l := range listings {
		stored := t.cache.GetAllHashes(l.URL)
		var fields []string
		for _, f := range models.FieldNames() {
			c := models.ClassOf(f)
			if c == models.ClassKey || c == models.ClassBookkeeping {
				continue
			}
			if _, ok := stored[f]; ok {
				fields = append(fields, f)
			}
		}
		if len(fields) > 0 {
			out = append(out, ProtectionStatus{URL: l.URL, Address: l.Address, Fields: fields})
		}
	}
	return out, nil
}

// Clear deletes every stored row and the hashes of the deleted URLs.
func (t *Tracker) Clear(ctx context.Context) (int, error) {
	rows, err := t.store.ReadAllRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := t.store.DeleteRows(ctx, 0, len(rows)-1); err != nil {
		return 0, fmt.Errorf("clear: %w", err)
	}
	for _, r := range rows {
		if r[0] != "" {
			t.cache.ClearHashes(r[0])
		}
	}
	t.logger.Info("[tracker] Cleared %d listings", len(rows))
	return len(rows), nil
}

// CacheStats reports the fact cache contents.
func (t *Tracker) CacheStats() cache.Stats {
	return t.cache.Stats()
}

// CacheClear drops cached pages older than maxAge, or all of them when
// maxAge is not positive. Field hashes are untouched.
func (t *Tracker) CacheClear(maxAge time.Duration) int {
	if maxAge > 0 {
		return t.cache.ClearExpired(maxAge)
	}
	return t.cache.ClearPages()
}

// Export writes the header and every stored row to exp.
func (t *Tracker) Export(ctx context.Context, exp storage.RowExporter) (int, error) {
	rows, err := t.store.ReadAllRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	if err := exp.WriteRows(models.Headers(), rows); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	return len(rows), nil
}

// Report summarizes the stored listings.
func (t *Tracker) Report(ctx context.Context) (*models.Report, error) {
	listings, err := t.List(ctx)
	if err != nil {
		return nil, err
	}
	return t.reports.Generate(listings), nil
}

// Reports exposes the report printer.
func (t *Tracker) Reports() *ReportService {
	return t.reports
}
