package services

import (
	"rental-tracker/models"
	"rental-tracker/utils"
)

// HashStore is the slice of the fact cache the reconciler needs.
type HashStore interface {
	GetAllHashes(url string) map[string]string
	ReplaceHashes(url string, hashes map[string]string)
	ClearHashes(url string)
}

// MergeResult is the outcome of merging one fetched listing into its stored row.
type MergeResult struct {
	// Row is the merged store row in canonical field order.
	Row []string
	// Hashes maps every non-empty field of Row to its hash.
	Hashes map[string]string
	// Kept names the fields where the stored value won over a different
	// fetched value.
	Kept []string
	// New is true when there was no stored row.
	New bool
}

// Merge combines a freshly fetched listing with the stored row for the same
// URL. existing is nil for a URL that is not stored yet; stored holds the
// field hashes recorded at the last write. Merge has no side effects.
func Merge(fresh *models.Listing, existing []string, stored map[string]string, forceReset bool, h utils.Hasher) MergeResult {
	incoming := fresh.ToRow()

	if existing == nil {
		return MergeResult{Row: incoming, Hashes: hashRow(incoming, h), New: true}
	}

	current := models.PadRow(existing)
	decisionIdx := models.FieldIndex(models.FieldDecision)
	current[decisionIdx] = string(models.NormalizeDecision(current[decisionIdx]))

	merged := make([]string, models.FieldCount)
	var kept []string

	for i, field := range models.FieldNames() {
		keep := false
		if !forceReset {
			keep = keepExisting(field, current[i], incoming[i], stored, fresh.Unavailable, h)
		}
		if keep {
			merged[i] = current[i]
			if current[i] != incoming[i] {
				kept = append(kept, field)
			}
		} else {
			merged[i] = incoming[i]
		}
	}

	return MergeResult{Row: merged, Hashes: hashRow(merged, h), Kept: kept}
}

// keepExisting decides a single field. A stored hash protects notes
// unconditionally, protects a decision that is not the default, and protects
// a scraped fact only while the fetched value hashes differently.
func keepExisting(field, current, incoming string, stored map[string]string, unavailable bool, h utils.Hasher) bool {
	storedHash, hashed := stored[field]

	switch models.ClassOf(field) {
	case models.ClassKey:
		return true

	case models.ClassBookkeeping:
		return unavailable

	case models.ClassUserAuthored:
		if field == models.FieldNotes {
			if hashed {
				return true
			}
			return current != "" && incoming == ""
		}
		def := string(models.DefaultDecision)
		if current == def {
			return false
		}
		return hashed || incoming == def

	default:
		if unavailable {
			return true
		}
		return hashed && storedHash != h.Sum(incoming)
	}
}

func hashRow(row []string, h utils.Hasher) map[string]string {
	names := models.FieldNames()
	out := make(map[string]string, len(row))
	for i, v := range row {
		if v == "" {
			continue
		}
		out[names[i]] = h.Sum(v)
	}
	return out
}

// Reconciler applies Merge against the fact cache.
type Reconciler struct {
	hashes HashStore
	hasher utils.Hasher
	logger *utils.Logger
}

// NewReconciler creates a Reconciler backed by the given hash store.
func NewReconciler(hashes HashStore, hasher utils.Hasher, logger *utils.Logger) *Reconciler {
	return &Reconciler{hashes: hashes, hasher: hasher, logger: logger}
}

// Reconcile merges fresh into existing. With forceReset the URL's stored
// hashes are cleared first and every fetched value is taken.
func (r *Reconciler) Reconcile(fresh *models.Listing, existing []string, forceReset bool) MergeResult {
	var stored map[string]string
	if forceReset {
		r.hashes.ClearHashes(fresh.URL)
	} else {
		stored = r.hashes.GetAllHashes(fresh.URL)
	}

	res := Merge(fresh, existing, stored, forceReset, r.hasher)
	if len(res.Kept) > 0 {
		r.logger.Info("[reconciler] %s: kept stored values for %v", fresh.URL, res.Kept)
	}
	return res
}

// Commit records the hashes of a row that has been written to the store.
func (r *Reconciler) Commit(url string, hashes map[string]string) {
	r.hashes.ReplaceHashes(url, hashes)
}
