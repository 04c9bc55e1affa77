package models

import (
	"reflect"
	"testing"
	"time"

	"rental-tracker/utils"
)

func sampleListing() *Listing {
	return &Listing{
		URL:         "https://www.zillow.com/homedetails/1",
		Address:     "12 Alder St, Portland, OR",
		Price:       "$1,200",
		Beds:        "2",
		Baths:       "1.5",
		Amenities:   []string{"Dishwasher", "In-unit laundry"},
		ScrapedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Notes:       "check kitchen",
		Decision:    DecisionShortlisted,
		ContactInfo: "503-555-0100",
	}
}

func TestRowOrderMatchesFieldNames(t *testing.T) {
	row := sampleListing().ToRow()
	if len(row) != len(FieldNames()) {
		t.Fatalf("row width: got %d, want %d", len(row), len(FieldNames()))
	}
	if len(Headers()) != len(FieldNames()) {
		t.Fatalf("headers width: got %d, want %d", len(Headers()), len(FieldNames()))
	}

	checks := map[string]string{
		FieldURL:         "https://www.zillow.com/homedetails/1",
		FieldPrice:       "$1,200",
		FieldAmenities:   "Dishwasher, In-unit laundry",
		FieldScrapedAt:   "2026-03-01T10:00:00Z",
		FieldNotes:       "check kitchen",
		FieldDecision:    "Shortlisted",
		FieldSqft:        "",
		FieldContactInfo: "503-555-0100",
	}
	for field, want := range checks {
		if got := row[FieldIndex(field)]; got != want {
			t.Errorf("%s: got %q, want %q", field, got, want)
		}
	}
}

func TestFromRowRoundTrip(t *testing.T) {
	orig := sampleListing()
	back := FromRow(orig.ToRow())
	if !reflect.DeepEqual(back.ToRow(), orig.ToRow()) {
		t.Errorf("round trip mismatch:\n got  %v\n want %v", back.ToRow(), orig.ToRow())
	}
}

func TestFromRowShortAndDirty(t *testing.T) {
	l := FromRow([]string{"https://craigslist.org/1", "Somewhere"})
	if l.Decision != DefaultDecision {
		t.Errorf("missing decision: got %q, want default", l.Decision)
	}
	if l.Amenities != nil {
		t.Errorf("missing amenities should stay nil, got %v", l.Amenities)
	}

	row := PadRow([]string{"https://craigslist.org/2", "Elsewhere"})
	row[FieldIndex(FieldScrapedAt)] = "yesterday"
	row[FieldIndex(FieldDecision)] = "maybe later"
	l = FromRow(row)
	if !l.ScrapedAt.IsZero() {
		t.Errorf("bad timestamp should be dropped, got %v", l.ScrapedAt)
	}
	if l.Decision != DefaultDecision {
		t.Errorf("out-of-enum decision: got %q, want default", l.Decision)
	}
}

func TestNormalizeDecision(t *testing.T) {
	tests := []struct {
		in   string
		want Decision
	}{
		{"Shortlisted", DecisionShortlisted},
		{"  interested ", DecisionInterested},
		{"APPOINTMENT SCHEDULED", DecisionAppointmentScheduled},
		{"", DefaultDecision},
		{"Maybe", DefaultDecision},
	}
	for _, tt := range tests {
		if got := NormalizeDecision(tt.in); got != tt.want {
			t.Errorf("NormalizeDecision(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecisionOptionsFixedOrder(t *testing.T) {
	want := []string{"Pending Review", "Interested", "Shortlisted", "Rejected", "Appointment Scheduled"}
	if got := DecisionStrings(); !reflect.DeepEqual(got, want) {
		t.Errorf("DecisionStrings: got %v, want %v", got, want)
	}
	opts := DecisionOptions()
	opts[0] = "tampered"
	if DecisionOptions()[0] != DecisionPendingReview {
		t.Error("DecisionOptions must return a copy")
	}
}

func TestToRowNormalizesDecision(t *testing.T) {
	l := sampleListing()
	l.Decision = "garbage"
	if got := l.ToRow()[FieldIndex(FieldDecision)]; got != string(DefaultDecision) {
		t.Errorf("decision: got %q, want default", got)
	}
}

func TestHashRowAlignment(t *testing.T) {
	h := utils.NewHasher(8)
	l := sampleListing()
	row := l.ToRow()
	hashes := l.ToHashRow(h)
	if len(hashes) != len(row) {
		t.Fatalf("hash row width: got %d, want %d", len(hashes), len(row))
	}
	for i, v := range row {
		if v == "" && hashes[i] != "" {
			t.Errorf("column %d: empty value should have empty hash", i)
		}
		if v != "" && hashes[i] != h.Sum(v) {
			t.Errorf("column %d: hash mismatch", i)
		}
	}
}

func TestFieldClasses(t *testing.T) {
	tests := map[string]FieldClass{
		FieldURL:       ClassKey,
		FieldScrapedAt: ClassBookkeeping,
		FieldNotes:     ClassUserAuthored,
		FieldDecision:  ClassUserAuthored,
		FieldPrice:     ClassScrapedFact,
		FieldAmenities: ClassScrapedFact,
	}
	for field, want := range tests {
		if got := ClassOf(field); got != want {
			t.Errorf("ClassOf(%s) = %v; want %v", field, got, want)
		}
	}
	if IsValidField("rent") || !IsValidField("price") {
		t.Error("IsValidField mismatch")
	}
	if FieldIndex("nope") != -1 {
		t.Error("unknown field should have index -1")
	}
}

func TestPlaceholder(t *testing.T) {
	existing := sampleListing().ToRow()
	p := Placeholder("https://www.zillow.com/homedetails/1", existing)
	if !p.Unavailable {
		t.Error("placeholder must be marked unavailable")
	}
	if p.Address != "12 Alder St, Portland, OR" || p.Notes != "check kitchen" || p.Decision != DecisionShortlisted {
		t.Errorf("placeholder should carry address/notes/decision, got %+v", p)
	}
	if p.Price != "" || p.Beds != "" {
		t.Errorf("placeholder should not carry scraped facts, got price=%q beds=%q", p.Price, p.Beds)
	}

	fresh := Placeholder("https://x", nil)
	if fresh.Decision != DefaultDecision || fresh.Address != "" {
		t.Errorf("placeholder without stored row: %+v", fresh)
	}
}
