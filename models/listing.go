package models

import (
	"strings"
	"time"

	"rental-tracker/utils"
)

// Decision is the operator's verdict on a listing.
type Decision string

const (
	DecisionPendingReview        Decision = "Pending Review"
	DecisionInterested           Decision = "Interested"
	DecisionShortlisted          Decision = "Shortlisted"
	DecisionRejected             Decision = "Rejected"
	DecisionAppointmentScheduled Decision = "Appointment Scheduled"

	// DefaultDecision is the sentinel every new listing starts with.
	DefaultDecision = DecisionPendingReview
)

var decisionOptions = []Decision{
	DecisionPendingReview,
	DecisionInterested,
	DecisionShortlisted,
	DecisionRejected,
	DecisionAppointmentScheduled,
}

// DecisionOptions returns the allowed decisions in display order.
func DecisionOptions() []Decision {
	out := make([]Decision, len(decisionOptions))
	copy(out, decisionOptions)
	return out
}

// DecisionStrings is DecisionOptions as plain strings, for drop-downs.
func DecisionStrings() []string {
	out := make([]string, len(decisionOptions))
	for i, d := range decisionOptions {
		out[i] = string(d)
	}
	return out
}

// ParseDecision matches s case-insensitively against the allowed decisions.
func ParseDecision(s string) (Decision, bool) {
	s = strings.TrimSpace(s)
	for _, d := range decisionOptions {
		if strings.EqualFold(s, string(d)) {
			return d, true
		}
	}
	return "", false
}

// NormalizeDecision returns the canonical decision for s, or the default
// sentinel when s is empty or outside the allowed set.
func NormalizeDecision(s string) Decision {
	if d, ok := ParseDecision(s); ok {
		return d
	}
	return DefaultDecision
}

// Field names in canonical order. The store row, the hash row and the
// reconciliation walk all iterate in this order.
const (
	FieldURL            = "url"
	FieldAddress        = "address"
	FieldPrice          = "price"
	FieldBeds           = "beds"
	FieldBaths          = "baths"
	FieldSqft           = "sqft"
	FieldHouseType      = "house_type"
	FieldDescription    = "description"
	FieldAmenities      = "amenities"
	FieldAvailableDate  = "available_date"
	FieldParking        = "parking"
	FieldUtilities      = "utilities"
	FieldContactInfo    = "contact_info"
	FieldAppointmentURL = "appointment_url"
	FieldScrapedAt      = "scraped_at"
	FieldNotes          = "notes"
	FieldDecision       = "decision"
)

var fieldNames = []string{
	FieldURL, FieldAddress, FieldPrice, FieldBeds, FieldBaths, FieldSqft,
	FieldHouseType, FieldDescription, FieldAmenities, FieldAvailableDate,
	FieldParking, FieldUtilities, FieldContactInfo, FieldAppointmentURL,
	FieldScrapedAt, FieldNotes, FieldDecision,
}

var headers = []string{
	"URL", "Address", "Price", "Beds", "Baths", "Sqft", "House Type",
	"Description", "Amenities", "Available Date", "Parking", "Utilities",
	"Contact Info", "Appointment URL", "Scraped At", "Notes", "Decision",
}

var fieldIndex = func() map[string]int {
	m := make(map[string]int, len(fieldNames))
	for i, f := range fieldNames {
		m[f] = i
	}
	return m
}()

// FieldCount is the width of a store row.
var FieldCount = len(fieldNames)

// FieldNames returns the canonical field order.
func FieldNames() []string {
	out := make([]string, len(fieldNames))
	copy(out, fieldNames)
	return out
}

// Headers returns the human-readable column titles, same order as FieldNames.
func Headers() []string {
	out := make([]string, len(headers))
	copy(out, headers)
	return out
}

// FieldIndex returns the column of a field, or -1.
func FieldIndex(name string) int {
	if i, ok := fieldIndex[name]; ok {
		return i
	}
	return -1
}

// IsValidField reports whether name is a known field.
func IsValidField(name string) bool {
	_, ok := fieldIndex[name]
	return ok
}

// FieldClass controls how reconciliation treats a field.
type FieldClass int

const (
	ClassScrapedFact FieldClass = iota
	ClassKey
	ClassBookkeeping
	ClassUserAuthored
)

// ClassOf returns the reconciliation class of a field.
func ClassOf(name string) FieldClass {
	switch name {
	case FieldURL:
		return ClassKey
	case FieldScrapedAt:
		return ClassBookkeeping
	case FieldNotes, FieldDecision:
		return ClassUserAuthored
	default:
		return ClassScrapedFact
	}
}

const amenitySeparator = ", "

// Listing is one rental property observation.
type Listing struct {
	URL            string
	Address        string
	Price          string
	Beds           string
	Baths          string
	Sqft           string
	HouseType      string
	Description    string
	Amenities      []string
	AvailableDate  string
	Parking        string
	Utilities      string
	ContactInfo    string
	AppointmentURL string
	ScrapedAt      time.Time
	Notes          string
	Decision       Decision

	// Unavailable marks a placeholder synthesized after a failed fetch:
	// its scraped facts are unknown rather than empty.
	Unavailable bool
}

// ToRow serializes the listing in canonical field order. Absent optionals
// become "" and the decision is normalized.
func (l *Listing) ToRow() []string {
	scrapedAt := ""
	if !l.ScrapedAt.IsZero() {
		scrapedAt = l.ScrapedAt.Format(time.RFC3339)
	}
	return []string{
		l.URL,
		l.Address,
		l.Price,
		l.Beds,
		l.Baths,
		l.Sqft,
		l.HouseType,
		l.Description,
		strings.Join(l.Amenities, amenitySeparator),
		l.AvailableDate,
		l.Parking,
		l.Utilities,
		l.ContactInfo,
		l.AppointmentURL,
		scrapedAt,
		l.Notes,
		string(NormalizeDecision(string(l.Decision))),
	}
}

// ToHashRow hashes every serialized field, same order as ToRow. Empty fields
// hash to "".
func (l *Listing) ToHashRow(h utils.Hasher) []string {
	return HashRow(l.ToRow(), h)
}

// HashRow hashes an already serialized row.
func HashRow(row []string, h utils.Hasher) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = h.Sum(v)
	}
	return out
}

// PadRow returns row widened (or truncated) to FieldCount columns.
func PadRow(row []string) []string {
	out := make([]string, FieldCount)
	copy(out, row)
	return out
}

// FromRow parses a store row. Short rows are padded; an unparseable
// scraped_at is dropped and an out-of-enum decision becomes the default.
func FromRow(row []string) *Listing {
	r := PadRow(row)
	l := &Listing{
		URL:            r[0],
		Address:        r[1],
		Price:          r[2],
		Beds:           r[3],
		Baths:          r[4],
		Sqft:           r[5],
		HouseType:      r[6],
		Description:    r[7],
		AvailableDate:  r[9],
		Parking:        r[10],
		Utilities:      r[11],
		ContactInfo:    r[12],
		AppointmentURL: r[13],
		Notes:          r[15],
		Decision:       NormalizeDecision(r[16]),
	}
	if r[8] != "" {
		l.Amenities = strings.Split(r[8], amenitySeparator)
	}
	if r[14] != "" {
		if ts, err := time.Parse(time.RFC3339, r[14]); err == nil {
			l.ScrapedAt = ts
		}
	}
	return l
}

// Placeholder synthesizes the record used when a fetch of url fails. It carries
// address, notes and decision forward from the stored row (if any) and marks
// every other fact unavailable.
func Placeholder(url string, existing []string) *Listing {
	l := &Listing{
		URL:         url,
		Decision:    DefaultDecision,
		Unavailable: true,
	}
	if existing != nil {
		prev := FromRow(existing)
		l.Address = prev.Address
		l.Notes = prev.Notes
		l.Decision = prev.Decision
	}
	return l
}
