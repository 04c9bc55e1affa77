package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"rental-tracker/models"
	"rental-tracker/utils"
)

var (
	// priceRegexp captures numeric price values
	priceRegexp = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	// weeklyRegexp spots prices quoted per week
	weeklyRegexp = regexp.MustCompile(`(?i)/\s*w(?:ee)?k|per\s+week|weekly`)
	// dollarSpaceRegexp matches "$ 1,200" style spacing
	dollarSpaceRegexp = regexp.MustCompile(`\$\s+`)
)

// Cleaner normalizes fetched listings before reconciliation so that cosmetic
// differences (whitespace, casing of decisions, duplicate amenities) do not
// read as value changes.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean returns a normalized copy of l.
func (c *Cleaner) Clean(l *models.Listing) *models.Listing {
	out := *l
	out.URL = strings.TrimSpace(l.URL)
	out.Address = normaliseText(l.Address)
	out.Price = dollarSpaceRegexp.ReplaceAllString(normaliseText(l.Price), "$")
	out.Beds = normaliseText(l.Beds)
	out.Baths = normaliseText(l.Baths)
	out.Sqft = normaliseText(l.Sqft)
	out.HouseType = normaliseText(l.HouseType)
	out.Description = normaliseText(l.Description)
	out.Amenities = c.cleanAmenities(l.Amenities)
	out.AvailableDate = normaliseText(l.AvailableDate)
	out.Parking = normaliseText(l.Parking)
	out.Utilities = normaliseText(l.Utilities)
	out.ContactInfo = normaliseText(l.ContactInfo)
	out.AppointmentURL = strings.TrimSpace(l.AppointmentURL)
	out.Notes = strings.TrimSpace(l.Notes)
	out.Decision = models.NormalizeDecision(string(l.Decision))
	return &out
}

func (c *Cleaner) cleanAmenities(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, a := range raw {
		// ", " is the stored separator; a comma inside one amenity would split it.
		a = strings.ReplaceAll(normaliseText(a), ",", ";")
		if a == "" {
			continue
		}
		key := strings.ToLower(a)
		if _, dup := seen[key]; dup {
			c.logger.Debug("[cleaner] Duplicate amenity skipped: %s", a)
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// CleanURLs trims a bulk input list, dropping blanks, '#' comments and
// duplicates while keeping first-seen order.
func (c *Cleaner) CleanURLs(raw []string) []string {
	seen := utils.NewURLSet()
	result := make([]string, 0, len(raw))

	for _, r := range raw {
		url := strings.TrimSpace(r)
		if url == "" || strings.HasPrefix(url, "#") {
			continue
		}
		if !seen.Add(url) {
			c.logger.Debug("[cleaner] Duplicate URL skipped: %s", url)
			continue
		}
		result = append(result, url)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d URLs (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

// ParsePrice extracts a monthly rent from a stored price string.
// Examples:
//
//	"$2,450/mo" → 2450
//	"$1,200 - $1,500" → 1200
//	"$600/wk" → 2600 (600 × 52 / 12)
func ParsePrice(raw string) float64 {
	match := priceRegexp.FindString(raw)
	if match == "" {
		return 0
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0
	}
	if weeklyRegexp.MatchString(raw) {
		return round2(price * 52 / 12)
	}
	return price
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
