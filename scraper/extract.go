package scraper

import (
	"net/url"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxDescriptionRunes = 500
	maxAmenities        = 10
	maxAmenityLen       = 100
)

var (
	reSpace     = regexp.MustCompile(`\s+`)
	rePrice     = regexp.MustCompile(`\$\s*\d[\d,]*(?:\.\d{1,2})?`)
	reBeds      = regexp.MustCompile(`(?i)(\d+)\s*(?:beds?|bedrooms?|br)\b`)
	reStudio    = regexp.MustCompile(`(?i)\bstudio\b`)
	reBaths     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:baths?|bathrooms?|ba)\b`)
	reSqft      = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+|\d+)\s*(?:sq\.?\s*ft|sqft|square\s+feet)`)
	rePhone     = regexp.MustCompile(`\(?\b\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}\b`)
	reUtilities = regexp.MustCompile(`(?i)(?:all\s+)?utilities\s+(?:are\s+)?(?:included|not\s+included|paid\s+by\s+tenant)`)
	reHouseType = regexp.MustCompile(`(?i)(?:property|home|unit|listing)\s+type:\s*([a-z]+)`)
	reAppoint   = regexp.MustCompile(`(?i)schedule|tour|appointment|showing`)

	availablePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)available\s+(?:now|immediately)`),
		regexp.MustCompile(`(?i)available\s+\d{1,2}/\d{1,2}/\d{2,4}`),
		regexp.MustCompile(`(?i)available\s+[a-z]+\s+\d{1,2}(?:,\s*\d{4})?`),
		regexp.MustCompile(`(?i)available\s+[a-z]+\s+\d{4}`),
	}

	amenityKeywords = []string{
		"stainless steel appliances", "dishwasher", "microwave", "refrigerator",
		"washer", "dryer", "air conditioning", "heating", "walk-in closet",
		"patio", "backyard", "garage", "parking", "laundry", "pantry",
		"in unit laundry", "hardwood floors", "balcony", "pool", "fitness center",
	}

	parkingKeywords = []string{
		"attached garage", "detached garage", "garage parking", "off street parking",
		"covered parking", "street parking", "carport", "garage", "parking available",
	}
)

// cleanText collapses runs of whitespace and trims.
func cleanText(s string) string {
	return strings.TrimSpace(reSpace.ReplaceAllString(s, " "))
}

// title title-cases s. Casers carry state, so each call gets its own.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}

// firstText returns the text of the first selector match at least minLen long.
func firstText(doc *goquery.Document, selectors []string, minLen int) string {
	for _, sel := range selectors {
		text := cleanText(doc.Find(sel).First().Text())
		if len(text) >= minLen && text != "" {
			return text
		}
	}
	return ""
}

func extractPrice(doc *goquery.Document, selectors []string, page string) string {
	for _, sel := range selectors {
		if m := rePrice.FindString(doc.Find(sel).First().Text()); m != "" {
			return strings.ReplaceAll(m, " ", "")
		}
	}
	return strings.ReplaceAll(rePrice.FindString(page), " ", "")
}

// extractBedsBaths looks in the bed/bath summary selectors first, then in the
// whole page.
func extractBedsBaths(doc *goquery.Document, selectors []string, page string) (string, string) {
	var beds, baths string
	for _, sel := range selectors {
		text := doc.Find(sel).First().Text()
		if beds == "" {
			beds = submatch(reBeds, text)
		}
		if baths == "" {
			baths = submatch(reBaths, text)
		}
		if beds != "" && baths != "" {
			return beds, baths
		}
	}
	if beds == "" {
		beds = submatch(reBeds, page)
		if beds == "" && reStudio.MatchString(page) {
			beds = "Studio"
		}
	}
	if baths == "" {
		baths = submatch(reBaths, page)
	}
	return beds, baths
}

func extractSqft(doc *goquery.Document, selectors []string, page string) string {
	for _, sel := range selectors {
		if m := submatch(reSqft, doc.Find(sel).First().Text()); m != "" {
			return m
		}
	}
	return submatch(reSqft, page)
}

func extractDescription(doc *goquery.Document, selectors []string) string {
	return truncateRunes(firstText(doc, selectors, 1), maxDescriptionRunes)
}

// extractAmenities collects list items under the amenity selectors, falling
// back to a keyword scan of the page.
func extractAmenities(doc *goquery.Document, selectors []string, page string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(a string) {
		key := strings.ToLower(a)
		if a == "" || len(a) >= maxAmenityLen || seen[key] || len(out) >= maxAmenities {
			return
		}
		seen[key] = true
		out = append(out, a)
	}

	for _, sel := range selectors {
		doc.Find(sel + " li, " + sel + " .amenity").Each(func(_ int, item *goquery.Selection) {
			add(cleanText(item.Text()))
		})
	}
	if len(out) > 0 {
		return out
	}

	for _, kw := range amenityKeywords {
		if containsWord(page, kw) {
			add(title(kw))
		}
	}
	return out
}

func extractAvailableDate(page string) string {
	for _, re := range availablePatterns {
		if m := re.FindString(page); m != "" {
			return title(cleanText(m))
		}
	}
	return ""
}

func extractParking(page string) string {
	for _, kw := range parkingKeywords {
		if containsWord(page, kw) {
			return title(kw)
		}
	}
	return ""
}

func extractUtilities(page string) string {
	if m := reUtilities.FindString(page); m != "" {
		return title(cleanText(m))
	}
	return ""
}

func extractHouseType(page string) string {
	if m := submatch(reHouseType, page); m != "" {
		return normalizeHouseType(m)
	}
	lower := strings.ToLower(page)
	switch {
	case strings.Contains(lower, "townhouse"), strings.Contains(lower, "townhome"):
		return "Townhouse"
	case strings.Contains(lower, "condo"):
		return "Condo"
	case strings.Contains(lower, "apartment"):
		return "Apartment"
	case strings.Contains(lower, "single family"), strings.Contains(lower, "single-family"):
		return "House"
	}
	return ""
}

func normalizeHouseType(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "townhouse"), strings.Contains(lower, "townhome"):
		return "Townhouse"
	case strings.Contains(lower, "house"):
		return "House"
	case strings.Contains(lower, "apartment"):
		return "Apartment"
	case strings.Contains(lower, "condo"):
		return "Condo"
	}
	return title(lower)
}

// extractContact prefers tel: and mailto: links, then any phone number in the page.
func extractContact(doc *goquery.Document, selectors []string, page string) string {
	if href, ok := doc.Find(`a[href^="tel:"]`).First().Attr("href"); ok {
		return strings.TrimPrefix(href, "tel:")
	}
	if text := firstText(doc, selectors, 1); text != "" {
		return text
	}
	if href, ok := doc.Find(`a[href^="mailto:"]`).First().Attr("href"); ok {
		return strings.TrimPrefix(href, "mailto:")
	}
	return rePhone.FindString(page)
}

// extractAppointmentURL finds a scheduling link and resolves it against base.
func extractAppointmentURL(doc *goquery.Document, base *url.URL) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		label := a.Text() + " " + a.AttrOr("aria-label", "")
		if !reAppoint.MatchString(label) {
			return true
		}
		href := a.AttrOr("href", "")
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		found = ref.String()
		return false
	})
	return found
}

var wordPatterns sync.Map

// containsWord reports whether phrase occurs in s as whole words, ignoring case.
func containsWord(s, phrase string) bool {
	re, ok := wordPatterns.Load(phrase)
	if !ok {
		re, _ = wordPatterns.LoadOrStore(phrase, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(phrase)+`\b`))
	}
	return re.(*regexp.Regexp).MatchString(s)
}

func submatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return ""
}
