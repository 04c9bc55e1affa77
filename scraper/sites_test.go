package scraper

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

const zillowPage = `<html><head><title>Listing</title>
<script>var teaser = "9 beds 7 baths";</script></head>
<body>
<h1 data-testid="home-details-summary-address">123 Main St, Austin, TX 78701</h1>
<span data-testid="price">$2,450/mo</span>
<div data-testid="bed-bath-brief">3 beds 2 baths</div>
<div data-testid="sqft">1,350 sqft</div>
<div data-testid="description">Bright corner unit close to downtown.</div>
<ul class="amenities"><li>Dishwasher</li><li>In-unit laundry</li></ul>
<p>Available now. Attached garage. All utilities included.</p>
<p>Home type: Townhouse</p>
<a href="tel:+15125550100">Call</a>
<a href="/tour/123">Schedule a tour</a>
</body></html>`

type staticLoader struct {
	pages map[string]string
	err   error
	calls int
}

func (s *staticLoader) Load(_ context.Context, url string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.pages[url], nil
}

func findSite(t *testing.T, name string, loader PageLoader) *SiteSource {
	t.Helper()
	for _, s := range DefaultSites(loader) {
		if s.Name() == name {
			return s.(*SiteSource)
		}
	}
	t.Fatalf("site %q not registered", name)
	return nil
}

func TestSiteSourceParseZillow(t *testing.T) {
	url := "https://www.zillow.com/homedetails/123"
	site := findSite(t, "Zillow", &staticLoader{pages: map[string]string{url: zillowPage}})
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	site.now = func() time.Time { return fixed }

	l, err := site.Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	checks := []struct {
		field, got, want string
	}{
		{"address", l.Address, "123 Main St, Austin, TX 78701"},
		{"price", l.Price, "$2,450"},
		{"beds", l.Beds, "3"},
		{"baths", l.Baths, "2"},
		{"sqft", l.Sqft, "1,350"},
		{"house_type", l.HouseType, "Townhouse"},
		{"description", l.Description, "Bright corner unit close to downtown."},
		{"available_date", l.AvailableDate, "Available Now"},
		{"parking", l.Parking, "Attached Garage"},
		{"utilities", l.Utilities, "All Utilities Included"},
		{"contact_info", l.ContactInfo, "+15125550100"},
		{"appointment_url", l.AppointmentURL, "https://www.zillow.com/tour/123"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %q, want %q", c.field, c.got, c.want)
		}
	}
	if want := []string{"Dishwasher", "In-unit laundry"}; !reflect.DeepEqual(l.Amenities, want) {
		t.Errorf("amenities: got %v, want %v", l.Amenities, want)
	}
	if !l.ScrapedAt.Equal(fixed) {
		t.Errorf("scraped_at: got %v, want %v", l.ScrapedAt, fixed)
	}
	if l.URL != url {
		t.Errorf("url: got %q", l.URL)
	}
}

func TestSiteSourceAmenityKeywordFallback(t *testing.T) {
	page := `<html><body><h1>45 Elm Ave, Portland</h1>
<p>$1,800 per month. 1 bedroom 1 bath. Dishwasher and a private balcony.</p></body></html>`
	site := findSite(t, "HotPads", nil)

	l, err := site.Parse(page, "https://hotpads.com/45-elm")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if l.Price != "$1,800" {
		t.Errorf("price: got %q", l.Price)
	}
	if l.Beds != "1" || l.Baths != "1" {
		t.Errorf("beds/baths: got %q/%q", l.Beds, l.Baths)
	}
	if want := []string{"Dishwasher", "Balcony"}; !reflect.DeepEqual(l.Amenities, want) {
		t.Errorf("amenities: got %v, want %v", l.Amenities, want)
	}
}

func TestSiteSourceNoAddress(t *testing.T) {
	site := findSite(t, "Trulia", nil)
	_, err := site.Parse(`<html><body><p>nothing here</p></body></html>`, "https://www.trulia.com/x")
	if !errors.Is(err, ErrNoAddress) {
		t.Errorf("got %v, want ErrNoAddress", err)
	}
}

func TestSiteSourceLoaderError(t *testing.T) {
	site := findSite(t, "Redfin", &staticLoader{err: ErrBlocked})
	_, err := site.Fetch(context.Background(), "https://www.redfin.com/x")
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("got %v, want ErrBlocked", err)
	}
}

func TestSiteSourceSupports(t *testing.T) {
	sites := DefaultSites(nil)
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.zillow.com/homedetails/1", "Zillow"},
		{"https://www.trulia.com/p/tx/austin/1", "Trulia"},
		{"https://www.rent.com/texas/austin/1", "Rent.com"},
		{"https://www.apartments.com/the-grove/abc/", "Apartments.com"},
		{"https://austin.craigslist.org/apa/d/1.html", "Craigslist"},
		{"https://www.redfin.com/TX/Austin/1", "Redfin"},
		{"https://hotpads.com/1", "HotPads"},
		{"https://example.com/listing", ""},
		{"https://notzillow.com/x", ""},
	}
	for _, tt := range tests {
		got := ""
		for _, s := range sites {
			if s.Supports(tt.url) {
				got = s.Name()
				break
			}
		}
		if got != tt.want {
			t.Errorf("Supports(%q): got %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestExtractHouseType(t *testing.T) {
	tests := []struct {
		page string
		want string
	}{
		{"Property type: apartment", "Apartment"},
		{"Unit type: Duplex", "Duplex"},
		{"Lovely townhome near the park", "Townhouse"},
		{"Condo with a view", "Condo"},
		{"Spacious single-family home", "House"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := extractHouseType(tt.page); got != tt.want {
			t.Errorf("extractHouseType(%q) = %q; want %q", tt.page, got, tt.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo wörld", 5); got != "héllo" {
		t.Errorf("got %q, want héllo", got)
	}
	if got := truncateRunes("short", 50); got != "short" {
		t.Errorf("got %q, want short", got)
	}
}
