package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"rental-tracker/models"
)

// Selectors lists CSS selectors tried in order for each field. Fields without
// selectors, or whose selectors miss, fall back to patterns over the page text.
type Selectors struct {
	Address     []string
	Price       []string
	BedBath     []string
	Sqft        []string
	Description []string
	Amenities   []string
	Contact     []string
}

// SiteSource scrapes one listing site with a selector table.
type SiteSource struct {
	name   string
	hosts  []string
	sel    Selectors
	loader PageLoader
	now    func() time.Time
}

// NewSiteSource creates a source for the given hosts. A host matches itself
// and any subdomain.
func NewSiteSource(name string, hosts []string, sel Selectors, loader PageLoader) *SiteSource {
	return &SiteSource{name: name, hosts: hosts, sel: sel, loader: loader, now: time.Now}
}

func (s *SiteSource) Name() string { return s.name }

func (s *SiteSource) Supports(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range s.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (s *SiteSource) Fetch(ctx context.Context, rawURL string) (*models.Listing, error) {
	html, err := s.loader.Load(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.Parse(html, rawURL)
}

// Parse extracts a listing from a page already in hand.
func (s *SiteSource) Parse(html, rawURL string) (*models.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	page := cleanText(doc.Find("body").Text())

	address := firstText(doc, s.sel.Address, 6)
	if address == "" {
		return nil, ErrNoAddress
	}

	base, _ := url.Parse(rawURL)
	beds, baths := extractBedsBaths(doc, s.sel.BedBath, page)

	return &models.Listing{
		URL:            rawURL,
		Address:        address,
		Price:          extractPrice(doc, s.sel.Price, page),
		Beds:           beds,
		Baths:          baths,
		Sqft:           extractSqft(doc, s.sel.Sqft, page),
		HouseType:      extractHouseType(page),
		Description:    extractDescription(doc, s.sel.Description),
		Amenities:      extractAmenities(doc, s.sel.Amenities, page),
		AvailableDate:  extractAvailableDate(page),
		Parking:        extractParking(page),
		Utilities:      extractUtilities(page),
		ContactInfo:    extractContact(doc, s.sel.Contact, page),
		AppointmentURL: extractAppointmentURL(doc, base),
		ScrapedAt:      s.now().UTC().Truncate(time.Second),
		Decision:       models.DefaultDecision,
	}, nil
}

var commonDescription = []string{
	`[data-testid="description"]`, ".description", ".property-description", ".listing-description",
}

var commonContact = []string{
	".contact-phone", ".phone-number", `[data-testid="contact-phone"]`, ".contact-info",
}

// DefaultSites returns the built-in site sources in lookup order.
func DefaultSites(loader PageLoader) []Source {
	return []Source{
		NewSiteSource("Trulia", []string{"trulia.com"}, Selectors{
			Address:     []string{"h1", ".property-address", ".address", `[data-testid="address"]`, ".property-title"},
			Price:       []string{".price", ".rent-price", `[data-testid="price"]`, ".property-price", ".price-info", "h2", ".price-display", ".rent-amount"},
			Description: commonDescription,
			Contact:     commonContact,
		}, loader),
		NewSiteSource("Zillow", []string{"zillow.com"}, Selectors{
			Address: []string{
				`h1[data-testid="home-details-summary-address"]`, ".home-details-summary-address",
				`[data-testid="address"]`, "h1", ".property-address", ".property-title",
			},
			Price: []string{
				`[data-testid="price"]`, ".price", ".rent-price", `[data-testid="rent-price"]`,
				".property-price", ".price-info .price",
			},
			BedBath: []string{
				`[data-testid="bed-bath-brief"]`, ".bed-bath-brief", ".property-info",
				".property-details", ".property-info-summary", ".bed-bath-info",
			},
			Sqft:        []string{`[data-testid="sqft"]`, ".sqft", ".property-sqft"},
			Description: commonDescription,
			Amenities: []string{
				`[data-testid="amenities"]`, ".amenities", ".features", ".property-features", ".property-amenities",
			},
			Contact: commonContact,
		}, loader),
		NewSiteSource("Rent.com", []string{"rent.com"}, Selectors{
			Address:     []string{`[data-tid="property-address"]`, ".property-address", "h1", ".address"},
			Price:       []string{`[data-tid="price"]`, ".price", ".rent-price", ".price-range"},
			BedBath:     []string{`[data-tid="beds-baths"]`, ".beds-baths"},
			Description: commonDescription,
			Amenities:   []string{`[data-tid="amenities"]`, ".amenities"},
			Contact:     commonContact,
		}, loader),
		NewSiteSource("Apartments.com", []string{"apartments.com"}, Selectors{
			Address:     []string{".property-address", ".address", "h1", ".property-title"},
			Price:       []string{".price", ".rent-price", ".property-price", ".price-info", ".rentInfoDetail"},
			BedBath:     []string{".priceBedRangeInfo", ".bed-range"},
			Description: []string{"#descriptionSection", ".description", ".property-description"},
			Amenities:   []string{"#amenitiesSection", ".amenities"},
			Contact:     []string{".phoneNumber", ".propertyPhone", ".contact-phone"},
		}, loader),
		NewSiteSource("Craigslist", []string{"craigslist.org"}, Selectors{
			Address:     []string{".mapaddress", ".postingtitle", ".address", "h1"},
			Price:       []string{".price", ".postingtitle"},
			BedBath:     []string{".housing", ".attrgroup"},
			Sqft:        []string{".housing", ".attrgroup"},
			Description: []string{"#postingbody", ".description"},
			Amenities:   []string{".attrgroup"},
		}, loader),
		NewSiteSource("Redfin", []string{"redfin.com"}, Selectors{
			Address:     []string{".property-address", ".address", `[data-rf-test-id="abp-streetLine"]`, "h1", ".property-title"},
			Price:       []string{".price", ".property-price", ".price-info", `[data-rf-test-id="abp-price"]`},
			BedBath:     []string{".home-main-stats-variant", ".stats"},
			Sqft:        []string{`[data-rf-test-id="abp-sqFt"]`, ".sqft-section"},
			Description: []string{"#marketing-remarks-scroll", ".remarks", ".description"},
			Amenities:   []string{".amenities-container", ".amenities"},
			Contact:     commonContact,
		}, loader),
		NewSiteSource("HotPads", []string{"hotpads.com"}, Selectors{
			Address:     []string{"h1", ".property-address", ".address", `[data-testid="address"]`, ".property-title", ".listing-address"},
			Price:       []string{".price", ".rent-price", `[data-testid="price"]`, ".property-price", ".price-info", ".rent-amount"},
			Description: commonDescription,
			Contact:     commonContact,
		}, loader),
	}
}
