package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/markusmobius/go-trafilatura"

	"rental-tracker/models"
)

// GenericSource extracts a best-effort listing from any http(s) page using
// main-content extraction. It is registered last, when enabled.
type GenericSource struct {
	loader PageLoader
	now    func() time.Time
}

// NewGenericSource creates the catch-all source.
func NewGenericSource(loader PageLoader) *GenericSource {
	return &GenericSource{loader: loader, now: time.Now}
}

func (g *GenericSource) Name() string { return "Generic" }

func (g *GenericSource) Supports(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (g *GenericSource) Fetch(ctx context.Context, rawURL string) (*models.Listing, error) {
	html, err := g.loader.Load(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return g.Parse(html, rawURL)
}

// Parse maps the page title to the address and the main text to the
// description, then runs the shared patterns over the main text.
func (g *GenericSource) Parse(html, rawURL string) (*models.Listing, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	result, err := trafilatura.Extract(strings.NewReader(html), trafilatura.Options{OriginalURL: u})
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	if result == nil {
		return nil, ErrNoAddress
	}
	address := cleanText(result.Metadata.Title)
	if address == "" {
		return nil, ErrNoAddress
	}

	text := cleanText(result.ContentText)
	return &models.Listing{
		URL:           rawURL,
		Address:       address,
		Price:         strings.ReplaceAll(rePrice.FindString(text), " ", ""),
		Beds:          submatch(reBeds, text),
		Baths:         submatch(reBaths, text),
		Sqft:          submatch(reSqft, text),
		HouseType:     extractHouseType(text),
		Description:   truncateRunes(text, maxDescriptionRunes),
		AvailableDate: extractAvailableDate(text),
		Parking:       extractParking(text),
		Utilities:     extractUtilities(text),
		ContactInfo:   rePhone.FindString(text),
		ScrapedAt:     g.now().UTC().Truncate(time.Second),
		Decision:      models.DefaultDecision,
	}, nil
}
