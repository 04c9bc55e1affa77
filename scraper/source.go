// Package scraper turns a listing URL into a models.Listing. Each supported
// site is a Source; the Registry picks the first Source whose Supports
// reports true. Page bytes come from a PageLoader (plain HTTP or headless
// Chrome) so extraction can be tested against static HTML.
package scraper

import (
	"context"
	"errors"

	"rental-tracker/models"
)

var (
	// ErrNoSource is returned when no registered Source supports a URL.
	ErrNoSource = errors.New("scraper: no source supports url")
	// ErrBlocked covers HTTP 403 and robots.txt disallow.
	ErrBlocked = errors.New("scraper: request blocked")
	// ErrNotFound is returned for HTTP 404.
	ErrNotFound = errors.New("scraper: listing not found")
	// ErrNoAddress is returned when a page parses but carries no address.
	ErrNoAddress = errors.New("scraper: no address on page")
)

// Source produces a best-effort Listing for URLs it supports.
type Source interface {
	Name() string
	Supports(url string) bool
	Fetch(ctx context.Context, url string) (*models.Listing, error)
}

// PageLoader returns the HTML of a page.
type PageLoader interface {
	Load(ctx context.Context, url string) (string, error)
}
