package scraper

import (
	"context"
	"fmt"

	"rental-tracker/models"
	"rental-tracker/utils"
)

// Registry is the ordered list of sources consulted for every URL. It is
// built once at startup and handed to the tracker.
type Registry struct {
	sources []Source
	logger  *utils.Logger
}

// NewRegistry returns a Registry that consults sources in the given order.
func NewRegistry(logger *utils.Logger, sources ...Source) *Registry {
	return &Registry{sources: sources, logger: logger}
}

// Register appends a source at the lowest priority.
func (r *Registry) Register(s Source) {
	r.sources = append(r.sources, s)
}

// Lookup returns the first source that supports url.
func (r *Registry) Lookup(url string) (Source, bool) {
	for _, s := range r.sources {
		if s.Supports(url) {
			return s, true
		}
	}
	return nil, false
}

// Fetch selects a source for url and fetches the listing through it.
func (r *Registry) Fetch(ctx context.Context, url string) (*models.Listing, error) {
	s, ok := r.Lookup(url)
	if !ok {
		r.logger.Warn("[registry] No source for URL: %s", url)
		return nil, fmt.Errorf("%w: %s", ErrNoSource, url)
	}
	r.logger.Info("[%s] Fetching %s", s.Name(), url)
	l, err := s.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	return l, nil
}

// Names lists the registered source names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.sources))
	for i, s := range r.sources {
		names[i] = s.Name()
	}
	return names
}
