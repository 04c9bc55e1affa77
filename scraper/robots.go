package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

const maxCrawlDelay = 10 * time.Second

// RobotsChecker fetches and memoizes robots.txt per origin.
type RobotsChecker struct {
	cache     *gocache.Cache
	userAgent string
	client    *http.Client
}

// NewRobotsChecker creates a checker that keeps parsed files for a day.
func NewRobotsChecker(userAgent string, client *http.Client) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsChecker{
		cache:     gocache.New(24*time.Hour, time.Hour),
		userAgent: userAgent,
		client:    client,
	}
}

// CanFetch reports whether rawURL may be fetched and the crawl delay the site
// asks for. A missing or unreadable robots.txt allows everything.
func (rc *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("robots: invalid url: %w", err)
	}
	origin := u.Scheme + "://" + u.Host

	if cached, found := rc.cache.Get(origin); found {
		return rc.test(cached.(*robotstxt.RobotsData), u)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return false, 0, fmt.Errorf("robots: build request: %w", err)
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		return true, 0, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return true, 0, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return true, 0, nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return true, 0, nil
	}
	rc.cache.Set(origin, data, gocache.DefaultExpiration)
	return rc.test(data, u)
}

func (rc *RobotsChecker) test(data *robotstxt.RobotsData, u *url.URL) (bool, time.Duration, error) {
	group := data.FindGroup(rc.userAgent)
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	delay := group.CrawlDelay
	if delay > maxCrawlDelay {
		delay = maxCrawlDelay
	}
	return group.Test(path), delay, nil
}
