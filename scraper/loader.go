package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"rental-tracker/cache"
	"rental-tracker/utils"
)

const maxBodyBytes = 10 << 20

var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// HTTPLoaderConfig configures an HTTPLoader. Zero values pick sensible defaults.
type HTTPLoaderConfig struct {
	Client *http.Client
	// Cache serves and stores raw pages; CacheTTL <= 0 disables expiry.
	Cache    *cache.FactCache
	CacheTTL time.Duration
	// Robots, when set, gates every fetch on robots.txt.
	Robots *RobotsChecker
	Retry  *utils.RetryConfig
	// DomainInterval is the minimum spacing between requests to one host.
	DomainInterval time.Duration
	// UserAgent pins the User-Agent header; empty rotates a built-in list.
	UserAgent string
	Logger    *utils.Logger
}

// HTTPLoader fetches pages with net/http.
type HTTPLoader struct {
	client   *http.Client
	cache    *cache.FactCache
	cacheTTL time.Duration
	robots   *RobotsChecker
	retry    *utils.RetryConfig
	interval time.Duration
	ua       string
	next     atomic.Uint32
	logger   *utils.Logger

	mu     sync.Mutex
	pacers map[string]*utils.Pacer
}

// NewHTTPLoader creates an HTTPLoader from cfg.
func NewHTTPLoader(cfg HTTPLoaderConfig) *HTTPLoader {
	logger := cfg.Logger
	if logger == nil {
		logger = utils.Discard()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	fc := cfg.Cache
	if fc == nil {
		fc = cache.Unavailable(utils.NewHasher(utils.DefaultHashLength), logger)
	}
	retry := cfg.Retry
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1, Logger: logger}
	}
	return &HTTPLoader{
		client:   client,
		cache:    fc,
		cacheTTL: cfg.CacheTTL,
		robots:   cfg.Robots,
		retry:    retry,
		interval: cfg.DomainInterval,
		ua:       cfg.UserAgent,
		logger:   logger,
		pacers:   make(map[string]*utils.Pacer),
	}
}

// Load returns the page body for rawURL. 403 maps to ErrBlocked and 404 to
// ErrNotFound; neither is retried. Successful bodies go to the page cache.
func (h *HTTPLoader) Load(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("loader: invalid url %q", rawURL)
	}

	if page, ok := h.cache.GetPage(rawURL, h.cacheTTL); ok && page.StatusCode == http.StatusOK {
		h.logger.Debug("[loader] Page cache hit: %s", rawURL)
		return page.Content, nil
	}

	var crawlDelay time.Duration
	if h.robots != nil {
		allowed, delay, err := h.robots.CanFetch(ctx, rawURL)
		if err != nil {
			h.logger.Warn("[loader] robots.txt check failed for %s: %v", rawURL, err)
		} else if !allowed {
			return "", fmt.Errorf("%w: disallowed by robots.txt", ErrBlocked)
		}
		crawlDelay = delay
	}

	if err := h.pacer(u.Host, crawlDelay).Wait(ctx); err != nil {
		return "", fmt.Errorf("loader: rate limit: %w", err)
	}

	var (
		body    string
		headers map[string]string
	)
	err = h.retry.Do(ctx, "fetch "+rawURL, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return utils.Permanent(fmt.Errorf("build request: %w", err))
		}
		h.setHeaders(req)

		resp, err := h.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusForbidden:
			return utils.Permanent(ErrBlocked)
		case resp.StatusCode == http.StatusNotFound:
			return utils.Permanent(ErrNotFound)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("http %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return utils.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		body = string(b)
		headers = flattenHeaders(resp.Header)
		return nil
	})
	if err != nil {
		return "", err
	}

	h.cache.SetPage(rawURL, body, headers, http.StatusOK)
	return body, nil
}

func (h *HTTPLoader) setHeaders(req *http.Request) {
	ua := h.ua
	if ua == "" {
		ua = userAgents[int(h.next.Add(1)-1)%len(userAgents)]
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("DNT", "1")
}

// pacer returns the per-host pacer, created with the larger of the configured
// interval and the site's crawl delay.
func (h *HTTPLoader) pacer(host string, crawlDelay time.Duration) *utils.Pacer {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.pacers[host]; ok {
		return p
	}
	interval := h.interval
	if crawlDelay > interval {
		interval = crawlDelay
	}
	p := utils.NewPacer(interval)
	h.pacers[host] = p
	return p
}

func flattenHeaders(hdr http.Header) map[string]string {
	out := make(map[string]string, len(hdr))
	for k := range hdr {
		out[k] = hdr.Get(k)
	}
	return out
}
