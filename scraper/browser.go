package scraper

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"rental-tracker/cache"
	"rental-tracker/utils"
)

const defaultBrowserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// BrowserLoader renders pages in headless Chrome for sites that build their
// listing markup with JavaScript.
type BrowserLoader struct {
	chromeBin string
	userAgent string
	settle    time.Duration
	timeout   time.Duration
	cache     *cache.FactCache
	cacheTTL  time.Duration
	retry     *utils.RetryConfig
	logger    *utils.Logger
}

// NewBrowserLoader creates a BrowserLoader. An empty chromeBin searches the
// usual install locations.
func NewBrowserLoader(chromeBin, userAgent string, timeout time.Duration, fc *cache.FactCache,
	cacheTTL time.Duration, retry *utils.RetryConfig, logger *utils.Logger) *BrowserLoader {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	if userAgent == "" {
		userAgent = defaultBrowserUA
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = utils.Discard()
	}
	if fc == nil {
		fc = cache.Unavailable(utils.NewHasher(utils.DefaultHashLength), logger)
	}
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1, Logger: logger}
	}
	return &BrowserLoader{
		chromeBin: chromeBin,
		userAgent: userAgent,
		settle:    4 * time.Second,
		timeout:   timeout,
		cache:     fc,
		cacheTTL:  cacheTTL,
		retry:     retry,
		logger:    logger,
	}
}

// Load navigates to rawURL, waits for the page to settle and returns the
// rendered document.
func (b *BrowserLoader) Load(ctx context.Context, rawURL string) (string, error) {
	if page, ok := b.cache.GetPage(rawURL, b.cacheTTL); ok && page.StatusCode == http.StatusOK {
		b.logger.Debug("[browser] Page cache hit: %s", rawURL)
		return page.Content, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(b.userAgent),
	)
	if b.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(b.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	var html string
	err := b.retry.Do(ctx, "render "+rawURL, func(context.Context) error {
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
		defer cancelTimeout()

		err := chromedp.Run(tabCtx,
			chromedp.Navigate(rawURL),
			chromedp.Sleep(b.settle),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(time.Second),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil {
			return fmt.Errorf("chromedp render: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	b.cache.SetPage(rawURL, html, nil, http.StatusOK)
	return html, nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
