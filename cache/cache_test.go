package cache

import (
	"path/filepath"
	"testing"
	"time"

	"rental-tracker/utils"
)

const listingURL = "https://www.zillow.com/homedetails/42"

func openTestCache(t *testing.T) *FactCache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), utils.NewHasher(8), utils.Discard())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSetAndGetHash(t *testing.T) {
	c := openTestCache(t)

	if _, ok := c.GetHash(listingURL, "price"); ok {
		t.Fatal("fresh cache should not have a hash")
	}

	c.SetHash(listingURL, "price", "$1,200")
	got, ok := c.GetHash(listingURL, "price")
	if !ok {
		t.Fatal("hash should be present after SetHash")
	}
	if want := c.Hasher().Sum("$1,200"); got != want {
		t.Errorf("hash: got %q, want %q", got, want)
	}

	c.SetHash(listingURL, "price", "$1,250")
	got, _ = c.GetHash(listingURL, "price")
	if want := c.Hasher().Sum("$1,250"); got != want {
		t.Errorf("hash after update: got %q, want %q", got, want)
	}
}

func TestSetHashEmptyClears(t *testing.T) {
	c := openTestCache(t)

	c.SetHash(listingURL, "notes", "")
	if _, ok := c.GetHash(listingURL, "notes"); ok {
		t.Error("empty value must not create a hash")
	}

	c.SetHash(listingURL, "notes", "call landlord")
	c.SetHash(listingURL, "notes", "")
	if _, ok := c.GetHash(listingURL, "notes"); ok {
		t.Error("setting an empty value should clear the existing hash")
	}
}

func TestGetAllAndClearHashes(t *testing.T) {
	c := openTestCache(t)
	other := "https://www.trulia.com/p/7"

	c.SetHash(listingURL, "price", "$900")
	c.SetHash(listingURL, "beds", "2")
	c.SetHash(listingURL, "notes", "nice")
	c.SetHash(other, "price", "$1,000")

	all := c.GetAllHashes(listingURL)
	if len(all) != 3 {
		t.Fatalf("GetAllHashes: got %d entries, want 3", len(all))
	}

	c.ClearSpecificHashes(listingURL, []string{"beds", "missing"})
	all = c.GetAllHashes(listingURL)
	if _, ok := all["beds"]; ok || len(all) != 2 {
		t.Errorf("after ClearSpecificHashes: got %v", all)
	}

	c.ClearHashes(listingURL)
	if n := len(c.GetAllHashes(listingURL)); n != 0 {
		t.Errorf("after ClearHashes: got %d entries, want 0", n)
	}
	if n := len(c.GetAllHashes(other)); n != 1 {
		t.Errorf("other URL must be untouched: got %d entries, want 1", n)
	}
}

func TestReplaceHashes(t *testing.T) {
	c := openTestCache(t)
	c.SetHash(listingURL, "price", "$900")
	c.SetHash(listingURL, "parking", "garage")

	c.ReplaceHashes(listingURL, map[string]string{
		"price": "aaaaaaaa",
		"beds":  "bbbbbbbb",
		"sqft":  "",
	})

	all := c.GetAllHashes(listingURL)
	if len(all) != 2 {
		t.Fatalf("got %v, want exactly price and beds", all)
	}
	if all["price"] != "aaaaaaaa" || all["beds"] != "bbbbbbbb" {
		t.Errorf("unexpected hashes: %v", all)
	}
	if _, ok := all["parking"]; ok {
		t.Error("parking should have been replaced away")
	}
}

func TestPageCacheTTL(t *testing.T) {
	c := openTestCache(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	c.SetPage(listingURL, "<html>ok</html>", map[string]string{"Content-Type": "text/html"}, 200)

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	p, ok := c.GetPage(listingURL, 3*time.Hour)
	if !ok {
		t.Fatal("page should be fresh within TTL")
	}
	if p.Content != "<html>ok</html>" || p.StatusCode != 200 {
		t.Errorf("unexpected page: %+v", p)
	}
	if p.Headers["Content-Type"] != "text/html" {
		t.Errorf("headers: got %v", p.Headers)
	}

	if _, ok := c.GetPage(listingURL, time.Hour); ok {
		t.Error("page older than maxAge should be a miss")
	}
	if _, ok := c.GetPage("https://unknown.example/1", time.Hour); ok {
		t.Error("unknown URL should be a miss")
	}
}

func TestClearExpiredAndStats(t *testing.T) {
	c := openTestCache(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	c.now = func() time.Time { return base.Add(-48 * time.Hour) }
	c.SetPage("https://a.example/old", "old", nil, 200)
	c.now = func() time.Time { return base }
	c.SetPage("https://a.example/new", "newer", nil, 200)
	c.SetHash(listingURL, "price", "$1")
	c.SetHash(listingURL, "beds", "1")
	c.SetHash("https://a.example/new", "price", "$2")

	s := c.Stats()
	if s.TotalPages != 2 || s.RecentPages != 1 {
		t.Errorf("pages: got total=%d recent=%d, want 2/1", s.TotalPages, s.RecentPages)
	}
	if s.TotalBytes != int64(len("old")+len("newer")) {
		t.Errorf("TotalBytes: got %d", s.TotalBytes)
	}
	if s.TotalHashes != 3 || s.URLsWithHashes != 2 {
		t.Errorf("hashes: got total=%d urls=%d, want 3/2", s.TotalHashes, s.URLsWithHashes)
	}

	if n := c.ClearExpired(24 * time.Hour); n != 1 {
		t.Errorf("ClearExpired: got %d, want 1", n)
	}
	if _, ok := c.GetPage("https://a.example/new", 0); !ok {
		t.Error("recent page should survive ClearExpired")
	}
	if n := c.ClearPages(); n != 1 {
		t.Errorf("ClearPages: got %d, want 1", n)
	}
	if c.Stats().TotalHashes != 3 {
		t.Error("page clearing must not touch field hashes")
	}
}

func TestUnavailableCacheDegrades(t *testing.T) {
	c := Unavailable(utils.NewHasher(8), utils.Discard())
	if c.Available() {
		t.Fatal("Unavailable cache should report unavailable")
	}

	c.SetHash(listingURL, "notes", "kept")
	c.ReplaceHashes(listingURL, map[string]string{"notes": "x"})
	c.SetPage(listingURL, "body", nil, 200)
	c.ClearHashes(listingURL)

	if len(c.GetAllHashes(listingURL)) != 0 {
		t.Error("unavailable cache should return no hashes")
	}
	if _, ok := c.GetPage(listingURL, 0); ok {
		t.Error("unavailable cache should miss pages")
	}
	if c.Stats() != (Stats{}) {
		t.Error("unavailable cache stats should be zero")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
