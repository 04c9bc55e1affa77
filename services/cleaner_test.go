package services

import (
	"reflect"
	"testing"

	"rental-tracker/models"
	"rental-tracker/utils"
)

func newTestLogger() *utils.Logger { return utils.Discard() }

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"$2,450/mo", 2450},
		{"$1,200 - $1,500", 1200},
		{"$600/wk", 2600},
		{"$600 per week", 2600},
		{"", 0},
		{"Call for pricing", 0},
		{"$1,200.50", 1200.50},
	}

	for _, tt := range tests {
		got := ParsePrice(tt.raw)
		if got != tt.want {
			t.Errorf("ParsePrice(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerNormalizesListing(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := &models.Listing{
		URL:         "  https://www.zillow.com/homedetails/1  ",
		Address:     "  123   Main St\n Austin ",
		Price:       "$ 2,450",
		Description: "Bright\t\tand airy",
		Amenities:   []string{" Dishwasher ", "dishwasher", "", "Washer, Dryer"},
		Decision:    "shortlisted",
	}

	got := c.Clean(raw)
	if got.URL != "https://www.zillow.com/homedetails/1" {
		t.Errorf("URL: got %q", got.URL)
	}
	if got.Address != "123 Main St Austin" {
		t.Errorf("Address: got %q", got.Address)
	}
	if got.Price != "$2,450" {
		t.Errorf("Price: got %q", got.Price)
	}
	if got.Description != "Bright and airy" {
		t.Errorf("Description: got %q", got.Description)
	}
	if want := []string{"Dishwasher", "Washer; Dryer"}; !reflect.DeepEqual(got.Amenities, want) {
		t.Errorf("Amenities: got %v, want %v", got.Amenities, want)
	}
	if got.Decision != models.DecisionShortlisted {
		t.Errorf("Decision: got %q", got.Decision)
	}
	if raw.Address != "  123   Main St\n Austin " {
		t.Error("Clean should not modify its input")
	}
}

func TestCleanerKeepsPlaceholderFlag(t *testing.T) {
	c := NewCleaner(newTestLogger())
	got := c.Clean(models.Placeholder("https://a.example/1", nil))
	if !got.Unavailable {
		t.Error("placeholder flag lost during cleaning")
	}
	if got.Decision != models.DefaultDecision {
		t.Errorf("Decision: got %q", got.Decision)
	}
}

func TestCleanerDropsBlankAndCommentURLs(t *testing.T) {
	c := NewCleaner(newTestLogger())
	got := c.CleanURLs([]string{"", "  ", "# zillow picks", "https://a.example/1"})
	if want := []string{"https://a.example/1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCleanerDeduplicatesURLs(t *testing.T) {
	c := NewCleaner(newTestLogger())
	got := c.CleanURLs([]string{"https://a.example/1", " https://a.example/1", "https://b.example/2"})
	if want := []string{"https://a.example/1", "https://b.example/2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
