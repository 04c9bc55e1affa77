package services

import (
	"bytes"
	"strings"
	"testing"

	"rental-tracker/models"
)

func sampleListings() []*models.Listing {
	return []*models.Listing{
		{URL: "https://www.zillow.com/a", Address: "1 Oak St", Price: "$2,000/mo", HouseType: "Apartment", Decision: models.DecisionShortlisted, Notes: "sunny"},
		{URL: "https://www.zillow.com/b", Address: "2 Elm St", Price: "$1,500", HouseType: "Apartment", Decision: models.DecisionInterested},
		{URL: "https://www.trulia.com/c", Address: "3 Ash Ct", Price: "$600/wk", HouseType: "House", Decision: models.DecisionRejected},
		{URL: "https://www.redfin.com/d", Address: "4 Fir Rd", Price: "Call for pricing", Decision: models.DecisionAppointmentScheduled, Notes: "Tue 5pm"},
		{URL: "https://hotpads.com/e", Address: "5 Yew Ln", Price: "$1,000", HouseType: "Condo"},
	}
}

func TestReportCounts(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(sampleListings())
	if r.TotalListings != 5 {
		t.Errorf("TotalListings: got %d, want 5", r.TotalListings)
	}
	if r.PricedListings != 4 {
		t.Errorf("PricedListings: got %d, want 4", r.PricedListings)
	}
	if r.WithNotes != 2 {
		t.Errorf("WithNotes: got %d, want 2", r.WithNotes)
	}
}

func TestReportPrices(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(sampleListings())
	wantAvg := 1775.0
	if r.AveragePrice != wantAvg {
		t.Errorf("AveragePrice: got %.2f, want %.2f", r.AveragePrice, wantAvg)
	}
	if r.MinPrice != 1000 {
		t.Errorf("MinPrice: got %.2f, want 1000", r.MinPrice)
	}
	if r.MaxPrice != 2600 {
		t.Errorf("MaxPrice: got %.2f, want 2600", r.MaxPrice)
	}
	if r.Cheapest == nil || r.Cheapest.Address != "5 Yew Ln" {
		t.Errorf("Cheapest: got %+v", r.Cheapest)
	}
	if r.MostExpensive == nil || r.MostExpensive.Address != "3 Ash Ct" {
		t.Errorf("MostExpensive: got %+v", r.MostExpensive)
	}
}

func TestReportGrouping(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(sampleListings())
	if r.ByHouseType["Apartment"] != 2 {
		t.Errorf("Apartment count: got %d, want 2", r.ByHouseType["Apartment"])
	}
	if _, ok := r.ByHouseType[""]; ok {
		t.Error("empty house type should not be counted")
	}
	// The empty decision counts as the default.
	if r.ByDecision[models.DefaultDecision] != 1 {
		t.Errorf("default decision count: got %d, want 1", r.ByDecision[models.DefaultDecision])
	}
}

func TestReportShortlistOrder(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(sampleListings())

	var got []string
	for _, l := range r.Shortlist {
		got = append(got, l.Address)
	}
	want := []string{"2 Elm St", "1 Oak St", "4 Fir Rd"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Shortlist: got %v, want %v", got, want)
	}
}

func TestReportEmptyInput(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(nil)
	if r.TotalListings != 0 || r.Cheapest != nil {
		t.Errorf("empty report: got %+v", r)
	}

	var buf bytes.Buffer
	svc.Print(&buf, r)
	if !strings.Contains(buf.String(), "No price data available") {
		t.Error("empty report should say there is no price data")
	}
}

func TestReportPrint(t *testing.T) {
	svc := NewReportService(newTestLogger())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sampleListings()))

	out := buf.String()
	for _, want := range []string{"RENTAL LISTINGS REPORT", "$1775.00", "Shortlist", "2 Elm St"} {
		if !strings.Contains(out, want) {
			t.Errorf("report output missing %q", want)
		}
	}
}

func TestTruncateRuneSafe(t *testing.T) {
	if got := truncate("Café Street Lofts", 8); got != "Café ..." {
		t.Errorf("truncate: got %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate: got %q", got)
	}
}
