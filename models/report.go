package models

// Report summarizes the stored listings.
type Report struct {
	TotalListings  int
	PricedListings int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	Cheapest       *Listing
	MostExpensive  *Listing
	WithNotes      int
	ByDecision     map[Decision]int
	ByHouseType    map[string]int
	// Shortlist holds listings the operator is pursuing, cheapest first.
	Shortlist []*Listing
}
