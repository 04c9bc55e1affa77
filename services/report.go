package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"rental-tracker/models"
	"rental-tracker/utils"
)

// ReportService builds and prints the overview of stored listings.
type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

func (s *ReportService) Generate(listings []*models.Listing) *models.Report {
	report := &models.Report{
		ByDecision:  make(map[models.Decision]int),
		ByHouseType: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	type priced struct {
		l     *models.Listing
		price float64
	}
	var pricedListings []priced

	for _, l := range listings {
		report.ByDecision[models.NormalizeDecision(string(l.Decision))]++
		if l.HouseType != "" {
			report.ByHouseType[l.HouseType]++
		}
		if l.Notes != "" {
			report.WithNotes++
		}
		if p := ParsePrice(l.Price); p > 0 {
			pricedListings = append(pricedListings, priced{l, p})
		}
	}

	// Price stats (only listings with a parseable price)
	if len(pricedListings) > 0 {
		report.PricedListings = len(pricedListings)
		report.MinPrice = pricedListings[0].price
		report.MaxPrice = pricedListings[0].price
		report.Cheapest = pricedListings[0].l
		report.MostExpensive = pricedListings[0].l
		var total float64
		for _, p := range pricedListings {
			total += p.price
			if p.price < report.MinPrice {
				report.MinPrice = p.price
				report.Cheapest = p.l
			}
			if p.price > report.MaxPrice {
				report.MaxPrice = p.price
				report.MostExpensive = p.l
			}
		}
		report.AveragePrice = round2(total / float64(len(pricedListings)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	for _, l := range listings {
		switch l.Decision {
		case models.DecisionInterested, models.DecisionShortlisted, models.DecisionAppointmentScheduled:
			report.Shortlist = append(report.Shortlist, l)
		}
	}
	sort.SliceStable(report.Shortlist, func(i, j int) bool {
		pi, pj := ParsePrice(report.Shortlist[i].Price), ParsePrice(report.Shortlist[j].Price)
		if pi == 0 || pj == 0 {
			return pi != 0
		}
		return pi < pj
	})

	return report
}

func (s *ReportService) Print(w io.Writer, r *models.Report) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🏠 RENTAL LISTINGS REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings      : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Listings with notes : \033[1m%d\033[0m\n", r.WithNotes)
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics (per month)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m$%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m$%.2f\033[0m  %s\n", r.MinPrice, truncate(r.Cheapest.Address, 36))
		fmt.Fprintf(w, "  Maximum price : \033[1;32m$%.2f\033[0m  %s\n", r.MaxPrice, truncate(r.MostExpensive.Address, 36))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	// Decisions, in drop-down order
	fmt.Fprintf(w, "\033[1;33m  Listings by Decision\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, d := range models.DecisionOptions() {
		n := r.ByDecision[d]
		fmt.Fprintf(w, "  %-24s %s (%d)\n", d, strings.Repeat("█", n), n)
	}
	fmt.Fprintln(w)

	// House types by count descending
	fmt.Fprintf(w, "\033[1;33m  Listings by House Type\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ByHouseType) == 0 {
		fmt.Fprintf(w, "  No house type data\n")
	} else {
		type typeCount struct {
			kind  string
			count int
		}
		var types []typeCount
		for k, n := range r.ByHouseType {
			types = append(types, typeCount{k, n})
		}
		sort.Slice(types, func(i, j int) bool {
			if types[i].count != types[j].count {
				return types[i].count > types[j].count
			}
			return types[i].kind < types[j].kind
		})
		for _, tc := range types {
			fmt.Fprintf(w, "  %-24s %s (%d)\n", truncate(tc.kind, 22), strings.Repeat("█", tc.count), tc.count)
		}
	}
	fmt.Fprintln(w)

	// ── SHORTLIST ────────────────────────────────────────────────────────
	fmt.Fprintf(w, "\033[1;33m  Shortlist\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Shortlist) == 0 {
		fmt.Fprintf(w, "  Nothing shortlisted yet\n")
	} else {
		for i, l := range r.Shortlist {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-36s %-10s %s\n",
				i+1, truncate(l.Address, 34), l.Price, l.Decision)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
