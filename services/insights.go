package services

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"busroute-scraper/models"
	"busroute-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarizes one run over the normalized listings of totalRoutes routes.
func (s *InsightService) Generate(routes []*models.BusRoute, totalRoutes int) *models.RunReport {
	report := &models.RunReport{
		TotalRoutes:      totalRoutes,
		ListingsByAgency: make(map[string]int),
	}

	if len(routes) == 0 {
		return report
	}

	report.TotalListings = len(routes)

	var priced []*models.BusRoute
	var rated []*models.BusRoute

	for _, r := range routes {
		report.ListingsByAgency[models.AgencyOf(r.RouteName)]++
		if r.PriceINR > 0 {
			priced = append(priced, r)
		}
		if r.StarRating > 0 {
			rated = append(rated, r)
		}
		if !r.ReachingDate.Valid {
			report.MissingReachDate++
		}
	}

	// Price stats (only listings with price > 0)
	if len(priced) > 0 {
		report.MinPrice = priced[0].PriceINR
		report.MaxPrice = priced[0].PriceINR
		report.Cheapest = priced[0]
		var total float64
		for _, r := range priced {
			total += r.PriceINR
			if r.PriceINR < report.MinPrice {
				report.MinPrice = r.PriceINR
				report.Cheapest = r
			}
			if r.PriceINR > report.MaxPrice {
				report.MaxPrice = r.PriceINR
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
	}

	// Top 5 by rating
	sort.SliceStable(rated, func(i, j int) bool {
		return rated[i].StarRating > rated[j].StarRating
	})
	if len(rated) > 5 {
		report.TopRated = rated[:5]
	} else {
		report.TopRated = rated
	}

	return report
}

// Print renders the report as tables.
func (s *InsightService) Print(w io.Writer, r *models.RunReport) {
	overview := table.NewWriter()
	overview.SetOutputMirror(w)
	overview.SetTitle("Scrape summary")
	overview.AppendRows([]table.Row{
		{"Routes scraped", r.TotalRoutes},
		{"Listings stored", r.TotalListings},
		{"Listings without reaching date", r.MissingReachDate},
	})
	if r.AveragePrice > 0 {
		overview.AppendSeparator()
		overview.AppendRows([]table.Row{
			{"Average price", fmt.Sprintf("₹%.2f", r.AveragePrice)},
			{"Minimum price", fmt.Sprintf("₹%.2f", r.MinPrice)},
			{"Maximum price", fmt.Sprintf("₹%.2f", r.MaxPrice)},
		})
	}
	if r.Cheapest != nil {
		overview.AppendRow(table.Row{"Cheapest", fmt.Sprintf("%s (%s)", r.Cheapest.BusName, r.Cheapest.RouteName)})
	}
	overview.Render()

	if len(r.ListingsByAgency) > 0 {
		agencies := table.NewWriter()
		agencies.SetOutputMirror(w)
		agencies.AppendHeader(table.Row{"Agency", "Listings"})

		type agencyCount struct {
			name  string
			count int
		}
		var counts []agencyCount
		for name, n := range r.ListingsByAgency {
			counts = append(counts, agencyCount{name, n})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].count != counts[j].count {
				return counts[i].count > counts[j].count
			}
			return counts[i].name < counts[j].name
		})
		for _, c := range counts {
			agencies.AppendRow(table.Row{c.name, c.count})
		}
		agencies.Render()
	}

	if len(r.TopRated) > 0 {
		top := table.NewWriter()
		top.SetOutputMirror(w)
		top.SetTitle("Top rated")
		top.AppendHeader(table.Row{"#", "Bus", "Route", "Rating"})
		for i, b := range r.TopRated {
			top.AppendRow(table.Row{i + 1, truncate(b.BusName, 38), truncate(b.RouteName, 48), fmt.Sprintf("%.1f", b.StarRating)})
		}
		top.SetColumnConfigs([]table.ColumnConfig{{Number: 4, Align: text.AlignRight}})
		top.Render()
	}
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
