package models

// RunReport holds the summary computed over one scrape run.
type RunReport struct {
	TotalRoutes      int
	TotalListings    int
	ListingsByAgency map[string]int
	AveragePrice     float64
	MinPrice         float64
	MaxPrice         float64
	Cheapest         *BusRoute
	TopRated         []*BusRoute
	MissingReachDate int
}
