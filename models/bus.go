package models

import (
	"database/sql"
	"fmt"
	"time"
)

// RawListing holds unprocessed scraped data directly from the browser.
// This is written to CSV before any cleaning or transformation.
type RawListing struct {
	RouteName      string
	RouteLink      string
	BusName        string
	BusType        string
	DepartingTime  string
	Duration       string
	ReachingTime   string
	StarRating     string
	Price          string
	SeatsAvailable string
	ScrapedAt      time.Time
}

// BusRoute is the normalized record stored in PostgreSQL.
type BusRoute struct {
	RouteName     string
	RouteLink     string
	BusName       string
	BusType       string
	DepartingTime Clock
	Duration      string
	ReachingTime  Clock
	StarRating    float64
	PriceINR      float64
	TotalSeats    int
	WindowSeats   int
	DepartingDate time.Time
	ReachingDate  sql.NullTime
}

// SeatsSummary renders the combined seat string stored in RawListing.SeatsAvailable.
// An empty window count omits the window clause.
func SeatsSummary(seats, window string) string {
	if window == "" {
		return fmt.Sprintf("%s Seats", seats)
	}
	return fmt.Sprintf("%s Seats | %s Window", seats, window)
}
