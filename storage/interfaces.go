package storage

import (
	"context"

	"busroute-scraper/models"
)

// RouteWriter is the interface any storage backend for normalized routes must satisfy.
type RouteWriter interface {
	CreateSchema(ctx context.Context) error
	AppendRows(ctx context.Context, routes []*models.BusRoute) error
	Close() error
}

// RawListingWriter is the interface for persisting unprocessed scraped data.
type RawListingWriter interface {
	WriteRaw(listings []*models.RawListing) error
	Close() error
}

// RouteSearcher serves the search UI and the search command.
type RouteSearcher interface {
	Agencies(ctx context.Context) ([]string, error)
	RoutesForAgency(ctx context.Context, agency string) ([]models.RouteChoice, error)
	Bounds(ctx context.Context) (models.Bounds, error)
	Search(ctx context.Context, filter models.SearchFilter) ([]*models.BusRoute, error)
}
