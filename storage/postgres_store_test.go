package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"busroute-scraper/models"
	"busroute-scraper/utils"
)

func setupStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("needs docker")
	}

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "root",
				"POSTGRES_DB":       "redbus_db",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := pg.Terminate(context.Background()); err != nil {
			t.Fatal(err)
		}
	})

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=postgres password=root dbname=redbus_db sslmode=disable", host, port.Port())
	store, err := OpenPostgres(ctx, dsn, "bus_routes", utils.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.CreateSchema(ctx))
	return store
}

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleRoutes() []*models.BusRoute {
	return []*models.BusRoute{
		{
			RouteName: "KSRTC_Bangalore to Mysore", RouteLink: "https://www.redbus.in/bus-tickets/bangalore-to-mysore",
			BusName: "Airavat", BusType: "Volvo A/C", DepartingTime: models.NewClock(6, 15), Duration: "3h 0m",
			ReachingTime: models.NewClock(9, 15), StarRating: 4.3, PriceINR: 450, TotalSeats: 32, WindowSeats: 8,
			DepartingDate: day(time.January, 14), ReachingDate: sql.NullTime{Time: day(time.January, 14), Valid: true},
		},
		{
			RouteName: "KSRTC_Mysore to Bangalore", BusName: "Rajahamsa", DepartingTime: models.NewClock(22, 40),
			Duration: "3h 30m", ReachingTime: models.NewClock(2, 10), StarRating: 3.5, PriceINR: 1250,
			TotalSeats: 40, WindowSeats: 0, DepartingDate: day(time.January, 14),
		},
		{
			RouteName: "APSRTC_Vijayawada to Hyderabad", BusName: "Amaravati", Duration: "0h 0m",
			DepartingDate: day(time.January, 14),
		},
	}
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSchema(ctx), "schema creation must be repeatable")
	require.NoError(t, store.AppendRows(ctx, sampleRoutes()))

	all, err := store.Search(ctx, models.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	got := all[1]
	assert.Equal(t, "KSRTC_Bangalore to Mysore", got.RouteName)
	assert.Equal(t, models.NewClock(6, 15), got.DepartingTime)
	assert.Equal(t, 4.3, got.StarRating)
	assert.Equal(t, 32, got.TotalSeats)
	assert.True(t, got.ReachingDate.Valid)

	assert.False(t, all[0].DepartingTime.Valid, "unparsed clock is stored as NULL")

	agencies, err := store.Agencies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"APSRTC", "KSRTC"}, agencies)

	choices, err := store.RoutesForAgency(ctx, "KSRTC")
	require.NoError(t, err)
	assert.Equal(t, []models.RouteChoice{
		{Display: "Bangalore to Mysore", RouteName: "KSRTC_Bangalore to Mysore"},
		{Display: "Mysore to Bangalore", RouteName: "KSRTC_Mysore to Bangalore"},
	}, choices)

	bounds, err := store.Bounds(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Bounds{MaxSeats: 40, MaxPrice: 1250}, bounds)
}

func TestPostgresStoreSearchFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRows(ctx, sampleRoutes()))

	night, err := models.ParseTimeRange("22:30 - 23:00")
	require.NoError(t, err)
	got, err := store.Search(ctx, models.SearchFilter{Departure: night})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rajahamsa", got[0].BusName)

	window := 1
	maxPrice := 1000.0
	got, err = store.Search(ctx, models.SearchFilter{MinWindowSeats: &window, MaxPrice: &maxPrice})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Airavat", got[0].BusName)

	got, err = store.Search(ctx, models.SearchFilter{RouteName: "KSRTC_Nowhere"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPostgresStoreFractionalMaxPriceStaysSearchable(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	routes := sampleRoutes()
	routes[1].PriceINR = 1299.50
	require.NoError(t, store.AppendRows(ctx, routes))

	bounds, err := store.Bounds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1300, bounds.MaxPrice)

	maxPrice := float64(bounds.MaxPrice)
	got, err := store.Search(ctx, models.SearchFilter{RouteName: "KSRTC_Mysore to Bangalore", MaxPrice: &maxPrice})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1299.50, got[0].PriceINR)
}

func TestPostgresStoreEmptyTableBounds(t *testing.T) {
	store := setupStore(t)

	bounds, err := store.Bounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultBounds, bounds)
}
