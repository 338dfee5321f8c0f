package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busroute-scraper/models"
)

func TestBuildSearchQueryNoFilters(t *testing.T) {
	query, args := BuildSearchQuery(`"bus_routes"`, models.SearchFilter{})

	assert.Contains(t, query, `FROM "bus_routes"`)
	assert.Contains(t, query, "WHERE 1=1")
	assert.NotContains(t, query, "AND")
	assert.Empty(t, args)
}

func TestBuildSearchQueryAllFilters(t *testing.T) {
	seats, window := 10, 2
	minPrice, maxPrice, rating := 100.0, 1500.0, 3.5
	dep, err := models.ParseTimeRange("06:00 - 06:30")
	require.NoError(t, err)
	arr, err := models.ParseTimeRange("22:30 - 23:00")
	require.NoError(t, err)

	query, args := BuildSearchQuery(`"bus_routes"`, models.SearchFilter{
		RouteName:      "KSRTC_Bangalore to Mysore",
		Departure:      dep,
		Arrival:        arr,
		MinSeats:       &seats,
		MinWindowSeats: &window,
		MinPrice:       &minPrice,
		MaxPrice:       &maxPrice,
		MinRating:      &rating,
	})

	clauses := []string{
		"AND route_name = $1",
		"AND departing_time::time BETWEEN $2::time AND $3::time",
		"AND reaching_time::time BETWEEN $4::time AND $5::time",
		"AND total_seats >= $6",
		"AND window_seats >= $7",
		"AND price_inr >= $8",
		"AND price_inr <= $9",
		"AND star_rating_out_of_5 >= $10",
	}
	last := -1
	for _, c := range clauses {
		i := strings.Index(query, c)
		require.NotEqual(t, -1, i, "missing clause %q in\n%s", c, query)
		assert.Greater(t, i, last, "clause %q out of order", c)
		last = i
	}

	assert.Equal(t, []any{
		"KSRTC_Bangalore to Mysore",
		models.NewClock(6, 0), models.NewClock(6, 30),
		models.NewClock(22, 30), models.NewClock(23, 0),
		10, 2, 100.0, 1500.0, 3.5,
	}, args)
}

func TestBuildSearchQueryPartialFilters(t *testing.T) {
	rating := 4.0
	query, args := BuildSearchQuery(`"t"`, models.SearchFilter{MinRating: &rating})

	assert.Contains(t, query, "AND star_rating_out_of_5 >= $1")
	assert.NotContains(t, query, "route_name =")
	assert.Equal(t, []any{4.0}, args)
}

func TestLikePrefixEscapesWildcards(t *testing.T) {
	assert.Equal(t, `KSRTC\_%`, likePrefix("KSRTC"))
	assert.Equal(t, `A\%B\\C\_%`, likePrefix(`A%B\C`))
	assert.Equal(t, `UP\_SRTC\_%`, likePrefix("UP_SRTC"))
}
