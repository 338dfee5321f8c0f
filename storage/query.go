package storage

import (
	"fmt"
	"strings"

	"busroute-scraper/models"
)

const selectColumns = `route_name, route_link, bus_name, bus_type, departing_time, duration,
	reaching_time, star_rating_out_of_5, price_inr, total_seats, window_seats,
	departing_date, reaching_date`

// BuildSearchQuery renders the SELECT for filter against table, which must
// already be a quoted identifier. Every set field adds one AND clause; the
// returned args line up with the $n placeholders in clause order.
func BuildSearchQuery(table string, filter models.SearchFilter) (string, []any) {
	var b strings.Builder
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	fmt.Fprintf(&b, "SELECT %s\nFROM %s\nWHERE 1=1", selectColumns, table)

	if filter.RouteName != "" {
		fmt.Fprintf(&b, "\n  AND route_name = %s", arg(filter.RouteName))
	}
	if r := filter.Departure; r != nil {
		fmt.Fprintf(&b, "\n  AND departing_time::time BETWEEN %s::time AND %s::time", arg(r.Start), arg(r.End))
	}
	if r := filter.Arrival; r != nil {
		fmt.Fprintf(&b, "\n  AND reaching_time::time BETWEEN %s::time AND %s::time", arg(r.Start), arg(r.End))
	}
	if filter.MinSeats != nil {
		fmt.Fprintf(&b, "\n  AND total_seats >= %s", arg(*filter.MinSeats))
	}
	if filter.MinWindowSeats != nil {
		fmt.Fprintf(&b, "\n  AND window_seats >= %s", arg(*filter.MinWindowSeats))
	}
	if filter.MinPrice != nil {
		fmt.Fprintf(&b, "\n  AND price_inr >= %s", arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		fmt.Fprintf(&b, "\n  AND price_inr <= %s", arg(*filter.MaxPrice))
	}
	if filter.MinRating != nil {
		fmt.Fprintf(&b, "\n  AND star_rating_out_of_5 >= %s", arg(*filter.MinRating))
	}

	b.WriteString("\nORDER BY route_name, departing_time NULLS LAST, bus_name")
	return b.String(), args
}

// likePrefix escapes LIKE wildcards in agency and matches names that start
// with "<agency>_".
func likePrefix(agency string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(agency) + `\_%`
}
