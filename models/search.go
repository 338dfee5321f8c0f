package models

import (
	"fmt"
	"math"
	"strings"
)

// AnyTime is the wildcard time-range label.
const AnyTime = "Any Time"

// TimeRange is an inclusive time-of-day window.
type TimeRange struct {
	Start Clock
	End   Clock
}

// Label renders the range as "HH:MM - HH:MM".
func (r TimeRange) Label() string {
	return r.Start.String() + " - " + r.End.String()
}

// ParseTimeRange reads a "HH:MM - HH:MM" label. The wildcard label and the
// empty string yield nil with no error.
func ParseTimeRange(label string) (*TimeRange, error) {
	label = strings.TrimSpace(label)
	if label == "" || label == AnyTime {
		return nil, nil
	}
	parts := strings.Split(label, " - ")
	if len(parts) != 2 {
		return nil, fmt.Errorf("time range %q: want \"HH:MM - HH:MM\"", label)
	}
	var r TimeRange
	if err := r.Start.Scan(strings.TrimSpace(parts[0])); err != nil {
		return nil, fmt.Errorf("time range %q: %w", label, err)
	}
	if err := r.End.Scan(strings.TrimSpace(parts[1])); err != nil {
		return nil, fmt.Errorf("time range %q: %w", label, err)
	}
	return &r, nil
}

// HalfHourRanges returns "Any Time" followed by every 30-minute window of the
// day that ends before midnight.
func HalfHourRanges() []string {
	ranges := []string{AnyTime}
	for hour := 0; hour < 24; hour++ {
		for _, minute := range []int{0, 30} {
			endHour := hour + (minute+30)/60
			endMinute := (minute + 30) % 60
			if endHour >= 24 {
				continue
			}
			r := TimeRange{Start: NewClock(hour, minute), End: NewClock(endHour, endMinute)}
			ranges = append(ranges, r.Label())
		}
	}
	return ranges
}

// SearchFilter is a conjunction of optional predicates over stored routes.
// Nil fields are not applied.
type SearchFilter struct {
	RouteName      string
	Departure      *TimeRange
	Arrival        *TimeRange
	MinSeats       *int
	MinWindowSeats *int
	MinPrice       *float64
	MaxPrice       *float64
	MinRating      *float64
}

// Bounds are the observed maxima used to size the search inputs.
type Bounds struct {
	MaxSeats int
	MaxPrice int
}

// DefaultBounds apply when the table is empty or cannot be read.
var DefaultBounds = Bounds{MaxSeats: 50, MaxPrice: 2000}

// PriceStep is the increment of the price inputs.
const PriceStep = 50

// PriceCeiling rounds price up to the next multiple of PriceStep.
func PriceCeiling(price float64) int {
	return int(math.Ceil(price/PriceStep)) * PriceStep
}

// AgencyOf returns the agency prefix of a stored route name.
func AgencyOf(routeName string) string {
	agency, _, _ := strings.Cut(routeName, "_")
	return strings.TrimSpace(agency)
}

// StripAgency removes the agency prefix (and the separating underscore) from a
// route name for display. Names without the prefix are returned unchanged.
func StripAgency(routeName, agency string) string {
	if !strings.HasPrefix(routeName, agency) {
		return routeName
	}
	cleaned := strings.TrimSpace(routeName[len(agency):])
	return strings.TrimPrefix(cleaned, "_")
}

// RouteChoice pairs a display name (agency prefix removed) with the stored
// route name it selects.
type RouteChoice struct {
	Display   string `json:"display"`
	RouteName string `json:"route_name"`
}
