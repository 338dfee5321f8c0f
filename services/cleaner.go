package services

import (
	"database/sql"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"busroute-scraper/models"
	"busroute-scraper/utils"
)

var (
	// durationRegexp captures "Xh", "Xh Ym" or a bare "Ym"
	durationRegexp = regexp.MustCompile(`(\d+)h(?:\s*(\d+)m)?|(\d+)m`)
	// priceRegexp captures numeric price values
	priceRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

const zeroDuration = "0h 0m"

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "3:04 pm"}

// Cleaner transforms RawListings into BusRoutes. It never drops a row: every
// field that fails to parse falls back to a default.
type Cleaner struct {
	logger     *utils.Logger
	targetYear int
}

// NewCleaner creates a Cleaner. targetYear is applied to day-month arrival
// labels; 0 means the year of the departing date passed to Clean.
func NewCleaner(logger *utils.Logger, targetYear int) *Cleaner {
	return &Cleaner{logger: logger, targetYear: targetYear}
}

// Clean normalizes raw listings scraped on departingDate.
func (c *Cleaner) Clean(raw []*models.RawListing, departingDate time.Time) []*models.BusRoute {
	day := time.Date(departingDate.Year(), departingDate.Month(), departingDate.Day(), 0, 0, 0, 0, time.UTC)
	year := c.targetYear
	if year == 0 {
		year = day.Year()
	}

	result := make([]*models.BusRoute, 0, len(raw))
	var badDates, badSeats int

	for _, r := range raw {
		reachTime, reachLabel := SplitReachingTime(r.ReachingTime)

		route := &models.BusRoute{
			RouteName:     normaliseText(r.RouteName),
			RouteLink:     strings.TrimSpace(r.RouteLink),
			BusName:       normaliseText(r.BusName),
			BusType:       normaliseText(r.BusType),
			DepartingTime: ParseClock(r.DepartingTime),
			Duration:      CleanDuration(r.Duration),
			ReachingTime:  ParseClock(reachTime),
			StarRating:    ParseRating(r.StarRating),
			PriceINR:      ParsePrice(r.Price),
			DepartingDate: day,
		}

		if reachLabel != "" {
			if d, ok := ParseReachingDate(reachLabel, year); ok {
				route.ReachingDate = sql.NullTime{Time: d, Valid: true}
			} else {
				badDates++
				c.logger.Debug("[cleaner] Unparseable reaching date %q for %s", reachLabel, r.BusName)
			}
		}

		total, window, ok := splitSeats(r.SeatsAvailable)
		if !ok {
			badSeats++
			c.logger.Debug("[cleaner] Unparseable seats %q for %s", r.SeatsAvailable, r.BusName)
		}
		route.TotalSeats, route.WindowSeats = total, window

		result = append(result, route)
	}

	c.logger.Info("[cleaner] Normalized %d listings (%d unparseable reaching dates, %d unparseable seat counts)",
		len(result), badDates, badSeats)
	return result
}

// CleanDuration standardizes a duration to "Xh Ym". Unmatched input yields "0h 0m".
func CleanDuration(raw string) string {
	m := durationRegexp.FindStringSubmatch(raw)
	if m == nil {
		return zeroDuration
	}
	hours, err := atoiOrZero(m[1])
	if err != nil {
		return zeroDuration
	}
	minText := m[2]
	if minText == "" {
		minText = m[3]
	}
	minutes, err := atoiOrZero(minText)
	if err != nil {
		return zeroDuration
	}
	return strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// SplitReachingTime splits "07:30 (16-Jan)" into ("07:30", "16-Jan"). Without a
// parenthesis the label is empty.
func SplitReachingTime(raw string) (string, string) {
	timePart, label, found := strings.Cut(raw, "(")
	if !found {
		return strings.TrimSpace(raw), ""
	}
	label = strings.TrimSpace(label)
	label = strings.TrimSpace(strings.TrimRight(label, ")"))
	return strings.TrimSpace(timePart), label
}

// ParseReachingDate reads an arrival date label. "15-01-2025" is a full
// day-month-year date, "15-Jan" is forced onto year, and labels without a dash
// are read as day, abbreviated month and year.
func ParseReachingDate(label string, year int) (time.Time, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return time.Time{}, false
	}

	if strings.Contains(label, "-") {
		segments := strings.Split(label, "-")
		if len(segments[len(segments)-1]) == 4 {
			return parseFirst(label, "2-1-2006", "2-Jan-2006")
		}
		t, err := time.Parse("2-Jan", label)
		if err != nil {
			return time.Time{}, false
		}
		d := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if d.Day() != t.Day() {
			// 29-Feb outside a leap year
			return time.Time{}, false
		}
		return d, true
	}

	return parseFirst(label, "2 Jan 2006", "2Jan2006")
}

func parseFirst(value string, layouts ...string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SplitSeats reads "32 Seats | 8 Window" into (32, 8). Any failure yields (0, 0).
func SplitSeats(raw string) (int, int) {
	total, window, _ := splitSeats(raw)
	return total, window
}

func splitSeats(raw string) (int, int, bool) {
	parts := strings.Split(raw, "|")

	total, ok := leadingInt(parts[0])
	if !ok {
		return 0, 0, false
	}
	window := 0
	if len(parts) > 1 {
		window, ok = leadingInt(parts[1])
		if !ok {
			return 0, 0, false
		}
	}
	return total, window, true
}

func leadingInt(segment string) (int, bool) {
	fields := strings.Fields(segment)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ParseRating converts rating text to a 0.0–5.0 value rounded to one decimal.
// "New", sentinels and anything unparseable or out of range become 0.
func ParseRating(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "New") {
		return 0
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(val) || val < 0 || val > 5 {
		return 0
	}
	return math.Round(val*10) / 10
}

// ParsePrice extracts the first number from a currency-formatted price.
func ParsePrice(raw string) float64 {
	cleaned := strings.ReplaceAll(raw, ",", "")
	match := priceRegexp.FindString(cleaned)
	if match == "" {
		return 0
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return math.Round(val*100) / 100
}

// ParseClock reads a time of day. Unparseable text gives an unset Clock.
func ParseClock(raw string) models.Clock {
	raw = strings.TrimSpace(raw)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return models.NewClock(t.Hour(), t.Minute())
		}
	}
	return models.Clock{}
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
