package redbus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"busroute-scraper/models"
	"busroute-scraper/utils"
)

// ErrMissingField is returned when a listing block lacks a required element.
var ErrMissingField = errors.New("listing field missing")

const listingSelector = "div.clearfix.row-one"

const (
	busNameSelector     = ".travels"
	busTypeSelector     = ".bus-type.f-12"
	departureSelector   = ".dp-time.f-19"
	durationSelector    = ".dur.l-color"
	arrivalSelector     = ".bp-time.f-19"
	nextDaySelector     = ".next-day-dp-lbl"
	ratingSelector      = ".lh-18.rating span"
	ratingCountSelector = ".rate_count"
	priceSelector       = ".fare .f-19"
	seatsLeftSelector   = ".seat-left"
	windowsLeftSelector = ".window-left"
	unratedSentinel     = "N/A"
	unknownSeatCount    = "0"
)

// ParseListing extracts one listing block. Any missing required field fails
// the whole block.
func ParseListing(block *goquery.Selection, routeName, routeLink string) (*models.RawListing, error) {
	l := &models.RawListing{RouteName: routeName, RouteLink: routeLink}

	required := []struct {
		selector string
		dst      *string
	}{
		{busNameSelector, &l.BusName},
		{busTypeSelector, &l.BusType},
		{departureSelector, &l.DepartingTime},
		{durationSelector, &l.Duration},
		{arrivalSelector, &l.ReachingTime},
		{priceSelector, &l.Price},
	}
	for _, f := range required {
		text, ok := firstText(block, f.selector)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, f.selector)
		}
		*f.dst = text
	}

	if nextDay, ok := firstText(block, nextDaySelector); ok {
		l.ReachingTime = fmt.Sprintf("%s (%s)", l.ReachingTime, nextDay)
	}

	l.StarRating = parseRatingText(block)
	l.SeatsAvailable = parseSeatsText(block)

	return l, nil
}

func parseRatingText(block *goquery.Selection) string {
	if rating, ok := firstText(block, ratingSelector); ok {
		return rating
	}
	if count, ok := firstText(block, ratingCountSelector); ok {
		return count
	}
	return unratedSentinel
}

func parseSeatsText(block *goquery.Selection) string {
	seats := unknownSeatCount
	if text, ok := firstText(block, seatsLeftSelector); ok {
		if fields := strings.Fields(text); len(fields) > 0 {
			seats = fields[0]
		}
	}

	window := ""
	if text, ok := firstText(block, windowsLeftSelector); ok {
		if fields := strings.Fields(text); len(fields) > 0 {
			window = fields[0]
		}
	}
	return models.SeatsSummary(seats, window)
}

// ParseListings parses every listing block in doc, logging and skipping the
// ones that fail.
func ParseListings(doc *goquery.Document, routeName, routeLink string, logger *utils.Logger) []*models.RawListing {
	var listings []*models.RawListing
	doc.Find(listingSelector).Each(func(i int, block *goquery.Selection) {
		l, err := ParseListing(block, routeName, routeLink)
		if err != nil {
			logger.Warn("[redbus] Skipping listing %d on %s: %v", i+1, routeName, err)
			return
		}
		listings = append(listings, l)
	})
	return listings
}
