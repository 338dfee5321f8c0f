package redbus

import (
	"context"
	"fmt"
	"time"

	"busroute-scraper/models"
)

const (
	viewBusesSelector = ".button"
	viewBusesText     = "View Buses"
)

// ScrapeListings visits every route page and parses its bus listings. A route
// that fails is logged and skipped; listings from earlier routes are kept.
func (s *Scraper) ScrapeListings(ctx context.Context, routes *models.LinkSet) ([]*models.RawListing, error) {
	var listings []*models.RawListing

	d, err := s.open(ctx)
	if err != nil {
		return listings, fmt.Errorf("open browser: %w", err)
	}
	defer closeDriver(d, s.logger)

	links := routes.Links()
	s.logger.Info("[redbus] Processing %d routes", len(links))

	for i, link := range links {
		s.logger.Info("[redbus] Route %d/%d: %s", i+1, len(links), link.Key)

		found, err := s.scrapeRoute(ctx, d, link)
		if err != nil {
			if ctx.Err() != nil {
				return listings, ctx.Err()
			}
			s.logger.Error("[redbus] Route %s failed: %v", link.Key, err)
			continue
		}

		listings = append(listings, found...)
		s.logger.Info("[redbus] Route %s: %d buses, %d collected so far", link.Key, len(found), len(listings))
	}

	return listings, nil
}

func (s *Scraper) scrapeRoute(ctx context.Context, d Driver, link models.Link) ([]*models.RawListing, error) {
	if err := s.navigate(ctx, d, link.URL); err != nil {
		return nil, err
	}
	if err := d.Sleep(ctx, s.cfg.RouteSettleDelay); err != nil {
		return nil, err
	}
	if err := d.WaitFor(ctx, viewBusesSelector, s.cfg.WaitTimeout); err != nil {
		return nil, err
	}
	if err := d.Back(ctx); err != nil {
		return nil, err
	}
	if err := d.Press(ctx, KeyPageDown); err != nil {
		return nil, err
	}

	clicked, err := d.ClickText(ctx, viewBusesSelector, viewBusesText)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("[redbus] Clicked %d view-buses buttons", clicked)

	if err := s.loadAll(ctx, d); err != nil {
		return nil, err
	}

	doc, err := s.document(ctx, d)
	if err != nil {
		return nil, err
	}
	listings := ParseListings(doc, link.Key, link.URL, s.logger)

	now := time.Now()
	for _, l := range listings {
		l.ScrapedAt = now
	}
	return listings, nil
}

// loadAll forces lazy-loaded listings to render: scroll up until the page
// stops changing, then jump to the end until it stops changing, then scroll
// up again.
func (s *Scraper) loadAll(ctx context.Context, d Driver) error {
	probes := []struct {
		key   Key
		delay time.Duration
	}{
		{KeyArrowUp, 0},
		{KeyCtrlEnd, s.cfg.ScrollStepDelay},
		{KeyArrowUp, 0},
	}
	for _, p := range probes {
		if err := s.settle(ctx, d, p.key, p.delay); err != nil {
			return err
		}
	}
	return nil
}

// settle presses key until two consecutive snapshots match, giving up after
// MaxScrollProbes presses.
func (s *Scraper) settle(ctx context.Context, d Driver, key Key, delay time.Duration) error {
	limit := s.cfg.MaxScrollProbes
	if limit < 1 {
		limit = 1
	}

	for i := 0; i < limit; i++ {
		before, err := d.HTML(ctx)
		if err != nil {
			return err
		}
		if err := d.Press(ctx, key); err != nil {
			return err
		}
		if err := d.Sleep(ctx, delay); err != nil {
			return err
		}
		after, err := d.HTML(ctx)
		if err != nil {
			return err
		}
		if before == after {
			return nil
		}
	}

	s.logger.Warn("[redbus] Page still changing after %d %v probes, parsing what is loaded", limit, key)
	return nil
}
