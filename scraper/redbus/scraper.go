package redbus

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"busroute-scraper/config"
	"busroute-scraper/models"
	"busroute-scraper/utils"
)

// Scraper drives the three redbus scrape phases. Each phase opens its own
// browser session and closes it before returning.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	open   DriverFactory
	pacer  *utils.Pacer
}

// New creates a Scraper backed by Chrome.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return NewWithDriver(cfg, logger, ChromeFactory(BrowserOptions{
		ChromeBin: cfg.ChromeBin,
		Headless:  cfg.Headless,
	}))
}

// NewWithDriver creates a Scraper that opens sessions through open.
func NewWithDriver(cfg *config.Config, logger *utils.Logger, open DriverFactory) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		open:   open,
		pacer:  utils.NewPacer(time.Duration(cfg.NavigateIntervalMs) * time.Millisecond),
	}
}

// Result is everything one full run produced.
type Result struct {
	Agencies []models.Agency
	Routes   *models.LinkSet
	Listings []*models.RawListing
}

// Scrape runs agency discovery, route discovery and the listing scrape in
// order. Only a failed agency discovery aborts the run.
func (s *Scraper) Scrape(ctx context.Context) (*Result, error) {
	s.logger.Info("[redbus] Starting scrape at %s", s.cfg.EntryURL)

	agencies, err := s.DiscoverAgencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("agency discovery: %w", err)
	}
	res := &Result{Agencies: agencies}

	res.Routes, err = s.DiscoverRoutes(ctx, agencies)
	if err != nil {
		return res, fmt.Errorf("route discovery: %w", err)
	}

	res.Listings, err = s.ScrapeListings(ctx, res.Routes)
	if err != nil {
		return res, fmt.Errorf("listing scrape: %w", err)
	}

	s.logger.Info("[redbus] Scrape complete: %d agencies, %d routes, %d raw listings",
		len(res.Agencies), res.Routes.Len(), len(res.Listings))
	return res, nil
}

func (s *Scraper) navigate(ctx context.Context, d Driver, url string) error {
	if err := s.pacer.Wait(ctx); err != nil {
		return err
	}
	return d.Navigate(ctx, url)
}

// document snapshots the current page and parses it.
func (s *Scraper) document(ctx context.Context, d Driver) (*goquery.Document, error) {
	html, err := d.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return parseDocument(html)
}

func closeDriver(d Driver, logger *utils.Logger) {
	if err := d.Close(); err != nil {
		logger.Warn("[redbus] Closing browser: %v", err)
	}
}
