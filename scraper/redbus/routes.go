package redbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"busroute-scraper/models"
)

const (
	routeSelector      = ".route"
	paginationSelector = ".DC_117_paginationTable"
	pageTabSelector    = "div.DC_117_pageTabs"
)

// DiscoverRoutes collects route links for each agency, keyed
// "<agency>_<route label>". Failing agencies are skipped and do not count
// towards the MaxAgencies cap.
func (s *Scraper) DiscoverRoutes(ctx context.Context, agencies []models.Agency) (*models.LinkSet, error) {
	routes := models.NewLinkSet()

	d, err := s.open(ctx)
	if err != nil {
		return routes, fmt.Errorf("open browser: %w", err)
	}
	defer closeDriver(d, s.logger)

	successful := 0
	for _, agency := range agencies {
		if successful >= s.cfg.MaxAgencies {
			s.logger.Info("[redbus] Reached the limit of %d agencies", s.cfg.MaxAgencies)
			break
		}

		found, err := s.agencyRoutes(ctx, d, agency)
		if err != nil {
			if ctx.Err() != nil {
				return routes, ctx.Err()
			}
			s.logger.Warn("[redbus] Skipping agency %q: %v", agency.Name, err)
			continue
		}

		routes.Merge(found)
		successful++
		s.logger.Info("[redbus] Agency #%d %q: %d routes", successful, agency.Name, found.Len())
	}

	s.logger.Info("[redbus] %d agencies processed, %d routes collected", successful, routes.Len())
	return routes, nil
}

func (s *Scraper) agencyRoutes(ctx context.Context, d Driver, agency models.Agency) (*models.LinkSet, error) {
	if err := s.navigate(ctx, d, agency.URL); err != nil {
		return nil, err
	}
	if err := d.Sleep(ctx, s.cfg.AgencySettleDelay); err != nil {
		return nil, err
	}
	if err := d.WaitFor(ctx, routeSelector, s.cfg.WaitTimeout); err != nil {
		return nil, err
	}

	doc, err := s.document(ctx, d)
	if err != nil {
		return nil, err
	}
	if doc.Find(paginationSelector).Length() == 0 {
		s.logger.Debug("[redbus] No pagination for %q, reading the current page", agency.Name)
		return extractRoutes(doc, agency), nil
	}

	if err := d.WaitFor(ctx, pageTabSelector, s.cfg.ShortWaitTimeout); err != nil {
		if !errors.Is(err, ErrTimeout) {
			return nil, err
		}
		s.logger.Debug("[redbus] Pagination tabs missing for %q, reading the current page", agency.Name)
		doc, err := s.document(ctx, d)
		if err != nil {
			return nil, err
		}
		return extractRoutes(doc, agency), nil
	}

	doc, err = s.document(ctx, d)
	if err != nil {
		return nil, err
	}
	tabs := doc.Find(paginationSelector).First().Find("div").Length()

	routes := models.NewLinkSet()
	for i := 1; i <= tabs; i++ {
		page, err := s.pageTab(ctx, d, i)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("[redbus] Page tab %d of %q failed: %v", i, agency.Name, err)
			continue
		}
		routes.Merge(extractRoutes(page, agency))
	}
	return routes, nil
}

// pageTab selects the i-th pagination tab and returns the refreshed page.
func (s *Scraper) pageTab(ctx context.Context, d Driver, i int) (*goquery.Document, error) {
	if err := d.Click(ctx, fmt.Sprintf("%s:nth-child(%d)", pageTabSelector, i)); err != nil {
		return nil, err
	}
	if err := d.WaitFor(ctx, routeSelector, s.cfg.ShortWaitTimeout); err != nil {
		return nil, err
	}
	return s.document(ctx, d)
}

func extractRoutes(doc *goquery.Document, agency models.Agency) *models.LinkSet {
	routes := models.NewLinkSet()
	doc.Find(routeSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		routes.Put(agency.Name+"_"+collapse(sel.Text()), resolveURL(agency.URL, href))
	})
	return routes
}
