package redbus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"busroute-scraper/models"
)

// ErrNoViewAllLink is returned when the home page has no link to the agency directory.
var ErrNoViewAllLink = errors.New("agency directory link not found")

const (
	popularAgencySelector  = ".rtcName"
	directoryEntrySelector = ".D113_link"
	// viewAllSelector mirrors the position of the "View All" link on the home page.
	viewAllSelector = "body > section > div:nth-of-type(2) > main > div:nth-of-type(3) > " +
		"div:nth-of-type(3) > div:nth-of-type(1) > div:nth-of-type(2) > a"
)

// DiscoverAgencies reads the popular agency names from the home page and maps
// each to its page in the agency directory. Directory order is kept.
func (s *Scraper) DiscoverAgencies(ctx context.Context) ([]models.Agency, error) {
	d, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	defer closeDriver(d, s.logger)

	if err := s.navigate(ctx, d, s.cfg.EntryURL); err != nil {
		return nil, err
	}
	if err := d.WaitFor(ctx, popularAgencySelector, s.cfg.WaitTimeout); err != nil {
		return nil, err
	}

	home, err := s.document(ctx, d)
	if err != nil {
		return nil, err
	}

	names := popularAgencyNames(home)
	s.logger.Info("[redbus] Found %d popular agencies", len(names))

	href, ok := viewAllLink(home)
	if !ok {
		return nil, ErrNoViewAllLink
	}
	directoryURL := resolveURL(s.cfg.EntryURL, href)

	if err := s.navigate(ctx, d, directoryURL); err != nil {
		return nil, err
	}
	if err := d.WaitFor(ctx, directoryEntrySelector, s.cfg.WaitTimeout); err != nil {
		return nil, err
	}

	directory, err := s.document(ctx, d)
	if err != nil {
		return nil, err
	}

	agencies := matchDirectory(directory, directoryURL, names)
	s.logger.Info("[redbus] Matched %d agencies in the directory", len(agencies))
	return agencies, nil
}

func popularAgencyNames(doc *goquery.Document) []string {
	var names []string
	doc.Find(popularAgencySelector).Each(func(_ int, sel *goquery.Selection) {
		if name := collapse(sel.Text()); name != "" {
			names = append(names, name)
		}
	})
	return names
}

func viewAllLink(doc *goquery.Document) (string, bool) {
	if href, ok := doc.Find(viewAllSelector).First().Attr("href"); ok && href != "" {
		return href, true
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(sel.Text()), "view all") {
			found, _ = sel.Attr("href")
			return false
		}
		return true
	})
	return found, found != ""
}

// matchDirectory records, for every directory entry whose text contains a
// popular agency name, the entry URL under that name.
func matchDirectory(doc *goquery.Document, baseURL string, names []string) []models.Agency {
	matched := models.NewLinkSet()
	doc.Find(directoryEntrySelector).Each(func(_ int, entry *goquery.Selection) {
		text := entry.Text()
		href, ok := entry.Attr("href")
		if !ok {
			return
		}
		for _, name := range names {
			if strings.Contains(text, name) {
				matched.Put(name, resolveURL(baseURL, href))
			}
		}
	})

	agencies := make([]models.Agency, 0, matched.Len())
	for _, l := range matched.Links() {
		agencies = append(agencies, models.Agency{Name: l.Key, URL: l.URL})
	}
	return agencies
}
