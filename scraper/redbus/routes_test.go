package redbus

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busroute-scraper/models"
)

func routePage(pagination string, routes ...string) string {
	html := "<html><body><div class=\"routes\">"
	for _, r := range routes {
		slug := strings.ReplaceAll(strings.ToLower(r), " ", "-")
		html += fmt.Sprintf(`<a class="route" href="/bus-tickets/%s">%s</a>`, slug, r)
	}
	return html + "</div>" + pagination + "</body></html>"
}

const twoTabs = `<div class="DC_117_paginationTable"><div class="DC_117_pageTabs">1</div><div class="DC_117_pageTabs">2</div></div>`
const tabsNotRendered = `<div class="DC_117_paginationTable"></div>`

func keysOf(s *models.LinkSet) []string {
	var keys []string
	for _, l := range s.Links() {
		keys = append(keys, l.Key)
	}
	return keys
}

func TestDiscoverRoutesWithoutPagination(t *testing.T) {
	f := newFakeDriver(map[string]string{
		"https://www.redbus.in/online-booking/ksrtc": routePage("", "Bangalore to Mysore", "Mysore to Bangalore"),
	})
	s := newTestScraper(testConfig(), f)

	routes, err := s.DiscoverRoutes(context.Background(), []models.Agency{
		{Name: "KSRTC", URL: "https://www.redbus.in/online-booking/ksrtc"},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.Link{
		{Key: "KSRTC_Bangalore to Mysore", URL: "https://www.redbus.in/bus-tickets/bangalore-to-mysore"},
		{Key: "KSRTC_Mysore to Bangalore", URL: "https://www.redbus.in/bus-tickets/mysore-to-bangalore"},
	}, routes.Links())
	assert.True(t, f.closed)
}

func TestDiscoverRoutesWalksEveryPageTab(t *testing.T) {
	first := routePage(twoTabs, "A to B", "B to C")
	second := routePage(twoTabs, "C to D")
	f := newFakeDriver(map[string]string{"https://www.redbus.in/online-booking/apsrtc": first})
	f.clicks["div.DC_117_pageTabs:nth-child(1)"] = first
	f.clicks["div.DC_117_pageTabs:nth-child(2)"] = second
	s := newTestScraper(testConfig(), f)

	routes, err := s.DiscoverRoutes(context.Background(), []models.Agency{
		{Name: "APSRTC", URL: "https://www.redbus.in/online-booking/apsrtc"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"APSRTC_A to B", "APSRTC_B to C", "APSRTC_C to D"}, keysOf(routes))
	assert.Equal(t, []string{"div.DC_117_pageTabs:nth-child(1)", "div.DC_117_pageTabs:nth-child(2)"}, f.clicked)
}

func TestDiscoverRoutesSkipsFailingTab(t *testing.T) {
	first := routePage(twoTabs, "A to B")
	f := newFakeDriver(map[string]string{"https://www.redbus.in/online-booking/apsrtc": first})
	f.clicks["div.DC_117_pageTabs:nth-child(1)"] = first
	// second tab renders no routes, so the wait for route markers times out
	f.clicks["div.DC_117_pageTabs:nth-child(2)"] = routePage(twoTabs)
	s := newTestScraper(testConfig(), f)

	routes, err := s.DiscoverRoutes(context.Background(), []models.Agency{
		{Name: "APSRTC", URL: "https://www.redbus.in/online-booking/apsrtc"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"APSRTC_A to B"}, keysOf(routes))
}

func TestDiscoverRoutesFallsBackWhenTabsMissing(t *testing.T) {
	f := newFakeDriver(map[string]string{
		"https://www.redbus.in/online-booking/hrtc": routePage(tabsNotRendered, "Shimla to Manali"),
	})
	s := newTestScraper(testConfig(), f)

	routes, err := s.DiscoverRoutes(context.Background(), []models.Agency{
		{Name: "HRTC", URL: "https://www.redbus.in/online-booking/hrtc"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"HRTC_Shimla to Manali"}, keysOf(routes))
	assert.Empty(t, f.clicked)
}

func TestDiscoverRoutesSkipsFailedAgenciesAndCapsSuccesses(t *testing.T) {
	pages := map[string]string{
		"https://x/empty": `<html><body><p>no routes today</p></body></html>`,
	}
	agencies := []models.Agency{
		{Name: "Down", URL: "https://x/unreachable"},
		{Name: "Empty", URL: "https://x/empty"},
	}
	for i := 1; i <= 4; i++ {
		url := fmt.Sprintf("https://x/agency%d", i)
		pages[url] = routePage("", fmt.Sprintf("Route %d", i))
		agencies = append(agencies, models.Agency{Name: fmt.Sprintf("Agency%d", i), URL: url})
	}

	f := newFakeDriver(pages)
	cfg := testConfig()
	cfg.MaxAgencies = 3
	s := newTestScraper(cfg, f)

	routes, err := s.DiscoverRoutes(context.Background(), agencies)
	require.NoError(t, err)

	assert.Equal(t, []string{"Agency1_Route 1", "Agency2_Route 2", "Agency3_Route 3"}, keysOf(routes))
	assert.NotContains(t, f.navigated, "https://x/agency4")
}

func TestDiscoverRoutesStopsOnCancel(t *testing.T) {
	f := newFakeDriver(map[string]string{"https://x/a": routePage("", "R")})
	s := newTestScraper(testConfig(), f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.DiscoverRoutes(ctx, []models.Agency{{Name: "A", URL: "https://x/a"}})
	assert.ErrorIs(t, err, context.Canceled)
}
