package redbus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"busroute-scraper/config"
	"busroute-scraper/utils"
)

// fakeDriver serves canned pages. Clicking a selector listed in clicks swaps
// the current page; navigating to a URL in redirects lands on the mapped page
// with the original page one step back in history.
type fakeDriver struct {
	pages     map[string]string
	redirects map[string]string
	clicks    map[string]string
	onPress   func(key Key, html string) string

	current   string
	history   []string
	navigated []string
	presses   []Key
	clicked   []string
	closed    bool
}

func newFakeDriver(pages map[string]string) *fakeDriver {
	return &fakeDriver{
		pages:     pages,
		redirects: map[string]string{},
		clicks:    map[string]string{},
	}
}

func (f *fakeDriver) factory() DriverFactory {
	return func(context.Context) (Driver, error) {
		f.closed = false
		return f, nil
	}
}

func (f *fakeDriver) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	html, ok := f.pages[url]
	if !ok {
		return fmt.Errorf("navigate %s: net::ERR_NAME_NOT_RESOLVED", url)
	}
	f.history = append(f.history, f.current)
	if target, ok := f.redirects[url]; ok {
		f.history = append(f.history, html)
		html = target
	}
	f.current = html
	return nil
}

func (f *fakeDriver) WaitFor(_ context.Context, selector string, timeout time.Duration) error {
	doc, err := parseDocument(f.current)
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %s after %v", ErrTimeout, selector, timeout)
	}
	return nil
}

func (f *fakeDriver) HTML(context.Context) (string, error) {
	return f.current, nil
}

func (f *fakeDriver) Back(context.Context) error {
	if len(f.history) == 0 {
		return nil
	}
	f.current = f.history[len(f.history)-1]
	f.history = f.history[:len(f.history)-1]
	return nil
}

func (f *fakeDriver) Press(_ context.Context, key Key) error {
	f.presses = append(f.presses, key)
	if f.onPress != nil {
		f.current = f.onPress(key, f.current)
	}
	return nil
}

func (f *fakeDriver) Click(_ context.Context, selector string) error {
	doc, err := parseDocument(f.current)
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("click %s: %w", selector, ErrNotFound)
	}
	f.clicked = append(f.clicked, selector)
	if next, ok := f.clicks[selector]; ok {
		f.current = next
	}
	return nil
}

func (f *fakeDriver) ClickText(_ context.Context, selector string, texts ...string) (int, error) {
	doc, err := parseDocument(f.current)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, node := range doc.Find(selector).Nodes {
		text := strings.TrimSpace(doc.FindNodes(node).Text())
		for _, want := range texts {
			if strings.EqualFold(text, want) {
				n++
				break
			}
		}
	}
	return n, nil
}

func (f *fakeDriver) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (f *fakeDriver) Close() error {
	f.closed = true
	return nil
}

var errBrowserDown = errors.New("browser down")

func failingFactory(context.Context) (Driver, error) {
	return nil, errBrowserDown
}

func testConfig() *config.Config {
	return &config.Config{
		EntryURL:         "https://www.redbus.in/",
		MaxAgencies:      10,
		MaxScrollProbes:  50,
		WaitTimeout:      10 * time.Second,
		ShortWaitTimeout: 5 * time.Second,
	}
}

func newTestScraper(cfg *config.Config, f *fakeDriver) *Scraper {
	return NewWithDriver(cfg, utils.NewDiscardLogger(), f.factory())
}
