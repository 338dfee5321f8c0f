package redbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

var (
	// ErrTimeout is returned when a waited-for element never shows up.
	ErrTimeout = errors.New("timed out waiting for element")
	// ErrNotFound is returned when an element to interact with is absent.
	ErrNotFound = errors.New("element not found")
)

// Key is a keyboard action sent to the page.
type Key int

const (
	KeyPageDown Key = iota
	KeyArrowUp
	KeyCtrlEnd
)

func (k Key) String() string {
	switch k {
	case KeyPageDown:
		return "PageDown"
	case KeyArrowUp:
		return "ArrowUp"
	case KeyCtrlEnd:
		return "Ctrl+End"
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// Driver is one controllable browser session showing one page at a time.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until selector matches at least one element, or returns
	// an error wrapping ErrTimeout once timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// HTML returns a snapshot of the full rendered document.
	HTML(ctx context.Context) (string, error)
	Back(ctx context.Context) error
	Press(ctx context.Context, key Key) error
	// Click scrolls the first element matching selector into view and clicks it
	// through script, which works even when the element is covered.
	Click(ctx context.Context, selector string) error
	// ClickText clicks every element matching selector whose text equals one of
	// texts (case-insensitive) and reports how many were clicked.
	ClickText(ctx context.Context, selector string, texts ...string) (int, error)
	Sleep(ctx context.Context, d time.Duration) error
	Close() error
}

// DriverFactory opens a new browser session.
type DriverFactory func(ctx context.Context) (Driver, error)

// BrowserOptions configure the Chrome session.
type BrowserOptions struct {
	ChromeBin string
	Headless  bool
}

// ChromeDriver is a Driver backed by chromedp.
type ChromeDriver struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
}

// ChromeFactory returns a DriverFactory starting Chrome with opts.
func ChromeFactory(opts BrowserOptions) DriverFactory {
	return func(ctx context.Context) (Driver, error) {
		return NewChromeDriver(ctx, opts)
	}
}

// NewChromeDriver starts Chrome and opens one tab.
func NewChromeDriver(parent context.Context, opts BrowserOptions) (*ChromeDriver, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("start-maximized", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if bin := findChromeBinary(opts.ChromeBin); bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)

	// Suppress chromedp log noise
	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(ctx); err != nil {
		cancel()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &ChromeDriver{ctx: ctx, cancel: cancel, cancelAlloc: cancelAlloc}, nil
}

// run executes actions on the tab, aborting when the caller's ctx is done.
func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (d *ChromeDriver) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := d.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %v", ErrTimeout, selector, timeout)
	}
	return fmt.Errorf("wait for %s: %w", selector, err)
}

func (d *ChromeDriver) HTML(ctx context.Context) (string, error) {
	var html string
	if err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("page snapshot: %w", err)
	}
	return html, nil
}

// Back returns to the previous history entry. With nothing to go back to it
// does nothing.
func (d *ChromeDriver) Back(ctx context.Context) error {
	var current int64
	var entries []*page.NavigationEntry
	history := chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		current, entries, err = page.GetNavigationHistory().Do(ctx)
		return err
	})
	if err := d.run(ctx, history); err != nil {
		return fmt.Errorf("navigation history: %w", err)
	}
	if !canGoBack(current, len(entries)) {
		return nil
	}

	if err := d.run(ctx, chromedp.NavigateBack()); err != nil {
		return fmt.Errorf("navigate back: %w", err)
	}
	return nil
}

// canGoBack reports whether history index current has an entry before it.
func canGoBack(current int64, entries int) bool {
	return current > 0 && current < int64(entries)
}

func (d *ChromeDriver) Press(ctx context.Context, key Key) error {
	var action chromedp.Action
	switch key {
	case KeyPageDown:
		action = chromedp.KeyEvent(kb.PageDown)
	case KeyArrowUp:
		action = chromedp.KeyEvent(kb.ArrowUp)
	case KeyCtrlEnd:
		action = chromedp.KeyEvent(kb.End, chromedp.KeyModifiers(input.ModifierCtrl))
	default:
		return fmt.Errorf("press: unsupported key %v", key)
	}
	if err := d.run(ctx, action); err != nil {
		return fmt.Errorf("press %v: %w", key, err)
	}
	return nil
}

const clickScript = `(function(sel) {
	var el = document.querySelector(sel);
	if (!el) return false;
	el.scrollIntoView({block: 'center'});
	el.click();
	return true;
})(%s)`

func (d *ChromeDriver) Click(ctx context.Context, selector string) error {
	arg, err := json.Marshal(selector)
	if err != nil {
		return err
	}
	var clicked bool
	if err := d.run(ctx, chromedp.Evaluate(fmt.Sprintf(clickScript, arg), &clicked)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	if !clicked {
		return fmt.Errorf("click %s: %w", selector, ErrNotFound)
	}
	return nil
}

const clickTextScript = `(function(sel, texts) {
	var wanted = texts.map(function(t) { return t.toLowerCase(); });
	var n = 0;
	document.querySelectorAll(sel).forEach(function(el) {
		var text = (el.innerText || '').trim().toLowerCase();
		if (wanted.indexOf(text) >= 0) {
			el.click();
			n++;
		}
	});
	return n;
})(%s, %s)`

func (d *ChromeDriver) ClickText(ctx context.Context, selector string, texts ...string) (int, error) {
	selArg, err := json.Marshal(selector)
	if err != nil {
		return 0, err
	}
	textArg, err := json.Marshal(texts)
	if err != nil {
		return 0, err
	}
	var clicked int
	if err := d.run(ctx, chromedp.Evaluate(fmt.Sprintf(clickTextScript, selArg, textArg), &clicked)); err != nil {
		return 0, fmt.Errorf("click %s: %w", selector, err)
	}
	return clicked, nil
}

func (d *ChromeDriver) Sleep(ctx context.Context, dur time.Duration) error {
	return sleep(ctx, dur)
}

// Close shuts the tab and the browser process.
func (d *ChromeDriver) Close() error {
	d.cancel()
	d.cancelAlloc()
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
