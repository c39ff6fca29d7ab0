package source

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/scholarlyreport/scholarly/internal/logging"
)

const (
	// showMoreSelector is the button that appends another batch of rows.
	showMoreSelector = "#gsc_bpf_more"

	// MaxShowMoreClicks bounds the expansion loop.
	MaxShowMoreClicks = 10
)

// BrowserFetcher renders pages in headless Chrome. Profile pages are
// expanded by clicking "show more" until the button is disabled.
type BrowserFetcher struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	interval time.Duration
	logger   *zap.Logger
}

// BrowserOption configures a BrowserFetcher.
type BrowserOption func(*browserSettings)

type browserSettings struct {
	headless  bool
	interval  time.Duration
	userAgent string
	logger    *zap.Logger
}

// WithHeadless controls whether the browser window is hidden.
func WithHeadless(headless bool) BrowserOption {
	return func(s *browserSettings) { s.headless = headless }
}

// WithBrowserInterval sets the wait after each navigation and click.
func WithBrowserInterval(d time.Duration) BrowserOption {
	return func(s *browserSettings) { s.interval = d }
}

// WithBrowserUserAgent overrides the browser User-Agent.
func WithBrowserUserAgent(ua string) BrowserOption {
	return func(s *browserSettings) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithBrowserLogger sets the logger.
func WithBrowserLogger(l *zap.Logger) BrowserOption {
	return func(s *browserSettings) { s.logger = l }
}

// NewBrowserFetcher starts a browser allocator. Close releases it.
func NewBrowserFetcher(ctx context.Context, opts ...BrowserOption) *BrowserFetcher {
	s := browserSettings{headless: true, interval: DefaultInterval, userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(&s)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(s.userAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocOpts...)

	return &BrowserFetcher{
		allocCtx: allocCtx,
		cancel:   cancel,
		interval: s.interval,
		logger:   logging.OrNop(s.logger),
	}
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() {
	b.cancel()
}

// Fetch navigates to url, expands the publication list and returns the
// rendered HTML.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	defer cancel()

	// Tie the tab to the caller's cancellation.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(b.interval),
	); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetworkError, err)
	}

	clicks, err := b.expand(tabCtx)
	if err != nil {
		return "", err
	}
	if clicks > 0 {
		b.logger.Debug("expanded profile", zap.String("url", url), zap.Int("clicks", clicks))
	}

	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("%w: reading page: %v", ErrNetworkError, err)
	}
	if IsCaptcha(html) {
		return "", fmt.Errorf("%w: CAPTCHA page", ErrAccessBlocked)
	}
	return html, nil
}

// expand clicks "show more" while it is present and enabled.
func (b *BrowserFetcher) expand(ctx context.Context) (int, error) {
	clicks := 0
	for clicks < MaxShowMoreClicks {
		var present, disabled bool
		err := chromedp.Run(ctx, chromedp.Evaluate(
			`(function(){var e=document.querySelector("`+showMoreSelector+`");return e!==null;})()`, &present))
		if err != nil {
			return clicks, fmt.Errorf("%w: %v", ErrNetworkError, err)
		}
		if !present {
			return clicks, nil
		}
		err = chromedp.Run(ctx, chromedp.Evaluate(
			`document.querySelector("`+showMoreSelector+`").disabled`, &disabled))
		if err != nil || disabled {
			return clicks, nil
		}
		if err := chromedp.Run(ctx,
			chromedp.Click(showMoreSelector, chromedp.ByQuery),
			chromedp.Sleep(b.interval),
		); err != nil {
			return clicks, nil
		}
		clicks++
	}
	return clicks, nil
}
