// Package source retrieves author profiles and publication rows from the
// scholarly profile site.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the profile site root.
	BaseURL = "https://scholar.google.com"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultInterval is the minimum delay between two page fetches.
	DefaultInterval = 2 * time.Second

	// DefaultUserAgent mimics a desktop browser; the site serves a reduced
	// page to unknown clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// PageSize is the number of rows requested per profile page.
	PageSize = 100

	// maxBodySize caps the bytes read from one page.
	maxBodySize = 8 << 20
)

// captchaMarkers identify the interstitial served instead of a profile.
var captchaMarkers = []string{
	"gs_captcha_f",
	"id=\"captcha",
	"unusual traffic from your computer network",
	"/sorry/index",
}

// Fetcher returns the HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ProfileURL returns the URL of one page of an author's profile.
func ProfileURL(base, scholarID string, start int) string {
	q := url.Values{}
	q.Set("user", scholarID)
	q.Set("hl", "en")
	q.Set("cstart", fmt.Sprint(start))
	q.Set("pagesize", fmt.Sprint(PageSize))
	return strings.TrimRight(base, "/") + "/citations?" + q.Encode()
}

// ResolveURL makes a link found on a page absolute.
func ResolveURL(base, href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(u).String()
}

// HTTPFetcher is a rate-limited HTTP client for profile and detail pages.
type HTTPFetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.httpClient = hc
	}
}

// WithInterval sets the minimum delay between fetches. Zero disables
// rate limiting.
func WithInterval(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		if d <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		f.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// NewHTTPFetcher creates a fetcher with the default interval and timeout.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(DefaultInterval), 1),
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves a page. Refusals and CAPTCHA interstitials yield
// ErrAccessBlocked.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status %d", ErrAccessBlocked, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrNotFound, pageURL)
	case resp.StatusCode >= 400:
		return "", &FetchError{StatusCode: resp.StatusCode, URL: pageURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}

	page := string(body)
	if IsCaptcha(page) {
		return "", fmt.Errorf("%w: CAPTCHA page", ErrAccessBlocked)
	}
	return page, nil
}

// IsCaptcha reports whether a page is the bot-check interstitial.
func IsCaptcha(page string) bool {
	lower := strings.ToLower(page)
	for _, m := range captchaMarkers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
