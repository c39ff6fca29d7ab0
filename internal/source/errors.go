package source

import (
	"errors"
	"fmt"
)

// Common errors returned by fetchers and the scraper.
var (
	// ErrAccessBlocked indicates the data source refused the request
	// (HTTP 403/429 or an interstitial CAPTCHA page).
	ErrAccessBlocked = errors.New("access blocked by data source")

	// ErrNotFound indicates the profile or page does not exist.
	ErrNotFound = errors.New("not found at data source")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with data source")

	// ErrInvalidProfile indicates the profile page could not be parsed.
	ErrInvalidProfile = errors.New("invalid profile page")
)

// FetchError is returned for unexpected HTTP status codes.
type FetchError struct {
	StatusCode int
	URL        string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.StatusCode)
}

// IsBlocked returns true if the error means the source is refusing service.
func IsBlocked(err error) bool {
	if errors.Is(err, ErrAccessBlocked) {
		return true
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode == 403 || fe.StatusCode == 429
	}
	return false
}
