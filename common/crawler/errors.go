package crawler

import (
	"errors"
)

var (
	// ErrUnknownSite is returned when no site is registered under a name
	ErrUnknownSite = errors.New("unknown site")

	// ErrBrowserUnavailable is returned when a browser session cannot be acquired
	ErrBrowserUnavailable = errors.New("browser unavailable")

	// ErrPageLoadTimeout is returned when the listing rows do not appear in time
	ErrPageLoadTimeout = errors.New("page load timeout")

	// ErrNavigation is returned when the listing page cannot be opened
	ErrNavigation = errors.New("navigation failed")
)
