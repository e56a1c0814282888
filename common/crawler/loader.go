package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// LoadOptions bound the work done on a listing page before its DOM is read
type LoadOptions struct {
	PageLoadTimeout   time.Duration
	ScrollMaxAttempts int
	ScrollPause       time.Duration
}

// LoadListing opens the site listing in sess and returns the rendered HTML.
// A page-load timeout or a failed scroll is logged and the DOM is read anyway;
// only navigation and DOM read failures are returned.
func LoadListing(ctx context.Context, sess Session, site Site, opts LoadOptions) (string, error) {
	listing := site.ListingURL()
	l := log.With().Str("site", site.SourceName()).Str("url", listing).Logger()

	l.Info().Msg("Navigating to listing")
	if err := sess.Navigate(ctx, listing); err != nil {
		return "", err
	}

	if err := sess.WaitFor(ctx, site.RowSelector(), opts.PageLoadTimeout); err != nil {
		if errors.Is(err, ErrPageLoadTimeout) {
			l.Warn().Err(err).Dur("timeout", opts.PageLoadTimeout).Msg("Listing rows did not appear in time, extracting current DOM")
		} else {
			l.Warn().Err(err).Msg("Waiting for listing rows failed, extracting current DOM")
		}
	}

	if opts.ScrollMaxAttempts > 0 {
		rows, err := sess.Scroll(ctx, site.RowSelector(), opts.ScrollMaxAttempts, opts.ScrollPause)
		if err != nil {
			l.Warn().Err(err).Int("rows", rows).Msg("Scrolling stopped early")
		} else {
			l.Info().Int("rows", rows).Msg("Listing loaded")
		}
	}

	html, err := sess.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("read listing %s: %w", listing, err)
	}
	return html, nil
}
