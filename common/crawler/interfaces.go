package crawler

import (
	"context"
	"net/url"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	gq "github.com/PuerkitoBio/goquery"
)

// FieldSelectors are evaluated inside one listing row
type FieldSelectors struct {
	// Title candidates, the first one with a usable text wins
	Title []string
	// Link is the anchor holding the article URL
	Link string
	// TitleExclude is stripped from title nodes before their text is read
	TitleExclude string
	// DateTime is the element carrying the publish time in DateTimeAttr
	DateTime     string
	DateTimeAttr string
	Currencies   string
	SourceDomain string
}

// Site describes one listing page the pipeline can scrape
type Site interface {
	SourceName() string
	BaseURL() string
	ListingURL() string
	RowSelector() string
	Selectors() FieldSelectors
}

// KindDetector is implemented by sites that mark paid placements
type KindDetector interface {
	Kind(row *gq.Selection) models.ArticleKind
}

// OriginalURLResolver is implemented by sites that link to the publisher
// next to their own article page
type OriginalURLResolver interface {
	OriginalURL(row *gq.Selection, base *url.URL) string
}

// Session is a loaded browser tab. Close must be safe to call more than once.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until selector matches or timeout expires, in which case
	// it returns ErrPageLoadTimeout
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// Scroll scrolls to the bottom until the number of selector matches stops
	// growing or maxAttempts is reached, and returns the final count
	Scroll(ctx context.Context, selector string, maxAttempts int, pause time.Duration) (int, error)
	HTML(ctx context.Context) (string, error)
	Close() error
}

// DriverProvider hands out ready browser sessions
type DriverProvider interface {
	Acquire(ctx context.Context) (Session, error)
}
