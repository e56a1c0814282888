package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

var (
	// ErrInvalidDataSource is returned when a record fails validation
	ErrInvalidDataSource = errors.New("invalid data source")
	// ErrEmptyURL is returned by the builder when the article has no URL
	ErrEmptyURL = errors.New("empty url")
)

// now is swapped in tests
var now = time.Now

var validate = validator.New()

// ArticleKind separates regular news rows from paid placements
type ArticleKind string

const (
	KindNews  ArticleKind = "news"
	KindPress ArticleKind = "press"
)

// RawArticle is an unvalidated bundle of fields read from one listing row
type RawArticle struct {
	Title        string
	URL          string
	PublishedAt  mo.Option[time.Time]
	Currencies   []string
	SourceDomain string
	OriginalURL  string
	Kind         ArticleKind
}

// RawContent is the structured payload stored as text in data_source.raw_content
type RawContent struct {
	Source       string    `json:"source"`
	ScrapedAt    time.Time `json:"scraped_at"`
	Currencies   []string  `json:"currencies,omitempty"`
	SourceDomain string    `json:"source_domain,omitempty"`
	OriginalURL  string    `json:"original_url,omitempty"`
	Kind         string    `json:"kind,omitempty"`
}

// DataSource is one ingested record of the shared data_source table.
// ID and URL never change after NewDataSource returns.
type DataSource struct {
	ID          string            `json:"id" validate:"required"`
	Type        common.RecordType `json:"type" validate:"required"`
	URL         string            `json:"url" validate:"required"`
	Summary     string            `json:"summary"`
	PublishedAt *time.Time        `json:"published_at"`
	RawContent  RawContent        `json:"raw_content"`
	CreatedAt   time.Time         `json:"created_at"`
}

// RecordID derives the stable identifier of a record from its type and
// normalized URL, so the same URL under two types gets two ids
func RecordID(recordType common.RecordType, url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordType.String()+"\n"+url)).String()
}

// NewDataSource builds the canonical record for a scraped article.
// Only an empty URL is rejected, missing optional fields are left empty.
func NewDataSource(recordType common.RecordType, raw RawArticle, source string, scrapedAt time.Time) (DataSource, error) {
	url := strings.TrimSpace(raw.URL)
	if url == "" {
		return DataSource{}, fmt.Errorf("%w: %w", ErrInvalidDataSource, ErrEmptyURL)
	}

	ds := DataSource{
		ID:      RecordID(recordType, url),
		Type:    recordType,
		URL:     url,
		Summary: strings.TrimSpace(raw.Title),
		RawContent: RawContent{
			Source:       source,
			ScrapedAt:    scrapedAt.UTC(),
			Currencies:   raw.Currencies,
			SourceDomain: raw.SourceDomain,
			OriginalURL:  raw.OriginalURL,
			Kind:         string(raw.Kind),
		},
		CreatedAt: now().UTC(),
	}

	if published, ok := raw.PublishedAt.Get(); ok {
		utc := published.UTC()
		ds.PublishedAt = &utc
	}

	if len(ds.RawContent.Currencies) == 0 {
		ds.RawContent.Currencies = nil
	}

	if err := ds.Validate(); err != nil {
		return DataSource{}, err
	}
	return ds, nil
}

// Validate checks the invariants every persisted record must satisfy
func (d DataSource) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDataSource, err)
	}
	return nil
}

// RawContentText serializes the payload the way it is stored in the raw_content column
func (d DataSource) RawContentText() (string, error) {
	b, err := json.Marshal(d.RawContent)
	if err != nil {
		return "", fmt.Errorf("marshal raw content of %s: %w", d.ID, err)
	}
	return string(b), nil
}

// Published returns the publish time as an option
func (d DataSource) Published() mo.Option[time.Time] {
	if d.PublishedAt == nil {
		return mo.None[time.Time]()
	}
	return mo.Some(*d.PublishedAt)
}
