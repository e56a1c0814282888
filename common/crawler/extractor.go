package crawler

import (
	"fmt"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	gq "github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Extractor turns a rendered listing page into raw articles using the
// selectors of a Site. It is not safe for concurrent use.
type Extractor struct {
	site    Site
	base    *url.URL
	now     func() time.Time
	skipped int
}

func NewExtractor(site Site) (*Extractor, error) {
	base, err := url.Parse(site.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse base url of %s: %w", site.SourceName(), err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base url of %s is not absolute: %q", site.SourceName(), site.BaseURL())
	}
	return &Extractor{
		site: site,
		base: base,
		now:  time.Now,
	}, nil
}

// Skipped is the number of rows dropped by the current pass over the last
// Extract sequence. Each pass starts the count again.
func (e *Extractor) Skipped() int {
	return e.skipped
}

// Extract parses html and returns a lazy sequence over its listing rows.
// Rows without a usable title or URL are skipped and counted.
func (e *Extractor) Extract(html string) (iter.Seq[models.RawArticle], error) {
	doc, err := gq.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	e.skipped = 0
	scrapedAt := e.now()
	rows := doc.Find(e.site.RowSelector())

	return func(yield func(models.RawArticle) bool) {
		e.skipped = 0
		for i, row := range rows.EachIter() {
			article, reason := e.parseRow(row, scrapedAt)
			if reason != "" {
				e.skipped++
				log.Debug().Int("row", i).Str("reason", reason).Msg("Skipping listing row")
				continue
			}
			if !yield(article) {
				return
			}
		}
	}, nil
}

func (e *Extractor) parseRow(row *gq.Selection, scrapedAt time.Time) (models.RawArticle, string) {
	sel := e.site.Selectors()

	link := row.Find(sel.Link).First()
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return models.RawArticle{}, "missing link"
	}

	articleURL, err := NormalizeURL(e.base, href)
	if err != nil {
		return models.RawArticle{}, err.Error()
	}

	title, ok := e.title(row, link, sel)
	if !ok {
		return models.RawArticle{}, "missing title"
	}

	article := models.RawArticle{
		Title:        title,
		URL:          articleURL,
		PublishedAt:  e.publishedAt(row, sel, scrapedAt),
		Currencies:   currencies(row, sel.Currencies),
		SourceDomain: text(row, sel.SourceDomain),
		Kind:         models.KindNews,
	}

	if d, ok := e.site.(KindDetector); ok {
		article.Kind = d.Kind(row)
	}
	if r, ok := e.site.(OriginalURLResolver); ok {
		article.OriginalURL = r.OriginalURL(row, e.base)
	}
	if article.SourceDomain == "" && article.OriginalURL != "" {
		if u, err := url.Parse(article.OriginalURL); err == nil {
			article.SourceDomain = strings.TrimPrefix(u.Hostname(), "www.")
		}
	}

	return article, ""
}

func (e *Extractor) title(row, link *gq.Selection, sel FieldSelectors) (string, bool) {
	candidates := make([]*gq.Selection, 0, len(sel.Title)+1)
	for _, s := range sel.Title {
		candidates = append(candidates, row.Find(s).First())
	}
	candidates = append(candidates, link)

	for _, c := range candidates {
		if c.Length() == 0 {
			continue
		}
		node := c.Clone()
		if sel.TitleExclude != "" {
			node.Find(sel.TitleExclude).Remove()
		}
		if title, ok := CleanTitle(node.Text()); ok {
			return title, true
		}
	}
	return "", false
}

func (e *Extractor) publishedAt(row *gq.Selection, sel FieldSelectors, scrapedAt time.Time) mo.Option[time.Time] {
	if sel.DateTime == "" {
		return mo.None[time.Time]()
	}

	node := row.Find(sel.DateTime).First()
	if node.Length() == 0 {
		return mo.None[time.Time]()
	}

	if sel.DateTimeAttr != "" {
		if v, ok := node.Attr(sel.DateTimeAttr); ok {
			if t := ParseDateTime(v, scrapedAt); t.IsPresent() {
				return t
			}
		}
	}
	return ParseDateTime(node.Text(), scrapedAt)
}

func currencies(row *gq.Selection, selector string) []string {
	if selector == "" {
		return nil
	}
	tags := row.Find(selector).Map(func(_ int, s *gq.Selection) string {
		return strings.TrimSpace(s.Text())
	})
	return lo.Uniq(lo.Compact(tags))
}

func text(row *gq.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(row.Find(selector).First().Text()), " ")
}
