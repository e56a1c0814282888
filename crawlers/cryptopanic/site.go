package cryptopanic

import (
	"net/url"
	"strings"

	"github.com/LexiconIndonesia/crypto-news-crawler/common/crawler"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	gq "github.com/PuerkitoBio/goquery"
)

const (
	SourceName = "cryptopanic"
	BaseURL    = "https://cryptopanic.com/"
)

var originalURLAttrs = []string{"data-url", "data-href", "data-external-url", "data-original-url", "data-link"}

// Site scrapes the cryptopanic.com front page listing
type Site struct{}

func (Site) SourceName() string { return SourceName }

func (Site) BaseURL() string { return BaseURL }

func (Site) ListingURL() string { return BaseURL }

// RowSelector matches news rows only; ad and promo containers carry no /news/ link
func (Site) RowSelector() string { return ".news-row:has(a[href*='/news/'])" }

func (Site) Selectors() crawler.FieldSelectors {
	return crawler.FieldSelectors{
		Title:        []string{".nc-title .title-text", ".nc-title"},
		Link:         "a[href*='/news/']",
		TitleExclude: ".si-source-name, .hidden-mobile",
		DateTime:     ".nc-date time, time",
		DateTimeAttr: "datetime",
		Currencies:   ".nc-currency a",
		SourceDomain: ".si-source-domain",
	}
}

// Kind marks sponsored rows and rows labelled "Press"
func (Site) Kind(row *gq.Selection) models.ArticleKind {
	if row.HasClass("sponsored") {
		return models.KindPress
	}
	press := row.Find("span, a, div").FilterFunction(func(_ int, s *gq.Selection) bool {
		return strings.TrimSpace(s.Text()) == "Press"
	})
	if press.Length() > 0 {
		return models.KindPress
	}
	return models.KindNews
}

// OriginalURL finds the publisher link of a row, ignoring cryptopanic's own
// pages and its click-through redirects.
func (Site) OriginalURL(row *gq.Selection, base *url.URL) string {
	candidates := make([]string, 0, len(originalURLAttrs))
	for _, attr := range originalURLAttrs {
		if v, ok := row.Attr(attr); ok {
			candidates = append(candidates, v)
		}
		row.Find("[" + attr + "]").Each(func(_ int, s *gq.Selection) {
			v, _ := s.Attr(attr)
			candidates = append(candidates, v)
		})
	}
	row.Find("a[href]").Each(func(_ int, s *gq.Selection) {
		v, _ := s.Attr("href")
		candidates = append(candidates, v)
	})

	for _, c := range candidates {
		if isExternal(c, base) {
			if normalized, err := crawler.NormalizeURL(base, c); err == nil {
				return normalized
			}
		}
	}
	return ""
}

func isExternal(raw string, base *url.URL) bool {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return false
	}
	if strings.Contains(raw, "/redirect/") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host != strings.TrimPrefix(base.Hostname(), "www.") && !strings.HasSuffix(host, ".cryptopanic.com")
}
