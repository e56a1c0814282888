package crawler

import (
	"slices"
	"testing"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
)

func article(url string, published mo.Option[time.Time]) models.RawArticle {
	return models.RawArticle{Title: "Headline " + url, URL: url, PublishedAt: published}
}

func TestFilterNewWatermarkScenario(t *testing.T) {
	watermark := mo.Some(time.Date(2025, 1, 24, 12, 0, 0, 0, time.UTC))

	articles := []models.RawArticle{
		article("https://cryptopanic.com/news/1", mo.Some(time.Date(2025, 1, 24, 12, 0, 0, 0, time.UTC))),
		article("https://cryptopanic.com/news/2", mo.Some(time.Date(2025, 1, 24, 12, 0, 1, 0, time.UTC))),
		article("https://cryptopanic.com/news/3", mo.None[time.Time]()),
	}

	got := slices.Collect(FilterNew(slices.Values(articles), watermark))

	assert.Len(t, got, 2)
	assert.Equal(t, []string{"https://cryptopanic.com/news/2", "https://cryptopanic.com/news/3"},
		lo.Map(got, func(a models.RawArticle, _ int) string { return a.URL }))
}

func TestFilterNewWithoutWatermarkKeepsEverything(t *testing.T) {
	articles := []models.RawArticle{
		article("https://cryptopanic.com/news/1", mo.Some(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))),
		article("https://cryptopanic.com/news/2", mo.None[time.Time]()),
	}

	got := slices.Collect(FilterNew(slices.Values(articles), mo.None[time.Time]()))
	assert.Equal(t, articles, got)
}

func TestFilterNewDropsOlder(t *testing.T) {
	watermark := mo.Some(time.Date(2025, 1, 24, 12, 0, 0, 0, time.UTC))
	older := article("https://cryptopanic.com/news/1", mo.Some(time.Date(2025, 1, 24, 11, 59, 59, 0, time.UTC)))

	got := slices.Collect(FilterNew(slices.Values([]models.RawArticle{older}), watermark))
	assert.Empty(t, got)
}

func TestFilterNewComparesAcrossZones(t *testing.T) {
	watermark := mo.Some(time.Date(2025, 1, 24, 12, 0, 0, 0, time.UTC))
	jst := time.FixedZone("JST", 9*60*60)

	sameInstant := article("https://cryptopanic.com/news/1", mo.Some(time.Date(2025, 1, 24, 21, 0, 0, 0, jst)))
	later := article("https://cryptopanic.com/news/2", mo.Some(time.Date(2025, 1, 24, 21, 0, 1, 0, jst)))

	got := slices.Collect(FilterNew(slices.Values([]models.RawArticle{sameInstant, later}), watermark))
	assert.Equal(t, []models.RawArticle{later}, got)
}

func TestFilterNewStopsEarly(t *testing.T) {
	articles := []models.RawArticle{
		article("https://cryptopanic.com/news/1", mo.None[time.Time]()),
		article("https://cryptopanic.com/news/2", mo.None[time.Time]()),
		article("https://cryptopanic.com/news/3", mo.None[time.Time]()),
	}

	var seen []string
	for a := range FilterNew(slices.Values(articles), mo.None[time.Time]()) {
		seen = append(seen, a.URL)
		if len(seen) == 2 {
			break
		}
	}
	assert.Len(t, seen, 2)
}
