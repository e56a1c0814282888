package cryptopanic

import (
	"os"
	"slices"
	"testing"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/crawler"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractFixture(t *testing.T) ([]models.RawArticle, *crawler.Extractor) {
	t.Helper()

	html, err := os.ReadFile("testdata/listing.html")
	require.NoError(t, err)

	e, err := crawler.NewExtractor(Site{})
	require.NoError(t, err)

	seq, err := e.Extract(string(html))
	require.NoError(t, err)
	return slices.Collect(seq), e
}

func TestRegistered(t *testing.T) {
	site, err := crawler.GetSite(SourceName)
	require.NoError(t, err)
	assert.Equal(t, "https://cryptopanic.com/", site.ListingURL())
}

func TestExtractListing(t *testing.T) {
	articles, e := extractFixture(t)

	require.Len(t, articles, 3)
	assert.Equal(t, 1, e.Skipped(), "row with only a source name has no title")

	btc := articles[0]
	assert.Equal(t, "Bitcoin holds above $118k as ETF inflows resume", btc.Title)
	assert.Equal(t, "https://cryptopanic.com/news/24301234/Bitcoin-holds-above-118k-as-ETF-inflows-resume", btc.URL)
	assert.Equal(t, mo.Some(time.Date(2025, 7, 24, 19, 27, 23, 0, time.UTC)), btc.PublishedAt)
	assert.Equal(t, []string{"BTC", "ETH"}, btc.Currencies)
	assert.Equal(t, "coindesk.com", btc.SourceDomain)
	assert.Equal(t, "https://www.coindesk.com/markets/2025/07/24/bitcoin-holds", btc.OriginalURL)
	assert.Equal(t, models.KindNews, btc.Kind)

	sponsored := articles[1]
	assert.Equal(t, "Exchange launches zero-fee crypto card", sponsored.Title)
	assert.Equal(t, models.KindPress, sponsored.Kind)
	assert.Equal(t, "https://exchange.example.org/launch", sponsored.OriginalURL)
	assert.Equal(t, "exchange.example.org", sponsored.SourceDomain)
	assert.Empty(t, sponsored.Currencies)

	press := articles[2]
	assert.Equal(t, "Solana validators ship upgrade", press.Title)
	assert.Equal(t, models.KindPress, press.Kind)
	assert.True(t, press.PublishedAt.IsAbsent())
	assert.Empty(t, press.OriginalURL, "redirect links are not publisher links")
	assert.Equal(t, []string{"SOL"}, press.Currencies)
}

func TestExtractListingThenFilter(t *testing.T) {
	articles, _ := extractFixture(t)

	watermark := mo.Some(time.Date(2025, 7, 24, 19, 27, 23, 0, time.UTC))
	kept := slices.Collect(crawler.FilterNew(slices.Values(articles), watermark))

	require.Len(t, kept, 2)
	assert.Equal(t, "Exchange launches zero-fee crypto card", kept[0].Title)
	assert.Equal(t, "Solana validators ship upgrade", kept[1].Title)
}

func TestExtractListingBuildsRecords(t *testing.T) {
	articles, _ := extractFixture(t)
	scrapedAt := time.Date(2025, 7, 24, 21, 0, 0, 0, time.UTC)

	for _, a := range articles {
		ds, err := models.NewDataSource(common.RecordTypeNews, a, SourceName, scrapedAt)
		require.NoError(t, err)
		assert.Equal(t, models.RecordID(common.RecordTypeNews, a.URL), ds.ID)
		assert.Equal(t, SourceName, ds.RawContent.Source)
	}
}
