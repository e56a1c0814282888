package crawlers

import (
	"fmt"

	"github.com/LexiconIndonesia/crypto-news-crawler/common/config"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/crawler"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/services"

	// Register sites
	_ "github.com/LexiconIndonesia/crypto-news-crawler/crawlers/cryptopanic"
)

// NewServiceFor builds an IngestService for the registered site name
func NewServiceFor(cfg config.Config, name string, driver crawler.DriverProvider, store services.DataSourceService, fallback services.FallbackSink) (*IngestService, error) {
	site, err := crawler.GetSite(name)
	if err != nil {
		return nil, fmt.Errorf("available sites %v: %w", crawler.SiteNames(), err)
	}
	return NewIngestService(cfg, site, driver, store, fallback), nil
}
