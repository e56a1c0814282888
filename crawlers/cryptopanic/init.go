package cryptopanic

import (
	"github.com/LexiconIndonesia/crypto-news-crawler/common/crawler"
)

func init() {
	crawler.RegisterSite(Site{})
}
