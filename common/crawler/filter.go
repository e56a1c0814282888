package crawler

import (
	"iter"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/samber/mo"
)

// IsNew reports whether an article published at published is newer than
// watermark. Unknown times on either side count as new.
func IsNew(published, watermark mo.Option[time.Time]) bool {
	mark, ok := watermark.Get()
	if !ok {
		return true
	}
	at, ok := published.Get()
	if !ok {
		return true
	}
	return at.After(mark)
}

// FilterNew keeps the articles that are newer than watermark, in order
func FilterNew(articles iter.Seq[models.RawArticle], watermark mo.Option[time.Time]) iter.Seq[models.RawArticle] {
	return func(yield func(models.RawArticle) bool) {
		for a := range articles {
			if !IsNew(a.PublishedAt, watermark) {
				continue
			}
			if !yield(a) {
				return
			}
		}
	}
}
