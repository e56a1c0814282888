package services

import (
	"context"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/rs/zerolog/log"
	"github.com/samber/mo"
)

// LatestWatermark reads the incremental cursor for a record type. An absent
// or unreachable store yields None, which lets every article through.
func LatestWatermark(ctx context.Context, store DataSourceService, recordType common.RecordType) mo.Option[time.Time] {
	if store == nil {
		log.Warn().Str("type", recordType.String()).Msg("No relational store configured, watermark unknown")
		return mo.None[time.Time]()
	}

	watermark, err := store.GetLatestPublishedAt(ctx, recordType)
	if err != nil {
		log.Warn().Err(err).Str("type", recordType.String()).Msg("Failed to read watermark, treating every article as new")
		return mo.None[time.Time]()
	}

	if latest, ok := watermark.Get(); ok {
		log.Info().Str("type", recordType.String()).Time("watermark", latest).Msg("Watermark loaded")
	} else {
		log.Info().Str("type", recordType.String()).Msg("No dated records yet, watermark unknown")
	}
	return watermark
}
