package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/rs/zerolog/log"
)

const reportTimeLayout = "20060102_150405"

// FallbackWriter dumps a batch of records as a JSON array into the reports
// directory. When a mirror is set, the same file is also uploaded there.
type FallbackWriter struct {
	local        *LocalStorage
	mirror       StorageService
	mirrorBucket string
	now          func() time.Time
}

type FallbackOption func(*FallbackWriter)

// WithMirror uploads every fallback file to bucket on s, best effort
func WithMirror(s StorageService, bucket string) FallbackOption {
	return func(w *FallbackWriter) {
		w.mirror = s
		w.mirrorBucket = bucket
	}
}

// WithClock overrides the clock used for file names
func WithClock(now func() time.Time) FallbackOption {
	return func(w *FallbackWriter) {
		w.now = now
	}
}

func NewFallbackWriter(reportsDir string, opts ...FallbackOption) *FallbackWriter {
	w := &FallbackWriter{
		local: NewLocalStorage(reportsDir),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// FileName is the report name for a batch written at t
func FileName(t time.Time) string {
	return fmt.Sprintf("%s_%s.json", common.ReportFilePrefix, t.Format(reportTimeLayout))
}

// Write stores records and returns the local file path
func (w *FallbackWriter) Write(ctx context.Context, records []models.DataSource) (string, error) {
	if records == nil {
		records = []models.DataSource{}
	}

	content, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode fallback batch: %w", err)
	}

	name, err := w.freeName()
	if err != nil {
		return "", err
	}

	path, err := w.local.Upload(ctx, "", name, content, "application/json")
	if err != nil {
		return "", err
	}

	if w.mirror != nil {
		if _, err := w.mirror.Upload(ctx, w.mirrorBucket, "reports/"+name, content, "application/json"); err != nil {
			log.Warn().Err(err).Str("bucket", w.mirrorBucket).Str("object", name).Msg("Failed to mirror fallback file")
		} else {
			log.Info().Str("bucket", w.mirrorBucket).Str("object", name).Msg("Mirrored fallback file")
		}
	}

	return path, nil
}

// freeName picks the timestamped name, suffixed when a run in the same second already used it
func (w *FallbackWriter) freeName() (string, error) {
	base := FileName(w.now().UTC())
	name := base
	for i := 1; ; i++ {
		exists, err := w.local.Exists("", name)
		if err != nil {
			return "", fmt.Errorf("failed to check %s: %w", name, err)
		}
		if !exists {
			return name, nil
		}
		name = fmt.Sprintf("%s_%d.json", base[:len(base)-len(".json")], i)
	}
}
