package services

import (
	"context"
	"fmt"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/rs/zerolog/log"
)

// fallbackTimeout bounds the fallback write, which runs detached from the
// caller's cancellation
const fallbackTimeout = 30 * time.Second

// OutcomeKind tags the result of a persist call
type OutcomeKind string

const (
	OutcomeInserted OutcomeKind = "inserted"
	OutcomeFallback OutcomeKind = "fallback"
	OutcomeFailed   OutcomeKind = "failed"
)

// Outcome is the tagged result of PersistenceWriter.Save. Only the fields
// of its Kind are meaningful.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`

	// Inserted
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`

	// Fallback
	FallbackPath    string `json:"fallback_path,omitempty"`
	FallbackWritten int    `json:"fallback_written"`
	Cause           string `json:"cause,omitempty"`

	// Failed
	Err error `json:"-"`
}

// Inserted reports a batch that reached the relational store
func Inserted(inserted, skipped int) Outcome {
	return Outcome{Kind: OutcomeInserted, Inserted: inserted, Skipped: skipped}
}

// Fallback reports a batch written to the fallback file instead of the store
func Fallback(path string, written int, cause error) Outcome {
	o := Outcome{Kind: OutcomeFallback, FallbackPath: path, FallbackWritten: written}
	if cause != nil {
		o.Cause = cause.Error()
	}
	return o
}

// Failed reports a batch that could not be persisted anywhere
func Failed(err error) Outcome {
	o := Outcome{Kind: OutcomeFailed, Err: err}
	if err != nil {
		o.Cause = err.Error()
	}
	return o
}

// Degraded is true when data is safe but not in the primary store
func (o Outcome) Degraded() bool {
	return o.Kind == OutcomeFallback
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeInserted:
		return fmt.Sprintf("inserted=%d skipped=%d", o.Inserted, o.Skipped)
	case OutcomeFallback:
		return fmt.Sprintf("fallback=%s written=%d", o.FallbackPath, o.FallbackWritten)
	default:
		return fmt.Sprintf("failed: %s", o.Cause)
	}
}

// FallbackSink stores a batch somewhere other than the relational store and
// returns where it went
type FallbackSink interface {
	Write(ctx context.Context, records []models.DataSource) (string, error)
}

// PersistenceWriter writes batches to the relational store and falls back to
// a FallbackSink when the store is missing or the transaction fails.
type PersistenceWriter struct {
	store    DataSourceService
	fallback FallbackSink
}

// NewPersistenceWriter creates a writer. store may be nil for fallback-only mode.
func NewPersistenceWriter(store DataSourceService, fallback FallbackSink) *PersistenceWriter {
	return &PersistenceWriter{
		store:    store,
		fallback: fallback,
	}
}

// Save persists records and never returns an error: the outcome carries it.
// The fallback write still happens when ctx is already cancelled, since a
// hanging store is usually why the insert failed.
func (w *PersistenceWriter) Save(ctx context.Context, records []models.DataSource) Outcome {
	if len(records) == 0 {
		return Inserted(0, 0)
	}

	var cause error
	if w.store == nil {
		cause = common.ErrStoreUnavailable
	} else {
		result, err := w.store.InsertBatch(ctx, records)
		if err == nil {
			log.Info().
				Int("inserted", result.Inserted).
				Int("skipped", result.Skipped).
				Msg("Saved batch to database")
			return Inserted(result.Inserted, result.Skipped)
		}
		cause = fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}

	log.Warn().Err(cause).Int("records", len(records)).Msg("Database write unavailable, writing fallback file")

	if w.fallback == nil {
		err := fmt.Errorf("no fallback sink configured: %w", cause)
		log.Error().Err(err).Msg("Failed to persist batch")
		return Failed(err)
	}

	fallbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackTimeout)
	defer cancel()

	path, err := w.fallback.Write(fallbackCtx, records)
	if err != nil {
		err = fmt.Errorf("fallback write failed after %v: %w", cause, err)
		log.Error().Err(err).Int("records", len(records)).Msg("Failed to persist batch")
		return Failed(err)
	}

	log.Warn().Str("path", path).Int("records", len(records)).Msg("Batch written to fallback file")
	return Fallback(path, len(records), cause)
}
