package crawlers

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/config"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/crawler"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/logger"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/services"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

// Publisher announces finished runs
type Publisher interface {
	PublishRunReport(ctx context.Context, report models.RunReport) error
}

// IngestService runs the scrape and ingest pipeline for one site:
// watermark, extract, filter, build, persist. Each call to Run is a single
// pass with no retries.
type IngestService struct {
	site       crawler.Site
	driver     crawler.DriverProvider
	store      services.DataSourceService
	writer     *services.PersistenceWriter
	recordType common.RecordType
	loadOpts   crawler.LoadOptions
	runTimeout time.Duration

	publisher Publisher
	counter   *logger.LevelCounter
	now       func() time.Time
}

// NewIngestService wires a pipeline. store may be nil, in which case every
// run uses the fallback sink.
func NewIngestService(cfg config.Config, site crawler.Site, driver crawler.DriverProvider, store services.DataSourceService, fallback services.FallbackSink) *IngestService {
	return &IngestService{
		site:       site,
		driver:     driver,
		store:      store,
		writer:     services.NewPersistenceWriter(store, fallback),
		recordType: cfg.Pipeline.RecordType,
		loadOpts: crawler.LoadOptions{
			PageLoadTimeout:   cfg.Browser.PageLoadTimeout,
			ScrollMaxAttempts: int(cfg.Browser.ScrollMaxAttempts),
			ScrollPause:       cfg.Browser.ScrollPause,
		},
		runTimeout: cfg.Pipeline.RunTimeout,
		now:        time.Now,
	}
}

// SetPublisher enables run announcements
func (s *IngestService) SetPublisher(p Publisher) {
	s.publisher = p
}

// SetLevelCounter lets run reports include the warnings and errors logged during the run
func (s *IngestService) SetLevelCounter(c *logger.LevelCounter) {
	s.counter = c
}

// Site is the site this service scrapes
func (s *IngestService) Site() crawler.Site {
	return s.site
}

// Run executes one pass. The returned error is non-nil only for FAILED runs;
// degraded runs that fell back to the report file return nil.
func (s *IngestService) Run(ctx context.Context) (models.RunReport, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return models.RunReport{}, fmt.Errorf("generate run id: %w", err)
	}
	return s.RunWithID(ctx, id.String())
}

// RunWithID is Run with a caller supplied run id
func (s *IngestService) RunWithID(ctx context.Context, runID string) (models.RunReport, error) {
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	r := &run{
		svc: s,
		l:   log.With().Str("runID", runID).Str("site", s.site.SourceName()).Logger(),
		report: models.RunReport{
			RunID:     runID,
			Site:      s.site.SourceName(),
			Type:      s.recordType.String(),
			State:     common.RunStateInit,
			StartedAt: s.now().UTC(),
		},
	}
	if s.counter != nil {
		r.warnings0, r.errors0 = s.counter.Warnings(), s.counter.Errors()
	}

	err := r.execute(ctx)
	r.finish(err)
	s.publish(r.report)
	return r.report, err
}

func (s *IngestService) publish(report models.RunReport) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishRunReport(ctx, report); err != nil {
		log.Warn().Err(err).Str("runID", report.RunID).Msg("Failed to publish run report")
	}
}

type run struct {
	svc    *IngestService
	l      zerolog.Logger
	report models.RunReport

	warnings0, errors0 int64
}

func (r *run) transition(state common.RunState) {
	r.l.Debug().Str("from", string(r.report.State)).Str("to", string(state)).Msg("Run state")
	r.report.State = state
}

func (r *run) execute(ctx context.Context) error {
	s := r.svc

	r.transition(common.RunStateWatermarkRead)
	watermark := services.LatestWatermark(ctx, s.store, s.recordType)
	if mark, ok := watermark.Get(); ok {
		r.report.Watermark = &mark
	}

	r.transition(common.RunStateExtract)
	articles, extractor, err := r.extract(ctx)
	if err != nil {
		return err
	}

	r.transition(common.RunStateFilter)
	kept := slices.Collect(crawler.FilterNew(counted(articles, &r.report.Extracted), watermark))
	r.report.RowsSkipped = extractor.Skipped()
	r.report.FilteredOut = r.report.Extracted - len(kept)
	r.l.Info().
		Int("extracted", r.report.Extracted).
		Int("rowsSkipped", r.report.RowsSkipped).
		Int("new", len(kept)).
		Msg("Filtered articles against watermark")

	r.transition(common.RunStateBuild)
	records := r.build(kept)
	r.report.New = len(records)

	if len(records) == 0 {
		r.l.Info().Msg("No new articles")
		r.transition(common.RunStateDone)
		return nil
	}

	r.transition(common.RunStatePersist)
	outcome := s.writer.Save(ctx, records)
	switch outcome.Kind {
	case services.OutcomeInserted:
		r.report.Inserted = outcome.Inserted
		r.report.Duplicates = outcome.Skipped
		r.transition(common.RunStateDone)
		return nil
	case services.OutcomeFallback:
		r.report.FallbackPath = outcome.FallbackPath
		r.report.FallbackWritten = outcome.FallbackWritten
		r.transition(common.RunStateDoneDegraded)
		return nil
	default:
		return fmt.Errorf("persist %d records: %w", len(records), outcome.Err)
	}
}

// extract holds the browser session only while the listing is loaded
func (r *run) extract(ctx context.Context) (iter.Seq[models.RawArticle], *crawler.Extractor, error) {
	s := r.svc

	extractor, err := crawler.NewExtractor(s.site)
	if err != nil {
		return nil, nil, err
	}

	sess, err := s.driver.Acquire(ctx)
	if err != nil {
		if !errors.Is(err, crawler.ErrBrowserUnavailable) {
			err = fmt.Errorf("%w: %w", crawler.ErrBrowserUnavailable, err)
		}
		return nil, nil, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			r.l.Warn().Err(err).Msg("Failed to close browser session")
		}
	}()

	html, err := crawler.LoadListing(ctx, sess, s.site, s.loadOpts)
	if err != nil {
		return nil, nil, err
	}

	articles, err := extractor.Extract(html)
	if err != nil {
		return nil, nil, err
	}
	return articles, extractor, nil
}

// build turns kept articles into records. Invalid articles are dropped and
// the first occurrence of a URL wins.
func (r *run) build(kept []models.RawArticle) []models.DataSource {
	s := r.svc
	scrapedAt := s.now().UTC()
	seen := make(map[string]bool, len(kept))
	records := make([]models.DataSource, 0, len(kept))

	for _, a := range kept {
		ds, err := models.NewDataSource(s.recordType, a, s.site.SourceName(), scrapedAt)
		if err != nil {
			r.report.Invalid++
			r.l.Warn().Err(err).Str("url", a.URL).Msg("Dropping invalid article")
			continue
		}
		if seen[ds.URL] {
			r.report.InBatchDuplicates++
			r.l.Debug().Str("url", ds.URL).Str("id", ds.ID).Msg("Duplicate URL in batch, keeping first")
			continue
		}
		seen[ds.URL] = true
		records = append(records, ds)
	}

	return records
}

func (r *run) finish(err error) {
	if err != nil {
		r.report.Error = err.Error()
		r.transition(common.RunStateFailed)
		r.l.Error().Err(err).Msg("Ingest run failed")
	}

	r.report.FinishedAt = r.svc.now().UTC()
	r.report.Duration = r.report.FinishedAt.Sub(r.report.StartedAt)
	if c := r.svc.counter; c != nil {
		r.report.Warnings = c.Warnings() - r.warnings0
		r.report.Errors = c.Errors() - r.errors0
	}

	ev := r.l.Info()
	if r.report.State == common.RunStateDoneDegraded {
		ev = r.l.Warn()
	}
	ev.Str("state", string(r.report.State)).
		Int("extracted", r.report.Extracted).
		Int("rowsSkipped", r.report.RowsSkipped).
		Int("filteredOut", r.report.FilteredOut).
		Int("invalid", r.report.Invalid).
		Int("inserted", r.report.Inserted).
		Int("duplicates", r.report.Duplicates).
		Str("fallbackPath", r.report.FallbackPath).
		Int64("warnings", r.report.Warnings).
		Int64("errors", r.report.Errors).
		Dur("duration", r.report.Duration).
		Msg("Ingest run finished")
}

func counted[T any](seq iter.Seq[T], n *int) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			*n++
			if !yield(v) {
				return
			}
		}
	}
}

// RunSummary renders the counters of a report as a single line
func RunSummary(r models.RunReport) string {
	parts := []string{
		fmt.Sprintf("state=%s", r.State),
		fmt.Sprintf("extracted=%d", r.Extracted),
		fmt.Sprintf("new=%d", r.New),
		fmt.Sprintf("inserted=%d", r.Inserted),
		fmt.Sprintf("duplicates=%d", r.Duplicates),
	}
	if r.FallbackPath != "" {
		parts = append(parts, fmt.Sprintf("fallback=%s", r.FallbackPath))
	}
	return strings.Join(parts, " ")
}
