package crawlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/config"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/crawler"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/logger"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/services"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/storage"
	"github.com/LexiconIndonesia/crypto-news-crawler/crawlers/cryptopanic"
	"github.com/rs/zerolog/log"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	html          string
	navigateErr   error
	blockNavigate bool
	closed        int
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	if s.blockNavigate {
		<-ctx.Done()
		return fmt.Errorf("%w: %s: %w", crawler.ErrNavigation, url, ctx.Err())
	}
	return s.navigateErr
}

func (s *fakeSession) WaitFor(context.Context, string, time.Duration) error { return nil }

func (s *fakeSession) Scroll(context.Context, string, int, time.Duration) (int, error) {
	return 5, nil
}

func (s *fakeSession) HTML(context.Context) (string, error) { return s.html, nil }

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeDriver struct {
	session    *fakeSession
	acquireErr error
	acquired   int
}

func (d *fakeDriver) Acquire(context.Context) (crawler.Session, error) {
	d.acquired++
	if d.acquireErr != nil {
		return nil, d.acquireErr
	}
	return d.session, nil
}

// memoryStore behaves like the data_source table for one record type
type memoryStore struct {
	services.DataSourceService
	mu        sync.Mutex
	rows      map[string]models.DataSource
	insertErr error
	reads     int

	// hang makes InsertBatch wait for its context, after calling onInsert
	hang     bool
	onInsert func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[string]models.DataSource{}}
}

func (s *memoryStore) GetLatestPublishedAt(context.Context, common.RecordType) (mo.Option[time.Time], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++

	latest := mo.None[time.Time]()
	for _, r := range s.rows {
		if r.PublishedAt == nil {
			continue
		}
		if cur, ok := latest.Get(); !ok || r.PublishedAt.After(cur) {
			latest = mo.Some(*r.PublishedAt)
		}
	}
	return latest, nil
}

func (s *memoryStore) InsertBatch(ctx context.Context, records []models.DataSource) (services.InsertResult, error) {
	if s.hang {
		if s.onInsert != nil {
			s.onInsert()
		}
		<-ctx.Done()
		return services.InsertResult{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertErr != nil {
		return services.InsertResult{}, s.insertErr
	}
	var res services.InsertResult
	for _, r := range records {
		if _, ok := s.rows[r.ID]; ok {
			res.Skipped++
			continue
		}
		s.rows[r.ID] = r
		res.Inserted++
	}
	return res, nil
}

type fakeSink struct {
	batches [][]models.DataSource
}

func (s *fakeSink) Write(_ context.Context, records []models.DataSource) (string, error) {
	s.batches = append(s.batches, records)
	return "reports/crypto_news_20250724_193000.json", nil
}

type fakePublisher struct {
	reports []models.RunReport
	err     error
}

func (p *fakePublisher) PublishRunReport(_ context.Context, r models.RunReport) error {
	p.reports = append(p.reports, r)
	return p.err
}

func fixtureDriver(t *testing.T) *fakeDriver {
	t.Helper()
	html, err := os.ReadFile("cryptopanic/testdata/listing.html")
	require.NoError(t, err)
	return &fakeDriver{session: &fakeSession{html: string(html)}}
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Browser.ScrollPause = time.Millisecond
	cfg.Pipeline.RunTimeout = 30 * time.Second
	return cfg
}

func TestIngestFirstRunThenRerun(t *testing.T) {
	driver := fixtureDriver(t)
	store := newMemoryStore()
	sink := &fakeSink{}
	svc := NewIngestService(testConfig(), cryptopanic.Site{}, driver, store, sink)

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.RunStateDone, first.State)
	assert.Nil(t, first.Watermark)
	assert.Equal(t, 3, first.Extracted)
	assert.Equal(t, 1, first.RowsSkipped)
	assert.Equal(t, 3, first.New)
	assert.Equal(t, 3, first.Inserted)
	assert.Zero(t, first.Duplicates)
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, "cryptopanic", first.Site)
	assert.Equal(t, "news", first.Type)
	assert.Equal(t, 1, driver.session.closed)

	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, second.Watermark)
	assert.True(t, second.Watermark.Equal(time.Date(2025, 7, 24, 19, 27, 24, 0, time.UTC)))
	assert.Equal(t, 2, second.FilteredOut)
	assert.Equal(t, 1, second.New, "undated article always passes the filter")
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 1, second.Duplicates)
	assert.Equal(t, common.RunStateDone, second.State)

	assert.Len(t, store.rows, 3)
	assert.Empty(t, sink.batches)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestIngestFiltersAgainstWatermark(t *testing.T) {
	store := newMemoryStore()
	mark := time.Date(2025, 7, 24, 19, 27, 23, 0, time.UTC)
	seed, err := models.NewDataSource(common.RecordTypeNews, models.RawArticle{
		Title:       "Older headline seen before",
		URL:         "https://cryptopanic.com/news/1/older",
		PublishedAt: mo.Some(mark),
	}, "cryptopanic", mark)
	require.NoError(t, err)
	store.rows[seed.ID] = seed

	svc := NewIngestService(testConfig(), cryptopanic.Site{}, fixtureDriver(t), store, &fakeSink{})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilteredOut)
	assert.Equal(t, 2, report.Inserted)
	assert.Len(t, store.rows, 3)
}

func TestIngestFallsBackWhenStoreFails(t *testing.T) {
	store := newMemoryStore()
	store.insertErr = errors.New("connection reset by peer")
	sink := &fakeSink{}
	pub := &fakePublisher{}
	svc := NewIngestService(testConfig(), cryptopanic.Site{}, fixtureDriver(t), store, sink)
	svc.SetPublisher(pub)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.RunStateDoneDegraded, report.State)
	assert.True(t, report.Degraded())
	assert.Equal(t, "reports/crypto_news_20250724_193000.json", report.FallbackPath)
	assert.Equal(t, 3, report.FallbackWritten)
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 3)

	require.Len(t, pub.reports, 1)
	assert.Equal(t, report.RunID, pub.reports[0].RunID)
}

func TestIngestFallbackOnlyMode(t *testing.T) {
	sink := &fakeSink{}
	svc := NewIngestService(testConfig(), cryptopanic.Site{}, fixtureDriver(t), nil, sink)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.RunStateDoneDegraded, report.State)
	assert.Nil(t, report.Watermark)
	require.Len(t, sink.batches, 1)
}

func TestIngestBrowserUnavailable(t *testing.T) {
	driver := &fakeDriver{acquireErr: errors.New("dial tcp 127.0.0.1:9222: connection refused")}
	store := newMemoryStore()
	sink := &fakeSink{}
	pub := &fakePublisher{}
	svc := NewIngestService(testConfig(), cryptopanic.Site{}, driver, store, sink)
	svc.SetPublisher(pub)

	report, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, crawler.ErrBrowserUnavailable)
	assert.Equal(t, common.RunStateFailed, report.State)
	assert.Contains(t, report.Error, "connection refused")
	assert.Empty(t, store.rows)
	assert.Empty(t, sink.batches)
	require.Len(t, pub.reports, 1)
	assert.Equal(t, common.RunStateFailed, pub.reports[0].State)
}

func TestIngestNavigationFailure(t *testing.T) {
	driver := fixtureDriver(t)
	driver.session.navigateErr = crawler.ErrNavigation
	svc := NewIngestService(testConfig(), cryptopanic.Site{}, driver, newMemoryStore(), &fakeSink{})

	report, err := svc.Run(context.Background())
	require.ErrorIs(t, err, crawler.ErrNavigation)
	assert.Equal(t, common.RunStateFailed, report.State)
	assert.Equal(t, 1, driver.session.closed)
}

func TestIngestEmptyListing(t *testing.T) {
	driver := &fakeDriver{session: &fakeSession{html: "<html><body></body></html>"}}
	sink := &fakeSink{}
	svc := NewIngestService(testConfig(), cryptopanic.Site{}, driver, newMemoryStore(), sink)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.RunStateDone, report.State)
	assert.Zero(t, report.Extracted)
	assert.Zero(t, report.Inserted)
	assert.Empty(t, sink.batches)
}

func TestIngestPublishFailureDoesNotFailRun(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: timeout")}
	svc := NewIngestService(testConfig(), cryptopanic.Site{}, fixtureDriver(t), newMemoryStore(), &fakeSink{})
	svc.SetPublisher(pub)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.RunStateDone, report.State)
	assert.Len(t, pub.reports, 1)
}

func TestIngestCountsWarnings(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	counter := logger.NewLevelCounter()
	counter.Attach()

	store := newMemoryStore()
	store.insertErr = errors.New("connection refused")
	svc := NewIngestService(testConfig(), cryptopanic.Site{}, fixtureDriver(t), store, &fakeSink{})
	svc.SetLevelCounter(counter)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Positive(t, report.Warnings)
	assert.Zero(t, report.Errors)
}

func TestRunSummary(t *testing.T) {
	summary := RunSummary(models.RunReport{
		State:        common.RunStateDoneDegraded,
		Extracted:    3,
		New:          3,
		FallbackPath: "reports/crypto_news_20250724_193000.json",
	})
	assert.Equal(t, "state=DONE_DEGRADED extracted=3 new=3 inserted=0 duplicates=0 fallback=reports/crypto_news_20250724_193000.json", summary)
}

func TestNewServiceFor(t *testing.T) {
	svc, err := NewServiceFor(testConfig(), "cryptopanic", fixtureDriver(t), nil, &fakeSink{})
	require.NoError(t, err)
	assert.Equal(t, "cryptopanic", svc.Site().SourceName())

	_, err = NewServiceFor(testConfig(), "coinmarketcap", fixtureDriver(t), nil, &fakeSink{})
	assert.ErrorIs(t, err, crawler.ErrUnknownSite)
}

func reportFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	return files
}

func assertReportRecords(t *testing.T, path string, want int) {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(content, &records))
	assert.Len(t, records, want)
}

func TestIngestFallsBackWhenRunTimesOutDuringPersist(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Pipeline.RunTimeout = 300 * time.Millisecond

	store := newMemoryStore()
	store.hang = true
	svc := NewIngestService(cfg, cryptopanic.Site{}, fixtureDriver(t), store, storage.NewFallbackWriter(dir))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.RunStateDoneDegraded, report.State)
	assert.Equal(t, 3, report.FallbackWritten)
	require.NotEmpty(t, report.FallbackPath)

	files := reportFiles(t, dir)
	require.Len(t, files, 1)
	assert.Equal(t, report.FallbackPath, files[0])
	assertReportRecords(t, files[0], 3)
}

func TestIngestFallsBackWhenCancelledDuringPersist(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newMemoryStore()
	store.hang = true
	store.onInsert = cancel
	svc := NewIngestService(testConfig(), cryptopanic.Site{}, fixtureDriver(t), store, storage.NewFallbackWriter(dir))

	report, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, common.RunStateDoneDegraded, report.State)

	files := reportFiles(t, dir)
	require.Len(t, files, 1)
	assertReportRecords(t, files[0], 3)
}

func TestIngestClosesSessionWhenRunTimesOutDuringExtract(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.RunTimeout = 100 * time.Millisecond

	driver := fixtureDriver(t)
	driver.session.blockNavigate = true
	store := newMemoryStore()
	sink := &fakeSink{}
	svc := NewIngestService(cfg, cryptopanic.Site{}, driver, store, sink)

	report, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, common.RunStateFailed, report.State)
	assert.Equal(t, 1, driver.session.closed)
	assert.Empty(t, store.rows)
	assert.Empty(t, sink.batches)
}
