package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/services"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	services.DataSourceService
	items     []models.DataSource
	watermark mo.Option[time.Time]
	limit     int
	offset    int
}

func (f *fakeRepo) List(_ context.Context, _ common.RecordType, limit, offset int) ([]models.DataSource, error) {
	f.limit, f.offset = limit, offset
	return f.items, nil
}

func (f *fakeRepo) Count(context.Context, common.RecordType) (int64, error) {
	return int64(len(f.items)), nil
}

func (f *fakeRepo) GetLatestPublishedAt(context.Context, common.RecordType) (mo.Option[time.Time], error) {
	return f.watermark, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (models.DataSource, error) {
	for _, item := range f.items {
		if item.ID == id {
			return item, nil
		}
	}
	return models.DataSource{}, services.ErrNotFound
}

func sampleItem(t *testing.T) models.DataSource {
	t.Helper()
	ds, err := models.NewDataSource(common.RecordTypeNews, models.RawArticle{
		Title: "Bitcoin holds above $118k",
		URL:   "https://cryptopanic.com/news/24301234/Bitcoin-holds",
	}, "cryptopanic", time.Date(2025, 7, 24, 19, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	return ds
}

func TestListDataSources(t *testing.T) {
	repo := &fakeRepo{items: []models.DataSource{sampleItem(t)}}
	h := NewDataSourceHandler(repo, common.RecordTypeNews)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?page=2&limit=500", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxPageSize, repo.limit)
	assert.Equal(t, maxPageSize, repo.offset)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestWatermark(t *testing.T) {
	mark := time.Date(2025, 7, 24, 19, 27, 24, 0, time.UTC)
	h := NewDataSourceHandler(&fakeRepo{watermark: mo.Some(mark)}, common.RecordTypeNews)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/watermark", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.WatermarkResponse
	decodeData(t, rec, &got)
	require.NotNil(t, got.Watermark)
	assert.True(t, got.Watermark.Equal(mark))
	assert.Equal(t, "news", got.Type)
}

func TestGetDataSource(t *testing.T) {
	item := sampleItem(t)
	h := NewDataSourceHandler(&fakeRepo{items: []models.DataSource{item}}, common.RecordTypeNews)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+item.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDataSourcesWithoutStore(t *testing.T) {
	h := NewDataSourceHandler(nil, common.RecordTypeNews)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthDependencies(t *testing.T) {
	tests := []struct {
		name       string
		deps       map[string]Pinger
		wantStatus int
		wantBody   string
	}{
		{"all healthy", map[string]Pinger{"database": pingerFunc(func(context.Context) error { return nil })}, http.StatusOK, `"status":"healthy"`},
		{"database disabled", map[string]Pinger{"database": nil}, http.StatusOK, `"status":"degraded"`},
		{"redis down", map[string]Pinger{"redis": pingerFunc(func(context.Context) error { return errors.New("connection refused") })}, http.StatusServiceUnavailable, "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.deps)
			rec := httptest.NewRecorder()
			h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dependencies", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
