package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/constants"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/crawler"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/work"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStarter struct {
	manager *work.RunManager
	sites   []string
}

func (f *fakeStarter) StartRun(ctx context.Context, site string, trigger constants.ActionType) (string, error) {
	if site != "cryptopanic" {
		return "", fmt.Errorf("%w: %s", crawler.ErrUnknownSite, site)
	}
	runID := fmt.Sprintf("run-%d", len(f.sites)+1)
	if err := f.manager.Start(ctx, site, runID, trigger); err != nil {
		return "", err
	}
	f.sites = append(f.sites, site)
	return runID, nil
}

func newRunHandler(t *testing.T) (*RunHandler, *work.RunManager) {
	t.Helper()
	manager := work.NewRunManager(work.NewMemoryStore(), time.Minute)
	return NewRunHandler(&fakeStarter{manager: manager}, manager, "cryptopanic"), manager
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NoError(t, json.Unmarshal(body.Data, v))
}

func TestStartRun(t *testing.T) {
	h, _ := newRunHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted RunAccepted
	decodeData(t, rec, &accepted)
	assert.Equal(t, RunAccepted{RunID: "run-1", Site: "cryptopanic"}, accepted)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"site":"cryptopanic"}`))
	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartRunErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"unknown site", `{"site":"coinmarketcap"}`, http.StatusNotFound},
		{"malformed body", `{"site":`, http.StatusBadRequest},
		{"site too long", `{"site":"` + strings.Repeat("x", 65) + `"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newRunHandler(t)
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Router().ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGetRunAndListRunning(t *testing.T) {
	h, manager := newRunHandler(t)
	ctx := context.Background()

	require.NoError(t, manager.Start(ctx, "cryptopanic", "run-9", constants.RunFromCLI))

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var running []work.RunningRun
	decodeData(t, rec, &running)
	assert.Equal(t, []work.RunningRun{{Site: "cryptopanic", RunID: "run-9"}}, running)

	require.NoError(t, manager.Complete(ctx, "cryptopanic", models.RunReport{RunID: "run-9", State: common.RunStateDone, Inserted: 4}))

	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run-9", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.RunStatusResponse
	decodeData(t, rec, &status)
	assert.Equal(t, common.RunStateDone, status.State)
	assert.False(t, status.Running)
	require.NotNil(t, status.Report)
	assert.Equal(t, 4, status.Report.Inserted)

	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
