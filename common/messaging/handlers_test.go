package messaging

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/constants"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/crawler"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMsg struct {
	jetstream.Msg
	data                 []byte
	acked, naked, termed bool
}

func (m *fakeMsg) Data() []byte    { return m.data }
func (m *fakeMsg) Subject() string { return constants.RunTopic }

func (m *fakeMsg) Ack() error {
	m.acked = true
	return nil
}

func (m *fakeMsg) Nak() error {
	m.naked = true
	return nil
}

func (m *fakeMsg) Term() error {
	m.termed = true
	return nil
}

func TestHandleRunRequest(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		handleErr error
		wantCall  bool
		wantAck   bool
		wantNak   bool
		wantTerm  bool
	}{
		{"accepted", `{"site":"cryptopanic"}`, nil, true, true, false, false},
		{"already running", `{"site":"cryptopanic"}`, common.ErrRunInProgress, true, true, false, false},
		{"unknown site", `{"site":"cryptopanic"}`, fmt.Errorf("available sites []: %w", crawler.ErrUnknownSite), true, false, false, true},
		{"enqueue failure", `{"site":"cryptopanic"}`, errors.New("redis down"), true, false, true, false},
		{"malformed", `{"site":`, nil, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &fakeMsg{data: []byte(tt.data)}
			var got *RunRequest

			handleRunRequest(context.Background(), msg, func(_ context.Context, req RunRequest) error {
				got = &req
				return tt.handleErr
			})

			assert.Equal(t, tt.wantCall, got != nil)
			if got != nil {
				assert.Equal(t, "cryptopanic", got.Site)
				assert.Equal(t, constants.RunFromNATS, got.Type)
			}
			assert.Equal(t, tt.wantAck, msg.acked)
			assert.Equal(t, tt.wantNak, msg.naked)
			assert.Equal(t, tt.wantTerm, msg.termed)
		})
	}
}

func TestNewIngestedEvent(t *testing.T) {
	mark := time.Date(2025, 1, 24, 12, 0, 0, 0, time.UTC)
	report := models.RunReport{
		RunID:        "run-1",
		Site:         "cryptopanic",
		Type:         "news",
		State:        common.RunStateDoneDegraded,
		Watermark:    &mark,
		FallbackPath: "reports/crypto_news_20250124_120509.json",
	}

	ev := NewIngestedEvent(report)
	require.NotNil(t, ev.Watermark)
	assert.True(t, ev.Degraded)
	assert.Equal(t, "DONE_DEGRADED", ev.State)
	assert.Equal(t, report.FallbackPath, ev.FallbackKey)
}

func TestGetJetStreamConsumerWithoutConnection(t *testing.T) {
	_, err := GetJetStreamConsumer(context.Background(), &NatsBroker{}, constants.IngestStream, constants.RunTopic)
	require.Error(t, err)
}
