package messaging

import (
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common/constants"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
)

// IngestedEvent is published once per finished run
type IngestedEvent struct {
	RunID       string     `json:"run_id"`
	Site        string     `json:"site"`
	Type        string     `json:"type"`
	State       string     `json:"state"`
	Inserted    int        `json:"inserted"`
	Duplicates  int        `json:"duplicates"`
	Degraded    bool       `json:"degraded"`
	FallbackKey string     `json:"fallback_path,omitempty"`
	Error       string     `json:"error,omitempty"`
	Watermark   *time.Time `json:"watermark,omitempty"`
	FinishedAt  time.Time  `json:"finished_at"`
}

// NewIngestedEvent flattens a report into its event form
func NewIngestedEvent(r models.RunReport) IngestedEvent {
	return IngestedEvent{
		RunID:       r.RunID,
		Site:        r.Site,
		Type:        r.Type,
		State:       string(r.State),
		Inserted:    r.Inserted,
		Duplicates:  r.Duplicates,
		Degraded:    r.Degraded(),
		FallbackKey: r.FallbackPath,
		Error:       r.Error,
		Watermark:   r.Watermark,
		FinishedAt:  r.FinishedAt,
	}
}

// RunRequest asks a worker to start a run for Site
type RunRequest struct {
	Type  constants.ActionType `json:"type"`
	Site  string               `json:"site"`
	RunID string               `json:"run_id,omitempty"`
}
