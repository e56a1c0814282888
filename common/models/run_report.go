package models

import (
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
)

// RunReport summarizes one ingest run
type RunReport struct {
	RunID     string          `json:"run_id"`
	Site      string          `json:"site"`
	Type      string          `json:"type"`
	State     common.RunState `json:"state"`
	Watermark *time.Time      `json:"watermark,omitempty"`

	Extracted         int `json:"extracted"`
	RowsSkipped       int `json:"rows_skipped"`
	FilteredOut       int `json:"filtered_out"`
	Invalid           int `json:"invalid"`
	InBatchDuplicates int `json:"in_batch_duplicates"`
	New               int `json:"new"`
	Inserted          int `json:"inserted"`
	Duplicates        int `json:"duplicates"`

	FallbackPath    string `json:"fallback_path,omitempty"`
	FallbackWritten int    `json:"fallback_written,omitempty"`

	Warnings int64  `json:"warnings"`
	Errors   int64  `json:"errors"`
	Error    string `json:"error,omitempty"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
}

// Degraded is true when the run finished without reaching the relational store
func (r RunReport) Degraded() bool {
	return r.State == common.RunStateDoneDegraded
}

// RunStatusResponse is the API view of a queued, running or finished run
type RunStatusResponse struct {
	RunID    string          `json:"run_id"`
	Site     string          `json:"site"`
	Trigger  string          `json:"trigger,omitempty"`
	State    common.RunState `json:"state"`
	Running  bool            `json:"running"`
	QueuedAt time.Time       `json:"queued_at"`
	Report   *RunReport      `json:"report,omitempty"`
}

// WatermarkResponse exposes the current incremental cursor of a record type
type WatermarkResponse struct {
	Type      string     `json:"type"`
	Watermark *time.Time `json:"watermark"`
	Count     int64      `json:"count"`
}
