package common

const (
	// AppName is the name of the application
	AppName = "crypto-news-crawler"

	// ReportFilePrefix prefixes every fallback report written by a run
	ReportFilePrefix = "crypto_news"
)

// RecordType tags the category of a row in the shared data_source table
type RecordType string

const (
	// RecordTypeNews marks news articles scraped from listing pages
	RecordTypeNews RecordType = "news"
)

func (t RecordType) String() string {
	return string(t)
}

// RunState is a step of the ingest state machine
type RunState string

const (
	RunStateInit          RunState = "INIT"
	RunStateWatermarkRead RunState = "WATERMARK_READ"
	RunStateExtract       RunState = "EXTRACT"
	RunStateFilter        RunState = "FILTER"
	RunStateBuild         RunState = "BUILD"
	RunStatePersist       RunState = "PERSIST"
	RunStateDone          RunState = "DONE"
	RunStateDoneDegraded  RunState = "DONE_DEGRADED"
	RunStateFailed        RunState = "FAILED"
)

// Terminal reports whether no further transition can happen from s
func (s RunState) Terminal() bool {
	return s == RunStateDone || s == RunStateDoneDegraded || s == RunStateFailed
}
