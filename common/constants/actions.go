package constants

// ActionType defines what started an ingest run.
type ActionType string

const (
	// RunFromCLI is a run started by the `run` command, usually from cron.
	RunFromCLI ActionType = "run:cli"
	// RunFromAPI is a run queued through the HTTP API.
	RunFromAPI ActionType = "run:api"
	// RunFromNATS is a run requested on RunTopic.
	RunFromNATS ActionType = "run:nats"
)
