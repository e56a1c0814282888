package constants

const (
	// IngestedTopic receives one event per finished ingest run.
	IngestedTopic = "crypto_news.ingested"
	// RunTopic accepts run requests from other services.
	RunTopic = "crypto_news.run"
	// IngestStream is the JetStream stream that stores ingest events.
	IngestStream = "CRYPTO_NEWS"
)
