package messaging

import (
	"context"
	"fmt"

	"github.com/LexiconIndonesia/crypto-news-crawler/common/constants"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
)

// IngestPublisher announces finished runs on a JetStream subject
type IngestPublisher struct {
	broker  *NatsBroker
	subject string
}

// NewIngestPublisher makes sure the ingest stream covers subject and the run topic
func NewIngestPublisher(ctx context.Context, broker *NatsBroker, subject string) (*IngestPublisher, error) {
	if subject == "" {
		subject = constants.IngestedTopic
	}
	if _, err := EnsureStream(ctx, broker, constants.IngestStream, []string{subject, constants.RunTopic}); err != nil {
		return nil, fmt.Errorf("failed to ensure stream %s: %w", constants.IngestStream, err)
	}
	return &IngestPublisher{broker: broker, subject: subject}, nil
}

func (p *IngestPublisher) PublishRunReport(ctx context.Context, report models.RunReport) error {
	return p.broker.PublishJSON(ctx, p.subject, NewIngestedEvent(report))
}
