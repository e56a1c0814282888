package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/constants"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/crawler"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// RunRequestHandler starts a run for a decoded request. It should return
// once the run is queued, not when it finishes.
type RunRequestHandler func(ctx context.Context, req RunRequest) error

// GetJetStreamConsumer returns a durable pull consumer for subject on streamName
func GetJetStreamConsumer(ctx context.Context, client *NatsBroker, streamName, subject string) (jetstream.Consumer, error) {
	if client == nil || client.js == nil {
		return nil, fmt.Errorf("JetStream not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stream, err := EnsureStream(ctx, client, streamName, []string{subject})
	if err != nil {
		return nil, err
	}

	consumerName := "consumer_" + strings.ReplaceAll(subject, ".", "-")
	consumerConfig := jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, consumerConfig)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("stream", streamName).
		Str("subject", subject).
		Str("consumer", consumerName).
		Msg("Got JetStream pull consumer")

	return consumer, nil
}

// EnsureStream ensures a stream exists with the specified subjects
func EnsureStream(ctx context.Context, client *NatsBroker, name string, subjects []string) (jetstream.Stream, error) {
	stream, err := client.GetStream(ctx, name)
	if err != nil {
		if !errors.Is(err, jetstream.ErrStreamNotFound) && !strings.Contains(err.Error(), "stream not found") {
			log.Error().Err(err).Str("stream_name", name).Msg("Failed to get stream for unknown reasons")
			return nil, err
		}
		streamConfig := jetstream.StreamConfig{
			Name:     name,
			Subjects: subjects,
		}

		return client.CreateStream(ctx, streamConfig)
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream info: %w", err)
	}

	config := info.Config
	subjectSet := make(map[string]struct{}, len(config.Subjects))
	for _, s := range config.Subjects {
		subjectSet[s] = struct{}{}
	}

	hasNewSubjects := false
	for _, s := range subjects {
		if _, ok := subjectSet[s]; !ok {
			hasNewSubjects = true
			config.Subjects = append(config.Subjects, s)
		}
	}

	if !hasNewSubjects {
		log.Debug().Str("stream_name", name).Msg("No new subjects to add to stream")
		return stream, nil
	}

	log.Info().Strs("subjects", config.Subjects).Str("stream_name", name).Msg("Updating stream with new subjects")
	return client.CreateStream(ctx, config)
}

// ConsumeRunRequests delivers requests published on constants.RunTopic to handle
func ConsumeRunRequests(ctx context.Context, client *NatsBroker, handle RunRequestHandler) (jetstream.ConsumeContext, error) {
	consumer, err := GetJetStreamConsumer(ctx, client, constants.IngestStream, constants.RunTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to get run request consumer: %w", err)
	}

	return client.Consume(ctx, consumer, func(msg jetstream.Msg) {
		handleRunRequest(ctx, msg, handle)
	})
}

// handleRunRequest acks queued and already running requests, terminates
// undecodable or unknown-site ones and naks the rest for redelivery
func handleRunRequest(ctx context.Context, msg jetstream.Msg, handle RunRequestHandler) {
	l := log.With().Str("subject", msg.Subject()).Logger()

	var req RunRequest
	if err := json.Unmarshal(msg.Data(), &req); err != nil {
		l.Error().Err(err).Msg("Dropping malformed run request")
		if err := msg.Term(); err != nil {
			l.Warn().Err(err).Msg("Failed to terminate message")
		}
		return
	}
	if req.Type == "" {
		req.Type = constants.RunFromNATS
	}

	err := handle(ctx, req)
	switch {
	case err == nil:
		l.Info().Str("site", req.Site).Str("runID", req.RunID).Msg("Run request accepted")
	case errors.Is(err, common.ErrRunInProgress):
		l.Warn().Str("site", req.Site).Msg("Run already in progress, dropping request")
	case errors.Is(err, crawler.ErrUnknownSite):
		l.Error().Err(err).Str("site", req.Site).Msg("Dropping run request for unknown site")
		if err := msg.Term(); err != nil {
			l.Warn().Err(err).Msg("Failed to terminate message")
		}
		return
	default:
		l.Error().Err(err).Str("site", req.Site).Msg("Failed to start run, requesting redelivery")
		if err := msg.Nak(); err != nil {
			l.Warn().Err(err).Msg("Failed to nak message")
		}
		return
	}

	if err := msg.Ack(); err != nil {
		l.Warn().Err(err).Msg("Failed to ack message")
	}
}
