package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/trivium-ai/bot-platform/internal/model"
	"github.com/trivium-ai/bot-platform/pkg/metrics"
)

const (
	// StreamName is the name of the thread events stream.
	StreamName = "BOT_THREADS"

	// SubjectPrefix is the prefix for all thread event subjects.
	SubjectPrefix = "bot"
)

// Publisher publishes thread lifecycle events to JetStream.
type Publisher struct {
	client *Client
}

// NewPublisher creates a new event publisher.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the thread events stream exists with proper
// configuration and refreshes the stream size gauges.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	stream, err := js.Stream(ctx, StreamName)
	if err != nil {
		stream, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:        StreamName,
			Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
			Retention:   jetstream.LimitsPolicy,
			MaxAge:      90 * 24 * time.Hour,
			MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
			Storage:     jetstream.FileStorage,
			Replicas:    1,
			Description: "Thread lifecycle events",
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	if info, err := stream.Info(ctx); err == nil {
		metrics.RecordStreamInfo(StreamName, info.State.Msgs, info.State.Bytes)
	}

	return nil
}

// EventSubject returns the subject for a thread event.
func EventSubject(userID, threadID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s.%s",
		SubjectPrefix, sanitizeToken(userID), sanitizeToken(threadID), eventType)
}

// PublishThreadEvent publishes a thread event to JetStream.
func (p *Publisher) PublishThreadEvent(ctx context.Context, event *model.ThreadEvent) error {
	subject := EventSubject(event.UserID, event.ThreadID, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()
	return nil
}

// sanitizeToken makes an identifier safe to embed as one subject token.
func sanitizeToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, s)
}
