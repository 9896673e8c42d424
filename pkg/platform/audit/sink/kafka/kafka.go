// Package kafka publishes audit events to a Kafka topic for downstream
// compliance consumers (retention, review tooling, reporting).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "visado/pkg/platform/audit"
)

const defaultTopic = "visado.audit"

// Sink delivers audit events to Kafka. Records are keyed by case ID so all
// events for one case land in the same partition in order.
type Sink struct {
	client *kgo.Client
	topic  string
}

// Option configures a Sink.
type Option func(*Sink)

// WithTopic overrides the destination topic.
func WithTopic(topic string) Option {
	return func(s *Sink) {
		if topic != "" {
			s.topic = topic
		}
	}
}

// New connects to the given brokers and returns a ready sink.
func New(brokers []string, opts ...Option) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	s := &Sink{client: client, topic: defaultTopic}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// wireEvent is the serialized form of an audit event on the topic.
type wireEvent struct {
	Category      string    `json:"category"`
	Timestamp     time.Time `json:"timestamp"`
	CaseID        string    `json:"case_id"`
	Action        string    `json:"action"`
	ActorID       string    `json:"actor_id,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	VisaTypeID    string    `json:"visa_type_id,omitempty"`
	RuleVersionID string    `json:"rule_version_id,omitempty"`
	Outcome       string    `json:"outcome,omitempty"`
	Confidence    float64   `json:"confidence,omitempty"`
}

// Append produces the event and waits for broker acknowledgement.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(wireEvent{
		Category:      string(event.Category),
		Timestamp:     event.Timestamp,
		CaseID:        event.CaseID.String(),
		Action:        event.Action,
		ActorID:       event.ActorID,
		RequestID:     event.RequestID,
		VisaTypeID:    event.VisaTypeID,
		RuleVersionID: event.RuleVersionID,
		Outcome:       event.Outcome,
		Confidence:    event.Confidence,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.CaseID.String()),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes outstanding records and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
