// Package kafka streams audit records to a Kafka topic for downstream
// warehousing and SIEM consumption. The sink is write-only; reads happen in
// whatever consumes the topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"dcbgate/internal/audit"
)

// Sink produces one JSON message per audit record, keyed by operator code so
// per-operator ordering survives partitioning.
type Sink struct {
	client *kgo.Client
	topic  string
}

func NewSink(brokers []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

// Append implements audit.Appender.
func (s *Sink) Append(ctx context.Context, record audit.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(record.OperatorCode),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

func (s *Sink) Close() {
	s.client.Close()
}
