package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// errTopicRequired is returned when the Kafka sink has no topic.
var errTopicRequired = errors.New("kafka topic must be provided")

// Producer is the subset of *kgo.Client the sink uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaSink produces reports as JSON records.
type KafkaSink struct {
	// producer sends records.
	producer Producer
	// topic receives every record.
	topic string
}

var _ Sink = (*KafkaSink)(nil)

// NewKafkaSink connects a franz-go client to brokers.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if topic == "" {
		return nil, errTopicRequired
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return NewKafkaSinkWithProducer(client, topic), nil
}

// NewKafkaSinkWithProducer wraps an existing producer.
func NewKafkaSinkWithProducer(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{
		producer: producer,
		topic:    topic,
	}
}

// Publish produces the report synchronously, keyed by nation.
func (s *KafkaSink) Publish(ctx context.Context, report Report) error {
	value, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(report.NationID),
		Value: value,
	}

	if err = s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce report: %w", err)
	}

	return nil
}

// Close flushes and closes the client.
func (s *KafkaSink) Close() error {
	s.producer.Close()

	return nil
}
