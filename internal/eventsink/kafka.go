package eventsink

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/SprengerV/volume-analyzer/internal/domain"
)

// DefaultTopic is the Kafka topic events are written to.
const DefaultTopic = "volume-analyzer-events"

// messageWriter is the subset of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOptions configures KafkaSink.
type KafkaOptions struct {
	Brokers []string
	Topic   string
}

// KafkaSink writes events to a Kafka topic keyed by monitored address, so
// the events of one address stay ordered within a partition.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

// Compile-time interface check.
var _ Publisher = (*KafkaSink)(nil)

// NewKafkaSink creates a synchronous writer for opts.Brokers.
func NewKafkaSink(opts KafkaOptions) *KafkaSink {
	topic := opts.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(opts.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  false,
	}
	return &KafkaSink{writer: writer, topic: topic}
}

// Name returns "kafka".
func (s *KafkaSink) Name() string { return "kafka" }

// Publish writes ev as one message.
func (s *KafkaSink) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := Encode(ev)
	if err != nil {
		return err
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.MonitorAddress()),
		Value: payload,
		Time:  ev.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(ev.Kind())},
		},
	})
	if err != nil {
		return fmt.Errorf("write to %s: %w", s.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
