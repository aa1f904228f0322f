// Package messaging mirrors committed roster changes to Kafka so other
// systems (spreadsheet sync, chat bots) can follow an event without holding
// an SSE connection.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/forgo/raidplan/api/internal/service"
)

// KafkaConfig holds the change feed settings
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	ClientID     string
	FlushTimeout time.Duration
}

// producer is the part of *kgo.Client the feed uses
type producer interface {
	TryProduce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// KafkaChangeFeed publishes every roster change as a JSON record keyed by
// event id, so one event's changes stay ordered within a partition
type KafkaChangeFeed struct {
	client       producer
	topic        string
	flushTimeout time.Duration
	logger       *slog.Logger
}

// NewKafkaChangeFeed connects to the brokers and verifies the connection
func NewKafkaChangeFeed(ctx context.Context, cfg KafkaConfig, logger *slog.Logger) (*KafkaChangeFeed, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		cfg.Topic = "raidplan.roster-changes"
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordRetries(5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Kafka: %w", err)
	}
	return newKafkaChangeFeed(client, cfg, logger), nil
}

func newKafkaChangeFeed(client producer, cfg KafkaConfig, logger *slog.Logger) *KafkaChangeFeed {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 10 * time.Second
	}
	return &KafkaChangeFeed{
		client:       client,
		topic:        cfg.Topic,
		flushTimeout: cfg.FlushTimeout,
		logger:       logger,
	}
}

// Emit queues the change for delivery. Heartbeats are local to SSE and are
// not forwarded. A full producer buffer fails the record immediately with
// kgo.ErrMaxBuffered; that and delivery failures are logged from the
// produce callback.
func (f *KafkaChangeFeed) Emit(ctx context.Context, change *service.Change) error {
	if change.Type == service.ChangeHeartbeat {
		return nil
	}
	record, err := buildRecord(f.topic, change)
	if err != nil {
		return err
	}

	f.client.TryProduce(ctx, record, func(r *kgo.Record, err error) {
		if err == nil {
			return
		}
		msg := "failed to deliver roster change"
		if errors.Is(err, kgo.ErrMaxBuffered) {
			msg = "kafka producer buffer full, dropping roster change"
		}
		f.logger.Error(msg,
			slog.String("event_id", change.EventID),
			slog.String("type", string(change.Type)),
			slog.Int("version", change.Version),
			slog.String("error", err.Error()))
	})
	return nil
}

// Close flushes buffered records and closes the client
func (f *KafkaChangeFeed) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), f.flushTimeout)
	defer cancel()

	err := f.client.Flush(ctx)
	f.client.Close()
	if err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	return nil
}

func buildRecord(topic string, change *service.Change) (*kgo.Record, error) {
	value, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("encode roster change: %w", err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(change.EventID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "change_type", Value: []byte(change.Type)},
			{Key: "version", Value: []byte(fmt.Sprintf("%d", change.Version))},
		},
		Timestamp: change.At,
	}, nil
}
