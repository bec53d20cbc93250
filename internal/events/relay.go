package events

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/MikeMC777/store-api/internal/metrics"
)

type Source interface {
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher takes a comma separated broker list.
func NewKafkaPublisher(brokersCSV string) *KafkaPublisher {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// Relay moves committed outbox rows to the publisher, oldest first.
type Relay struct {
	source    Source
	pub       Publisher
	log       *zap.Logger
	interval  time.Duration
	batchSize int
	metrics   *metrics.Metrics
}

func NewRelay(source Source, pub Publisher, log *zap.Logger, interval time.Duration, batchSize int) *Relay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{source: source, pub: pub, log: log, interval: interval, batchSize: batchSize}
}

// WithMetrics counts published events on m.
func (r *Relay) WithMetrics(m *metrics.Metrics) *Relay {
	r.metrics = m
	return r
}

// Run polls until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.log.Error("outbox flush failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Flush publishes one batch and stops at the first failure so ordering per key holds.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	recs, err := r.source.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	defer func() { r.metrics.Published(sent) }()
	for _, rec := range recs {
		if err := r.pub.Publish(ctx, rec.Topic, rec.Key, rec.Payload); err != nil {
			return sent, err
		}
		if err := r.source.MarkSent(ctx, rec.ID); err != nil {
			return sent, err
		}
		sent++
		r.log.Debug("outbox event published",
			zap.String("event_id", rec.EventID),
			zap.String("topic", rec.Topic),
			zap.String("key", rec.Key))
	}
	return sent, nil
}
