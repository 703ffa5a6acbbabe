// Package outbox relays audit rows written by the postgres audit store to
// Kafka. Rows are locked, produced and stamped in one SQL transaction, so a
// crash between produce and commit re-sends rather than loses events.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "dossier/pkg/platform/audit"
	"dossier/pkg/platform/audit/store/postgres"
)

// Source is the outbox table.
type Source interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	FetchUnpublished(ctx context.Context, limit int) ([]postgres.Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Producer is satisfied by *kgo.Client.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
)

type Relay struct {
	source      Source
	producer    Producer
	topicPrefix string
	interval    time.Duration
	batchSize   int
	logger      *slog.Logger
	metrics     *Metrics
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

// New builds a relay publishing to "<topicPrefix>.<category>".
func New(source Source, producer Producer, topicPrefix string, opts ...Option) *Relay {
	r := &Relay{
		source:      source,
		producer:    producer,
		topicPrefix: topicPrefix,
		interval:    defaultInterval,
		batchSize:   defaultBatchSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled. Batch failures are logged and retried on
// the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil {
				r.logger.WarnContext(ctx, "audit outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many rows were relayed.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	relayed := 0
	err := r.source.WithinTx(ctx, func(ctx context.Context) error {
		entries, err := r.source.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		records := make([]*kgo.Record, 0, len(entries))
		ids := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			records = append(records, &kgo.Record{
				Topic: r.topicFor(e),
				Key:   []byte(e.AggregateID),
				Value: e.Payload,
				Headers: []kgo.RecordHeader{
					{Key: "event_type", Value: []byte(e.EventType)},
					{Key: "outbox_id", Value: []byte(e.ID.String())},
				},
			})
			ids = append(ids, e.ID)
		}

		if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
			r.metrics.incFailures()
			return fmt.Errorf("produce audit batch: %w", err)
		}
		if err := r.source.MarkPublished(ctx, ids, time.Now()); err != nil {
			return err
		}
		relayed = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.metrics.addPublished(relayed)
	return relayed, nil
}

func (r *Relay) topicFor(e postgres.Entry) string {
	return Topic(r.topicPrefix, e.Category)
}

// Topic names the Kafka topic carrying one audit category.
func Topic(prefix string, category audit.EventCategory) string {
	if category == "" {
		category = audit.CategoryOperations
	}
	return prefix + "." + string(category)
}
