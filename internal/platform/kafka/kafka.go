// Package kafka builds the franz-go client shared by the notification sink and
// the audit outbox relay.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"dossier/internal/platform/config"
)

// NewClient connects to the configured brokers and pings them once.
func NewClient(ctx context.Context, cfg config.KafkaConfig) (*kgo.Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("kafka: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka: ping brokers: %w", err)
	}
	return client, nil
}

// EnsureTopics creates any missing topics. Existing topics are left untouched.
func EnsureTopics(ctx context.Context, client *kgo.Client, partitions int32, replication int16, logger *slog.Logger, topics ...string) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, partitions, replication, nil, topics...)
	if err != nil {
		return fmt.Errorf("kafka: create topics: %w", err)
	}
	for _, topic := range resp.Sorted() {
		switch {
		case topic.Err == nil:
			logger.InfoContext(ctx, "kafka topic created", "topic", topic.Topic, "partitions", partitions)
		case errors.Is(topic.Err, kerr.TopicAlreadyExists):
		default:
			return fmt.Errorf("kafka: create topic %s: %w", topic.Topic, topic.Err)
		}
	}
	return nil
}

// ReadinessChecker pings the brokers.
type ReadinessChecker struct {
	client *kgo.Client
}

func NewReadinessChecker(client *kgo.Client) *ReadinessChecker {
	return &ReadinessChecker{client: client}
}

func (c *ReadinessChecker) Name() string { return "kafka" }

func (c *ReadinessChecker) CheckReady(ctx context.Context) error {
	return c.client.Ping(ctx)
}
