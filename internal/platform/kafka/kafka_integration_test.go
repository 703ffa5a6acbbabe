//go:build integration

package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"dossier/internal/platform/config"
	"dossier/pkg/testutil/containers"
)

func TestClientAgainstBroker(t *testing.T) {
	kc := containers.GetManager().GetKafka(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := NewClient(ctx, config.KafkaConfig{Brokers: []string{kc.SeedBroker}, ClientID: "dossier-test"})
	require.NoError(t, err)
	defer client.Close()

	topic := "dossier.notifications.test"
	require.NoError(t, EnsureTopics(ctx, client, 1, 1, logger, topic))
	require.NoError(t, EnsureTopics(ctx, client, 1, 1, logger, topic), "second call tolerates existing topic")

	require.NoError(t, NewReadinessChecker(client).CheckReady(ctx))

	res := client.ProduceSync(ctx, &kgo.Record{Topic: topic, Key: []byte("k"), Value: []byte(`{"kind":"document_approved"}`)})
	require.NoError(t, res.FirstErr())

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(kc.SeedBroker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.NotEmpty(t, records)
	assert.Equal(t, `{"kind":"document_approved"}`, string(records[0].Value))
}

func TestNewClientRequiresBrokers(t *testing.T) {
	_, err := NewClient(context.Background(), config.KafkaConfig{})
	require.Error(t, err)
}
