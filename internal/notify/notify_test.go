package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"dossier/pkg/platform/circuit"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.records = append(f.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func TestKafkaSender_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes job keyed by recipient", func(t *testing.T) {
		producer := &fakeProducer{}
		sender := NewKafkaSender(producer, "dossier.notifications", slog.Default())

		err := sender.Send(ctx, KindDocumentApproved, " student@example.org ", map[string]string{"document_type": "DIPLOMA"})
		require.NoError(t, err)
		require.Len(t, producer.records, 1)

		rec := producer.records[0]
		assert.Equal(t, "dossier.notifications", rec.Topic)
		assert.Equal(t, []byte("student@example.org"), rec.Key)

		var msg Message
		require.NoError(t, json.Unmarshal(rec.Value, &msg))
		assert.Equal(t, KindDocumentApproved, msg.Kind)
		assert.Equal(t, "DIPLOMA", msg.Payload["document_type"])
		assert.NotEmpty(t, msg.ID)
	})

	t.Run("missing recipient is rejected before producing", func(t *testing.T) {
		producer := &fakeProducer{}
		sender := NewKafkaSender(producer, "t", slog.Default())

		err := sender.Send(ctx, KindDocumentRejected, "  ", nil)
		assert.ErrorIs(t, err, ErrNoRecipient)
		assert.Empty(t, producer.records)
	})

	t.Run("open circuit fails fast", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("brokers unreachable")}
		sender := NewKafkaSender(producer, "t", slog.Default(),
			WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2))))

		require.Error(t, sender.Send(ctx, KindEnrollmentConfirmed, "a@example.org", nil))
		require.Error(t, sender.Send(ctx, KindEnrollmentConfirmed, "a@example.org", nil))
		assert.Len(t, producer.records, 2)

		err := sender.Send(ctx, KindEnrollmentConfirmed, "a@example.org", nil)
		assert.ErrorIs(t, err, ErrCircuitOpen)
		assert.Len(t, producer.records, 2, "no produce attempt while open")
	})
}

func TestLogSender_Send(t *testing.T) {
	sender := NewLogSender(slog.Default())
	assert.NoError(t, sender.Send(context.Background(), KindPartnerDocumentUploaded, "partner@example.org", nil))
	assert.ErrorIs(t, sender.Send(context.Background(), KindPartnerDocumentUploaded, "", nil), ErrNoRecipient)
}
