package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"dossier/pkg/platform/circuit"
)

// Producer is satisfied by *kgo.Client.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSender publishes email jobs to a topic consumed by the mailer. A
// circuit breaker fails fast while the brokers are unreachable.
type KafkaSender struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

type KafkaOption func(*KafkaSender)

func WithBreaker(b *circuit.Breaker) KafkaOption {
	return func(s *KafkaSender) {
		s.breaker = b
	}
}

func WithSendTimeout(d time.Duration) KafkaOption {
	return func(s *KafkaSender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewKafkaSender(producer Producer, topic string, logger *slog.Logger, opts ...KafkaOption) *KafkaSender {
	s := &KafkaSender{
		producer: producer,
		topic:    topic,
		breaker:  circuit.New("notify-kafka"),
		timeout:  3 * time.Second,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *KafkaSender) Send(ctx context.Context, kind Kind, recipient string, payload map[string]string) error {
	msg, err := newMessage(kind, recipient, payload, s.now())
	if err != nil {
		return err
	}
	if !s.breaker.Allow() {
		return ErrCircuitOpen
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(msg.Recipient),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(msg.Kind)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.WarnContext(ctx, "notification circuit opened", "breaker", s.breaker.Name())
		}
		return fmt.Errorf("produce notification: %w", err)
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "notification circuit closed", "breaker", s.breaker.Name())
	}
	return nil
}
