// Package notify delivers fire-and-forget email jobs. The enrollment service
// never fails an operation because a notification could not be sent; it only
// reports the outcome.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind selects the email template downstream.
type Kind string

const (
	KindDocumentApproved        Kind = "document_approved"
	KindDocumentRejected        Kind = "document_rejected"
	KindEnrollmentConfirmed     Kind = "enrollment_confirmed"
	KindEnrollmentRejected      Kind = "enrollment_rejected"
	KindPartnerDocumentUploaded Kind = "partner_document_uploaded"
)

var (
	ErrNoRecipient = errors.New("notification recipient is required")
	ErrCircuitOpen = errors.New("notification transport unavailable")
)

// Message is the job published for the mailer.
type Message struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	Recipient string            `json:"recipient"`
	Payload   map[string]string `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func newMessage(kind Kind, recipient string, payload map[string]string, now time.Time) (Message, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return Message{}, ErrNoRecipient
	}
	return Message{
		ID:        uuid.NewString(),
		Kind:      kind,
		Recipient: recipient,
		Payload:   payload,
		CreatedAt: now,
	}, nil
}

// LogSender writes notifications to the log instead of a transport. It is the
// sink for local development.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, kind Kind, recipient string, payload map[string]string) error {
	msg, err := newMessage(kind, recipient, payload, time.Now())
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "notification",
		"notification_id", msg.ID,
		"kind", string(msg.Kind),
		"recipient", msg.Recipient,
	)
	return nil
}
