package models

import (
	"time"

	id "dossier/pkg/domain"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentOverdue PaymentStatus = "OVERDUE"
)

// PaymentDeadline is one installment of a registration's payment schedule.
type PaymentDeadline struct {
	ID             id.DeadlineID     `json:"id"`
	RegistrationID id.RegistrationID `json:"registration_id"`
	Amount         int64             `json:"amount"`
	DueDate        time.Time         `json:"due_date"`
	PaymentStatus  PaymentStatus     `json:"payment_status"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
}

// MarkPaid is idempotent; it reports whether anything changed.
func (p *PaymentDeadline) MarkPaid(now time.Time) bool {
	if p.PaymentStatus == PaymentPaid {
		return false
	}
	p.PaymentStatus = PaymentPaid
	p.PaidAt = &now
	return true
}

// FullyPaid reports whether at least one deadline exists and all are paid.
func FullyPaid(deadlines []*PaymentDeadline) bool {
	if len(deadlines) == 0 {
		return false
	}
	for _, d := range deadlines {
		if d.PaymentStatus != PaymentPaid {
			return false
		}
	}
	return true
}
