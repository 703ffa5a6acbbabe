package audit

import (
	"context"
	"time"

	id "dossier/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and topics downstream.
type EventCategory string

const (
	// CategoryCompliance covers review decisions and deletions. These feed
	// the enrollment dossier and require long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers access to personal documents.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// UserID is the student the action concerns.
	UserID id.UserID
	// Subject is the registration or document the action was performed on.
	Subject   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
	// ActorID tracks who performed the action when different from UserID,
	// e.g. a partner reviewer or an admin.
	ActorID   string
	ActorRole string
}

type AuditEvent string

const (
	// Document events
	EventDocumentUploaded   AuditEvent = "document_uploaded"
	EventDocumentReplaced   AuditEvent = "document_replaced"
	EventDocumentApproved   AuditEvent = "document_approved"
	EventDocumentRejected   AuditEvent = "document_rejected"
	EventDocumentDeleted    AuditEvent = "document_deleted"
	EventDocumentDownloaded AuditEvent = "document_downloaded"

	// Registration events
	EventRegistrationAdvanced     AuditEvent = "registration_advanced"
	EventRegistrationBulkApproved AuditEvent = "registration_bulk_approved"
	EventRegistrationBulkRejected AuditEvent = "registration_bulk_rejected"

	// Payment events
	EventPaymentRecorded AuditEvent = "payment_recorded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDocumentApproved:         CategoryCompliance,
	EventDocumentRejected:         CategoryCompliance,
	EventDocumentDeleted:          CategoryCompliance,
	EventRegistrationBulkApproved: CategoryCompliance,
	EventRegistrationBulkRejected: CategoryCompliance,
	EventPaymentRecorded:          CategoryCompliance,

	EventDocumentDownloaded: CategorySecurity,

	EventDocumentUploaded:     CategoryOperations,
	EventDocumentReplaced:     CategoryOperations,
	EventRegistrationAdvanced: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Categories lists every category, one outbox topic each.
func Categories() []EventCategory {
	return []EventCategory{CategoryCompliance, CategorySecurity, CategoryOperations}
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
