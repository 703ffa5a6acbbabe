package service

import (
	"context"
	"io"
	"time"

	"dossier/internal/blob"
	"dossier/internal/enrollment/models"
	"dossier/internal/notify"
	id "dossier/pkg/domain"
	"dossier/pkg/platform/audit"
)

// Store ports return sentinel.ErrNotFound when a row is absent and
// sentinel.ErrConflict when a compare-and-set loses.
//
// The ForUpdate reads lock the rows they return until the surrounding
// transaction ends. Any read that feeds an Update must use them. Locks are
// taken registration first, then documents.

type RegistrationStore interface {
	FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	FindByIDForUpdate(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	// UpdateStatusIfCurrent moves the status from -> to only if it is still from.
	UpdateStatusIfCurrent(ctx context.Context, registrationID id.RegistrationID, from, to models.RegistrationStatus, at time.Time) error
}

type DocumentStore interface {
	FindByID(ctx context.Context, documentID id.DocumentID) (*models.UserDocument, error)
	FindByIDForUpdate(ctx context.Context, documentID id.DocumentID) (*models.UserDocument, error)
	// ListByRegistration returns documents newest first.
	ListByRegistration(ctx context.Context, registrationID id.RegistrationID) ([]*models.UserDocument, error)
	ListByRegistrationForUpdate(ctx context.Context, registrationID id.RegistrationID) ([]*models.UserDocument, error)
	// ListByOwnerAndType returns every row for the tuple; normally zero or one.
	ListByOwnerAndType(ctx context.Context, userID id.UserID, registrationID *id.RegistrationID, docType models.DocumentType) ([]*models.UserDocument, error)
	Create(ctx context.Context, doc *models.UserDocument) error
	Update(ctx context.Context, doc *models.UserDocument) error
	Delete(ctx context.Context, documentID id.DocumentID) error
}

type PaymentStore interface {
	FindByID(ctx context.Context, deadlineID id.DeadlineID) (*models.PaymentDeadline, error)
	ListByRegistration(ctx context.Context, registrationID id.RegistrationID) ([]*models.PaymentDeadline, error)
	Update(ctx context.Context, deadline *models.PaymentDeadline) error
}

type ActionLogStore interface {
	Append(ctx context.Context, entry *models.ActionLog) error
	ListByDocument(ctx context.Context, documentID id.DocumentID) ([]*models.ActionLog, error)
}

// Directory resolves notification recipients.
type Directory interface {
	FindStudent(ctx context.Context, userID id.UserID) (*models.Student, error)
	FindPartner(ctx context.Context, partnerID id.PartnerID) (*models.Partner, error)
}

// Stores groups the stores that take part in a transaction.
type Stores struct {
	Registrations RegistrationStore
	Documents     DocumentStore
	Payments      PaymentStore
	ActionLogs    ActionLogStore
}

// StoreTx provides a transactional boundary for enrollment store mutations.
// Implementations may wrap a database transaction or, in-memory, a coarse lock.
// Inside fn only the stores passed in may be used.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(stores Stores) error) error
}

type BlobStore interface {
	Put(ctx context.Context, r io.Reader, meta blob.Meta) (blob.Object, error)
	DownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Notifier interface {
	Send(ctx context.Context, kind notify.Kind, recipient string, payload map[string]string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
