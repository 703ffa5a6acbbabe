// Package postgres is the PostgreSQL enrollment store. Queries are plain SQL
// through pgx; the same store types run against the pool or inside a
// transaction.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dossier/internal/enrollment/models"
	"dossier/internal/enrollment/service"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/sentinel"
)

const defaultTxTimeout = 5 * time.Second

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Store owns the pool and hands out stores bound to it or to a transaction.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, timeout: defaultTxTimeout}
}

// Stores returns stores that run each statement on its own.
func (s *Store) Stores() service.Stores {
	return storesFor(s.pool)
}

func storesFor(db DBTX) service.Stores {
	return service.Stores{
		Registrations: &RegistrationStore{db: db},
		Documents:     &DocumentStore{db: db},
		Payments:      &PaymentStore{db: db},
		ActionLogs:    &ActionLogStore{db: db},
	}
}

// RunInTx runs fn in one READ COMMITTED transaction. The document uniqueness
// constraint is deferred, so a violation surfaces at commit as
// sentinel.ErrConflict.
func (s *Store) RunInTx(ctx context.Context, fn func(stores service.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(storesFor(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("commit transaction: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullUUID[T ~[16]byte](v *T) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func fromNullUUID[T ~[16]byte](n uuid.NullUUID) *T {
	if !n.Valid {
		return nil
	}
	v := T(n.UUID)
	return &v
}

// -----------------------------------------------------------------------------
// Registrations
// -----------------------------------------------------------------------------

type RegistrationStore struct {
	db DBTX
}

func (r *RegistrationStore) FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	return r.find(ctx, registrationID, "")
}

func (r *RegistrationStore) FindByIDForUpdate(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	return r.find(ctx, registrationID, "FOR UPDATE")
}

func (r *RegistrationStore) find(ctx context.Context, registrationID id.RegistrationID, lock string) (*models.Registration, error) {
	var (
		reg       models.Registration
		rawID     uuid.UUID
		userID    uuid.UUID
		partnerID uuid.NullUUID
		offer     string
		status    string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, partner_id, offer_type, course_name, status,
		       original_amount, final_amount, created_at, updated_at
		FROM registrations
		WHERE id = $1
		`+lock, uuid.UUID(registrationID)).Scan(
		&rawID, &userID, &partnerID, &offer, &reg.CourseName, &status,
		&reg.OriginalAmount, &reg.FinalAmount, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", err)
	}
	reg.ID = id.RegistrationID(rawID)
	reg.UserID = id.UserID(userID)
	reg.PartnerID = fromNullUUID[id.PartnerID](partnerID)
	reg.OfferType = models.OfferType(offer)
	reg.Status = models.RegistrationStatus(status)
	return &reg, nil
}

func (r *RegistrationStore) UpdateStatusIfCurrent(ctx context.Context, registrationID id.RegistrationID, from, to models.RegistrationStatus, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE registrations SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`, uuid.UUID(registrationID), string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE id = $1)`,
		uuid.UUID(registrationID)).Scan(&exists); err != nil {
		return fmt.Errorf("check registration: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

// -----------------------------------------------------------------------------
// Documents
// -----------------------------------------------------------------------------

const documentColumns = `
	id, user_id, registration_id, type, status, file_name, mime_type, size,
	storage_key, checksum, source, uploaded_by_role, reviewed_by_partner,
	partner_checked_at, partner_checked_by, partner_notes,
	rejection_reason, rejection_details, user_notified_at,
	discovery_approved_at, discovery_approved_by, discovery_notes,
	discovery_rejected_at, discovery_rejection_reason,
	uploaded_at, updated_at`

type DocumentStore struct {
	db DBTX
}

func scanDocument(row scanner) (*models.UserDocument, error) {
	var (
		doc                 models.UserDocument
		rawID, userID       uuid.UUID
		registrationID      uuid.NullUUID
		partnerCheckedBy    uuid.NullUUID
		discoveryApprovedBy uuid.NullUUID
		docType, status     string
		source, role        string
	)
	err := row.Scan(
		&rawID, &userID, &registrationID, &docType, &status, &doc.FileName, &doc.MimeType, &doc.Size,
		&doc.StorageKey, &doc.Checksum, &source, &role, &doc.ReviewedByPartner,
		&doc.PartnerCheckedAt, &partnerCheckedBy, &doc.PartnerNotes,
		&doc.RejectionReason, &doc.RejectionDetails, &doc.UserNotifiedAt,
		&doc.DiscoveryApprovedAt, &discoveryApprovedBy, &doc.DiscoveryNotes,
		&doc.DiscoveryRejectedAt, &doc.DiscoveryRejectReason,
		&doc.UploadedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.ID = id.DocumentID(rawID)
	doc.UserID = id.UserID(userID)
	doc.RegistrationID = fromNullUUID[id.RegistrationID](registrationID)
	doc.Type = models.DocumentType(docType)
	doc.Status = models.DocumentStatus(status)
	doc.Source = models.UploadSource(source)
	doc.UploadedByRole = models.Role(role)
	doc.PartnerCheckedBy = fromNullUUID[id.UserID](partnerCheckedBy)
	doc.DiscoveryApprovedBy = fromNullUUID[id.UserID](discoveryApprovedBy)
	return &doc, nil
}

func (r *DocumentStore) list(ctx context.Context, query string, args ...any) ([]*models.UserDocument, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.UserDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentStore) FindByID(ctx context.Context, documentID id.DocumentID) (*models.UserDocument, error) {
	return r.find(ctx, documentID, "")
}

func (r *DocumentStore) FindByIDForUpdate(ctx context.Context, documentID id.DocumentID) (*models.UserDocument, error) {
	return r.find(ctx, documentID, "FOR UPDATE")
}

func (r *DocumentStore) find(ctx context.Context, documentID id.DocumentID, lock string) (*models.UserDocument, error) {
	doc, err := scanDocument(r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM user_documents WHERE id = $1 `+lock, uuid.UUID(documentID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

func (r *DocumentStore) ListByRegistration(ctx context.Context, registrationID id.RegistrationID) ([]*models.UserDocument, error) {
	return r.list(ctx, `
		SELECT `+documentColumns+`
		FROM user_documents
		WHERE registration_id = $1
		ORDER BY uploaded_at DESC, id ASC
	`, uuid.UUID(registrationID))
}

// ListByRegistrationForUpdate locks rows in id order so two bulk reviews
// cannot deadlock on each other.
func (r *DocumentStore) ListByRegistrationForUpdate(ctx context.Context, registrationID id.RegistrationID) ([]*models.UserDocument, error) {
	docs, err := r.list(ctx, `
		SELECT `+documentColumns+`
		FROM user_documents
		WHERE registration_id = $1
		ORDER BY id
		FOR UPDATE
	`, uuid.UUID(registrationID))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].UploadedAt.After(docs[j].UploadedAt) })
	return docs, nil
}

func (r *DocumentStore) ListByOwnerAndType(ctx context.Context, userID id.UserID, registrationID *id.RegistrationID, docType models.DocumentType) ([]*models.UserDocument, error) {
	return r.list(ctx, `
		SELECT `+documentColumns+`
		FROM user_documents
		WHERE user_id = $1 AND type = $3
		  AND registration_id IS NOT DISTINCT FROM $2
		ORDER BY uploaded_at DESC, id ASC
	`, uuid.UUID(userID), nullUUID(registrationID), string(docType))
}

func (r *DocumentStore) Create(ctx context.Context, doc *models.UserDocument) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	`, documentArgs(doc)...)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentStore) Update(ctx context.Context, doc *models.UserDocument) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE user_documents SET
			user_id = $2, registration_id = $3, type = $4, status = $5,
			file_name = $6, mime_type = $7, size = $8, storage_key = $9,
			checksum = $10, source = $11, uploaded_by_role = $12,
			reviewed_by_partner = $13, partner_checked_at = $14,
			partner_checked_by = $15, partner_notes = $16,
			rejection_reason = $17, rejection_details = $18, user_notified_at = $19,
			discovery_approved_at = $20, discovery_approved_by = $21,
			discovery_notes = $22, discovery_rejected_at = $23,
			discovery_rejection_reason = $24, uploaded_at = $25, updated_at = $26
		WHERE id = $1
	`, documentArgs(doc)...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (r *DocumentStore) Delete(ctx context.Context, documentID id.DocumentID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_documents WHERE id = $1`, uuid.UUID(documentID))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// documentArgs follows the order of documentColumns.
func documentArgs(doc *models.UserDocument) []any {
	return []any{
		uuid.UUID(doc.ID), uuid.UUID(doc.UserID), nullUUID(doc.RegistrationID),
		string(doc.Type), string(doc.Status), doc.FileName, doc.MimeType, doc.Size,
		doc.StorageKey, doc.Checksum, string(doc.Source), string(doc.UploadedByRole), doc.ReviewedByPartner,
		doc.PartnerCheckedAt, nullUUID(doc.PartnerCheckedBy), doc.PartnerNotes,
		doc.RejectionReason, doc.RejectionDetails, doc.UserNotifiedAt,
		doc.DiscoveryApprovedAt, nullUUID(doc.DiscoveryApprovedBy), doc.DiscoveryNotes,
		doc.DiscoveryRejectedAt, doc.DiscoveryRejectReason,
		doc.UploadedAt, doc.UpdatedAt,
	}
}

// -----------------------------------------------------------------------------
// Payment deadlines
// -----------------------------------------------------------------------------

type PaymentStore struct {
	db DBTX
}

func scanDeadline(row scanner) (*models.PaymentDeadline, error) {
	var (
		p                     models.PaymentDeadline
		rawID, registrationID uuid.UUID
		status                string
	)
	if err := row.Scan(&rawID, &registrationID, &p.Amount, &p.DueDate, &status, &p.PaidAt); err != nil {
		return nil, err
	}
	p.ID = id.DeadlineID(rawID)
	p.RegistrationID = id.RegistrationID(registrationID)
	p.PaymentStatus = models.PaymentStatus(status)
	return &p, nil
}

func (r *PaymentStore) FindByID(ctx context.Context, deadlineID id.DeadlineID) (*models.PaymentDeadline, error) {
	p, err := scanDeadline(r.db.QueryRow(ctx, `
		SELECT id, registration_id, amount, due_date, payment_status, paid_at
		FROM payment_deadlines
		WHERE id = $1
	`, uuid.UUID(deadlineID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find payment deadline: %w", err)
	}
	return p, nil
}

func (r *PaymentStore) ListByRegistration(ctx context.Context, registrationID id.RegistrationID) ([]*models.PaymentDeadline, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, registration_id, amount, due_date, payment_status, paid_at
		FROM payment_deadlines
		WHERE registration_id = $1
		ORDER BY due_date ASC
	`, uuid.UUID(registrationID))
	if err != nil {
		return nil, fmt.Errorf("query payment deadlines: %w", err)
	}
	defer rows.Close()

	var out []*models.PaymentDeadline
	for rows.Next() {
		p, err := scanDeadline(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment deadline: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment deadlines: %w", err)
	}
	return out, nil
}

func (r *PaymentStore) Update(ctx context.Context, deadline *models.PaymentDeadline) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payment_deadlines
		SET amount = $2, due_date = $3, payment_status = $4, paid_at = $5
		WHERE id = $1
	`, uuid.UUID(deadline.ID), deadline.Amount, deadline.DueDate, string(deadline.PaymentStatus), deadline.PaidAt)
	if err != nil {
		return fmt.Errorf("update payment deadline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// Action log
// -----------------------------------------------------------------------------

// ActionLogStore only inserts and reads; rows are never updated.
type ActionLogStore struct {
	db DBTX
}

func (r *ActionLogStore) Append(ctx context.Context, entry *models.ActionLog) error {
	details := entry.Details
	if details == nil {
		details = map[string]string{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal action details: %w", err)
	}
	var actorID *id.UserID
	if !entry.ActorID.IsNil() {
		actorID = &entry.ActorID
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO document_action_logs (id, document_id, action, actor_id, actor_role, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, uuid.UUID(entry.DocumentID), string(entry.Action), nullUUID(actorID),
		string(entry.ActorRole), raw, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert action log: %w", err)
	}
	return nil
}

// ListByDocument returns entries oldest first.
func (r *ActionLogStore) ListByDocument(ctx context.Context, documentID id.DocumentID) ([]*models.ActionLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, document_id, action, actor_id, actor_role, details, created_at
		FROM document_action_logs
		WHERE document_id = $1
		ORDER BY created_at ASC, id ASC
	`, uuid.UUID(documentID))
	if err != nil {
		return nil, fmt.Errorf("query action logs: %w", err)
	}
	defer rows.Close()

	var out []*models.ActionLog
	for rows.Next() {
		var (
			e            models.ActionLog
			docID        uuid.UUID
			actorID      uuid.NullUUID
			action, role string
			raw          []byte
		)
		if err := rows.Scan(&e.ID, &docID, &action, &actorID, &role, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action log: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Details); err != nil {
				return nil, fmt.Errorf("decode action details: %w", err)
			}
		}
		e.DocumentID = id.DocumentID(docID)
		e.Action = models.DocumentAction(action)
		e.ActorRole = models.Role(role)
		if actorID.Valid {
			e.ActorID = id.UserID(actorID.UUID)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action logs: %w", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Directory
// -----------------------------------------------------------------------------

func (s *Store) FindStudent(ctx context.Context, userID id.UserID) (*models.Student, error) {
	var (
		st    models.Student
		rawID uuid.UUID
	)
	err := s.pool.QueryRow(ctx, `SELECT id, email, full_name FROM students WHERE id = $1`,
		uuid.UUID(userID)).Scan(&rawID, &st.Email, &st.FullName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}
	st.ID = id.UserID(rawID)
	return &st, nil
}

func (s *Store) FindPartner(ctx context.Context, partnerID id.PartnerID) (*models.Partner, error) {
	var (
		p     models.Partner
		rawID uuid.UUID
	)
	err := s.pool.QueryRow(ctx, `SELECT id, name, contact_email FROM partners WHERE id = $1`,
		uuid.UUID(partnerID)).Scan(&rawID, &p.Name, &p.ContactEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find partner: %w", err)
	}
	p.ID = id.PartnerID(rawID)
	return &p, nil
}
