// Package memory is the in-process enrollment store used for local runs and
// service tests. Transactions work on a private copy of the data that replaces
// the shared copy on commit, so a failed transaction leaves nothing behind.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"dossier/internal/enrollment/models"
	"dossier/internal/enrollment/service"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/sentinel"
)

const defaultTxTimeout = 5 * time.Second

type documentKey struct {
	userID         id.UserID
	registrationID id.RegistrationID
	docType        models.DocumentType
}

type dataset struct {
	registrations map[id.RegistrationID]models.Registration
	documents     map[id.DocumentID]models.UserDocument
	payments      map[id.DeadlineID]models.PaymentDeadline
	actions       []models.ActionLog
	students      map[id.UserID]models.Student
	partners      map[id.PartnerID]models.Partner
}

func newDataset() *dataset {
	return &dataset{
		registrations: make(map[id.RegistrationID]models.Registration),
		documents:     make(map[id.DocumentID]models.UserDocument),
		payments:      make(map[id.DeadlineID]models.PaymentDeadline),
		students:      make(map[id.UserID]models.Student),
		partners:      make(map[id.PartnerID]models.Partner),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.registrations {
		c.registrations[k] = v
	}
	for k, v := range d.documents {
		c.documents[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	for k, v := range d.students {
		c.students[k] = v
	}
	for k, v := range d.partners {
		c.partners[k] = v
	}
	c.actions = append([]models.ActionLog(nil), d.actions...)
	return c
}

// checkUnique enforces one live document per (user, registration, type). It
// runs at commit, like a deferred constraint, so a replace can insert before
// it deletes.
func (d *dataset) checkUnique() error {
	seen := make(map[documentKey]struct{}, len(d.documents))
	for _, doc := range d.documents {
		if doc.RegistrationID == nil {
			continue
		}
		k := documentKey{doc.UserID, *doc.RegistrationID, doc.Type}
		if _, dup := seen[k]; dup {
			return sentinel.ErrConflict
		}
		seen[k] = struct{}{}
	}
	return nil
}

// accessor runs reads and writes against a dataset with the right locking.
type accessor interface {
	read(fn func(d *dataset))
	write(fn func(d *dataset) error) error
}

// Store is the shared in-memory enrollment store.
type Store struct {
	writeMu sync.Mutex   // held by a transaction for its whole duration and by single writes
	mu      sync.RWMutex // guards data
	data    *dataset
	timeout time.Duration
}

func New() *Store {
	return &Store{data: newDataset(), timeout: defaultTxTimeout}
}

func (s *Store) read(fn func(d *dataset)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func (s *Store) write(fn func(d *dataset) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(work); err != nil {
		return err
	}
	if err := work.checkUnique(); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Stores returns the non-transactional views.
func (s *Store) Stores() service.Stores {
	return storesFor(s)
}

func storesFor(acc accessor) service.Stores {
	return service.Stores{
		Registrations: &RegistrationStore{acc: acc},
		Documents:     &DocumentStore{acc: acc},
		Payments:      &PaymentStore{acc: acc},
		ActionLogs:    &ActionLogStore{acc: acc},
	}
}

// RunInTx serializes transactions. fn sees its own writes; other readers see
// the previous state until commit.
func (s *Store) RunInTx(ctx context.Context, fn func(stores service.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	s.mu.RLock()
	work := &txView{data: s.data.clone()}
	s.mu.RUnlock()

	if err := fn(storesFor(work)); err != nil {
		return err
	}
	if err := work.data.checkUnique(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	s.mu.Lock()
	s.data = work.data
	s.mu.Unlock()
	return nil
}

// txView is owned by one transaction; no locking needed.
type txView struct {
	data *dataset
}

func (t *txView) read(fn func(d *dataset)) { fn(t.data) }

func (t *txView) write(fn func(d *dataset) error) error { return fn(t.data) }

// -----------------------------------------------------------------------------
// Registrations
// -----------------------------------------------------------------------------

type RegistrationStore struct {
	acc accessor
}

func (r *RegistrationStore) FindByID(_ context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	var (
		reg models.Registration
		ok  bool
	)
	r.acc.read(func(d *dataset) {
		reg, ok = d.registrations[registrationID]
	})
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &reg, nil
}

// FindByIDForUpdate needs no row lock here: a transaction holds writeMu for
// its whole duration.
func (r *RegistrationStore) FindByIDForUpdate(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	return r.FindByID(ctx, registrationID)
}

func (r *RegistrationStore) UpdateStatusIfCurrent(_ context.Context, registrationID id.RegistrationID, from, to models.RegistrationStatus, at time.Time) error {
	return r.acc.write(func(d *dataset) error {
		reg, ok := d.registrations[registrationID]
		if !ok {
			return sentinel.ErrNotFound
		}
		if reg.Status != from {
			return sentinel.ErrConflict
		}
		reg.Status = to
		reg.UpdatedAt = at
		d.registrations[registrationID] = reg
		return nil
	})
}

// -----------------------------------------------------------------------------
// Documents
// -----------------------------------------------------------------------------

type DocumentStore struct {
	acc accessor
}

func (r *DocumentStore) FindByID(_ context.Context, documentID id.DocumentID) (*models.UserDocument, error) {
	var (
		doc models.UserDocument
		ok  bool
	)
	r.acc.read(func(d *dataset) {
		doc, ok = d.documents[documentID]
	})
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &doc, nil
}

func (r *DocumentStore) FindByIDForUpdate(ctx context.Context, documentID id.DocumentID) (*models.UserDocument, error) {
	return r.FindByID(ctx, documentID)
}

func (r *DocumentStore) ListByRegistrationForUpdate(ctx context.Context, registrationID id.RegistrationID) ([]*models.UserDocument, error) {
	return r.ListByRegistration(ctx, registrationID)
}

func (r *DocumentStore) ListByRegistration(_ context.Context, registrationID id.RegistrationID) ([]*models.UserDocument, error) {
	var docs []*models.UserDocument
	r.acc.read(func(d *dataset) {
		for _, doc := range d.documents {
			if doc.BelongsTo(registrationID) {
				c := doc
				docs = append(docs, &c)
			}
		}
	})
	sortNewestFirst(docs)
	return docs, nil
}

func (r *DocumentStore) ListByOwnerAndType(_ context.Context, userID id.UserID, registrationID *id.RegistrationID, docType models.DocumentType) ([]*models.UserDocument, error) {
	var docs []*models.UserDocument
	r.acc.read(func(d *dataset) {
		for _, doc := range d.documents {
			if doc.UserID != userID || doc.Type != docType || !sameRegistration(doc.RegistrationID, registrationID) {
				continue
			}
			c := doc
			docs = append(docs, &c)
		}
	})
	sortNewestFirst(docs)
	return docs, nil
}

func (r *DocumentStore) Create(_ context.Context, doc *models.UserDocument) error {
	return r.acc.write(func(d *dataset) error {
		if _, exists := d.documents[doc.ID]; exists {
			return sentinel.ErrConflict
		}
		d.documents[doc.ID] = *doc
		return nil
	})
}

func (r *DocumentStore) Update(_ context.Context, doc *models.UserDocument) error {
	return r.acc.write(func(d *dataset) error {
		if _, exists := d.documents[doc.ID]; !exists {
			return sentinel.ErrNotFound
		}
		d.documents[doc.ID] = *doc
		return nil
	})
}

func (r *DocumentStore) Delete(_ context.Context, documentID id.DocumentID) error {
	return r.acc.write(func(d *dataset) error {
		if _, exists := d.documents[documentID]; !exists {
			return sentinel.ErrNotFound
		}
		delete(d.documents, documentID)
		return nil
	})
}

func sameRegistration(a, b *id.RegistrationID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sortNewestFirst(docs []*models.UserDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].ID.String() < docs[j].ID.String()
		}
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})
}

// -----------------------------------------------------------------------------
// Payment deadlines
// -----------------------------------------------------------------------------

type PaymentStore struct {
	acc accessor
}

func (r *PaymentStore) FindByID(_ context.Context, deadlineID id.DeadlineID) (*models.PaymentDeadline, error) {
	var (
		p  models.PaymentDeadline
		ok bool
	)
	r.acc.read(func(d *dataset) {
		p, ok = d.payments[deadlineID]
	})
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (r *PaymentStore) ListByRegistration(_ context.Context, registrationID id.RegistrationID) ([]*models.PaymentDeadline, error) {
	var out []*models.PaymentDeadline
	r.acc.read(func(d *dataset) {
		for _, p := range d.payments {
			if p.RegistrationID == registrationID {
				c := p
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (r *PaymentStore) Update(_ context.Context, deadline *models.PaymentDeadline) error {
	return r.acc.write(func(d *dataset) error {
		if _, exists := d.payments[deadline.ID]; !exists {
			return sentinel.ErrNotFound
		}
		d.payments[deadline.ID] = *deadline
		return nil
	})
}

// -----------------------------------------------------------------------------
// Action log
// -----------------------------------------------------------------------------

type ActionLogStore struct {
	acc accessor
}

func (r *ActionLogStore) Append(_ context.Context, entry *models.ActionLog) error {
	e := *entry
	if entry.Details != nil {
		e.Details = make(map[string]string, len(entry.Details))
		for k, v := range entry.Details {
			e.Details[k] = v
		}
	}
	return r.acc.write(func(d *dataset) error {
		d.actions = append(d.actions, e)
		return nil
	})
}

// ListByDocument returns entries oldest first.
func (r *ActionLogStore) ListByDocument(_ context.Context, documentID id.DocumentID) ([]*models.ActionLog, error) {
	var out []*models.ActionLog
	r.acc.read(func(d *dataset) {
		for _, e := range d.actions {
			if e.DocumentID == documentID {
				c := e
				out = append(out, &c)
			}
		}
	})
	return out, nil
}

// -----------------------------------------------------------------------------
// Directory
// -----------------------------------------------------------------------------

func (s *Store) FindStudent(_ context.Context, userID id.UserID) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data.students[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &st, nil
}

func (s *Store) FindPartner(_ context.Context, partnerID id.PartnerID) (*models.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data.partners[partnerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}
