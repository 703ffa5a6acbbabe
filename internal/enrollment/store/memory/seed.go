package memory

import (
	"dossier/internal/enrollment/models"
)

// Seed helpers load fixtures that this subsystem never creates itself:
// registrations, payment schedules and the people to notify.

func (s *Store) PutRegistration(reg *models.Registration) {
	s.mutate(func(d *dataset) { d.registrations[reg.ID] = *reg })
}

func (s *Store) PutPaymentDeadline(p *models.PaymentDeadline) {
	s.mutate(func(d *dataset) { d.payments[p.ID] = *p })
}

func (s *Store) PutStudent(st *models.Student) {
	s.mutate(func(d *dataset) { d.students[st.ID] = *st })
}

func (s *Store) PutPartner(p *models.Partner) {
	s.mutate(func(d *dataset) { d.partners[p.ID] = *p })
}

// PutDocument stores doc as-is. Later commits fail if it duplicates a live
// (user, registration, type).
func (s *Store) PutDocument(doc *models.UserDocument) {
	s.mutate(func(d *dataset) { d.documents[doc.ID] = *doc })
}

func (s *Store) mutate(fn func(d *dataset)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}
