package service_test

import (
	"sync"
	"sync/atomic"

	"dossier/internal/enrollment/models"
	"dossier/pkg/platform/audit"
)

func (s *ServiceSuite) TestConcurrentEvaluationAdvancesOnce() {
	events := s.captureAudit()
	reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
	s.seedRequired(reg, models.DocumentApprovedByPartner)

	const workers = 8
	var (
		wg       sync.WaitGroup
		advanced atomic.Int32
		start    = make(chan struct{})
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			outcome, err := s.service.EvaluateProgression(s.ctx, reg.ID)
			if err != nil {
				return
			}
			if outcome.Advanced {
				advanced.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(1), advanced.Load())
	s.Equal(models.StatusAwaitingDiscoveryApproval, s.registration(reg.ID).Status)
	s.Len(eventsWithAction(events(), audit.EventRegistrationAdvanced), 1)
}

func (s *ServiceSuite) TestConcurrentApprovalsOfLastDocuments() {
	s.allowAudit()
	s.allowNotifications()
	reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
	required := models.RequiredDocumentTypes(reg.OfferType)
	for _, t := range required[:len(required)-2] {
		s.seedDocument(reg, t, models.DocumentApprovedByPartner)
	}
	first := s.seedDocument(reg, required[len(required)-2], models.DocumentPending)
	second := s.seedDocument(reg, required[len(required)-1], models.DocumentPending)

	var (
		wg       sync.WaitGroup
		advanced atomic.Int32
		failures atomic.Int32
	)
	for _, doc := range []*models.UserDocument{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.service.ApproveDocument(s.ctx, doc.ID, s.reviewer(), "")
			if err != nil {
				failures.Add(1)
				return
			}
			if result.Progression != nil && result.Progression.Advanced {
				advanced.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Zero(failures.Load())
	s.Equal(int32(1), advanced.Load())
	s.Equal(models.StatusAwaitingDiscoveryApproval, s.registration(reg.ID).Status)
	s.Equal(models.DocumentApprovedByPartner, s.document(first.ID).Status)
	s.Equal(models.DocumentApprovedByPartner, s.document(second.ID).Status)
}
