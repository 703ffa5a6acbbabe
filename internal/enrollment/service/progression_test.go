package service_test

import (
	"time"

	"github.com/google/uuid"

	"dossier/internal/enrollment/models"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/audit"
)

func (s *ServiceSuite) TestGetRequiredDocuments() {
	s.Run("TFA requires eight documents in catalog order", func() {
		set := s.service.GetRequiredDocuments(models.OfferTFARomania)
		s.Require().Len(set, 8)
		s.Equal(models.DocumentIdentityCard, set[0].Type)
		for _, item := range set {
			s.True(item.Required)
		}
	})

	s.Run("unknown offer falls back to the certification set", func() {
		s.Equal(
			s.service.GetRequiredDocuments(models.OfferCertification),
			s.service.GetRequiredDocuments(models.OfferType("SUMMER_SCHOOL")),
		)
	})
}

func (s *ServiceSuite) TestEvaluateProgression_TFA() {
	s.Run("fully approved TFA registration advances once", func() {
		events := s.captureAudit()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		docs := s.seedRequired(reg, models.DocumentApprovedByPartner)

		first, err := s.service.EvaluateProgression(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.True(first.Advanced)
		s.Equal(models.StatusDocumentsUploaded, first.PreviousStatus)
		s.Equal(models.StatusAwaitingDiscoveryApproval, first.Status)
		s.Equal(models.StatusAwaitingDiscoveryApproval, s.registration(reg.ID).Status)

		second, err := s.service.EvaluateProgression(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.False(second.Advanced)
		s.Equal(models.StatusAwaitingDiscoveryApproval, second.Status)
		s.Equal(models.ReasonStatusNotEligible, second.Reason)

		for _, doc := range docs {
			checks := actionsOf(s.actions(doc.ID), models.ActionCheck)
			s.Require().Len(checks, 1, "one CHECK per resolved document")
			s.Equal(models.RoleSystem, checks[0].ActorRole)
		}
		advanced := eventsWithAction(events(), audit.EventRegistrationAdvanced)
		s.Require().Len(advanced, 1)
		s.Equal(reg.ID.String(), advanced[0].Subject)
		s.Equal(s.student.ID, advanced[0].UserID)
		s.Equal(audit.CategoryOperations, advanced[0].Category)
	})

	s.Run("one missing document leaves status unchanged", func() {
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		for _, t := range models.RequiredDocumentTypes(reg.OfferType)[1:] {
			s.seedDocument(reg, t, models.DocumentApprovedByPartner)
		}

		outcome, err := s.service.EvaluateProgression(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.False(outcome.Advanced)
		s.Equal(models.ReasonDocumentsMissing, outcome.Reason)
		s.Equal([]models.DocumentType{models.DocumentIdentityCard}, outcome.Checklist.Missing)
		s.Equal(models.StatusDocumentsUploaded, s.registration(reg.ID).Status)
	})

	s.Run("unknown registration is not found", func() {
		_, err := s.service.EvaluateProgression(s.ctx, id.RegistrationID(uuid.New()))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestEvaluateProgression_CertificationWaitsForPayment() {
	events := s.captureAudit()
	reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, true)
	s.seedRequired(reg, models.DocumentApprovedByPartner)
	deadline := &models.PaymentDeadline{
		ID:             id.DeadlineID(uuid.New()),
		RegistrationID: reg.ID,
		Amount:         45000,
		DueDate:        s.now.Add(72 * time.Hour),
		PaymentStatus:  models.PaymentPending,
	}
	s.store.PutPaymentDeadline(deadline)

	outcome, err := s.service.EvaluateProgression(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.False(outcome.Advanced)
	s.Equal(models.ReasonPaymentIncomplete, outcome.Reason)
	s.Equal(models.StatusEnrolled, s.registration(reg.ID).Status)

	result, err := s.service.RecordPayment(s.ctx, deadline.ID, s.admin())
	s.Require().NoError(err)
	s.Equal(models.PaymentPaid, result.Deadline.PaymentStatus)
	s.Require().NotNil(result.Deadline.PaidAt)
	s.True(result.Progression.Advanced)
	s.Equal(models.StatusDocumentsApproved, result.Progression.Status)
	s.Equal(models.StatusDocumentsApproved, s.registration(reg.ID).Status)

	again, err := s.service.RecordPayment(s.ctx, deadline.ID, s.admin())
	s.Require().NoError(err)
	s.False(again.Progression.Advanced)
	s.Len(eventsWithAction(events(), audit.EventPaymentRecorded), 1, "repeat payment is a no-op")
}

func (s *ServiceSuite) TestRecordPayment_Errors() {
	s.Run("students cannot record payments", func() {
		_, err := s.service.RecordPayment(s.ctx, id.DeadlineID(uuid.New()), s.owner())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown deadline is not found", func() {
		_, err := s.service.RecordPayment(s.ctx, id.DeadlineID(uuid.New()), s.admin())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestGetChecklist() {
	s.Run("owner sees resolved documents and missing types", func() {
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		doc := s.seedDocument(reg, models.DocumentIdentityCard, models.DocumentApproved)

		checklist, err := s.service.GetChecklist(s.ctx, reg.ID, s.owner())
		s.Require().NoError(err)
		s.Equal(models.StatusEnrolled, checklist.Status)
		s.Require().Len(checklist.Items, 2)
		s.Equal(doc.ID, checklist.Items[0].Document.ID)
		s.Nil(checklist.Items[1].Document)
		s.Equal([]models.DocumentType{models.DocumentTesseraSanitaria}, checklist.Missing)
		s.False(checklist.AllPresent)
	})

	s.Run("another student may not see it", func() {
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		stranger := models.Actor{UserID: id.UserID(uuid.New()), Role: models.RoleStudent}

		_, err := s.service.GetChecklist(s.ctx, reg.ID, stranger)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
