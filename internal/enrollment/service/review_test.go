package service_test

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"dossier/internal/enrollment/models"
	"dossier/internal/notify"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/audit"
	"dossier/pkg/requestcontext"
)

func (s *ServiceSuite) TestApproveDocument() {
	s.Run("partner approval marks the document reviewed and notifies the student", func() {
		s.allowAudit()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		doc := s.seedDocument(reg, models.DocumentDiploma, models.DocumentPending)
		reviewer := s.reviewer()
		s.mockNotifier.EXPECT().
			Send(gomock.Any(), notify.KindDocumentApproved, s.student.Email, gomock.Any()).
			Return(nil)

		result, err := s.service.ApproveDocument(s.ctx, doc.ID, reviewer, "  looks good ")
		s.Require().NoError(err)
		s.True(result.NotificationSent)
		s.Empty(result.Warnings)

		stored := s.document(doc.ID)
		s.Equal(models.DocumentApprovedByPartner, stored.Status)
		s.True(stored.ReviewedByPartner)
		s.Require().NotNil(stored.PartnerCheckedAt)
		s.Equal(s.now, *stored.PartnerCheckedAt)
		s.Equal(reviewer.UserID, *stored.PartnerCheckedBy)
		s.Equal("looks good", *stored.PartnerNotes)

		approvals := actionsOf(s.actions(doc.ID), models.ActionApprove)
		s.Require().Len(approvals, 1)
		s.Equal("partner", approvals[0].Details["tier"])
	})

	s.Run("direct enrollment approval is single-tier", func() {
		s.allowAudit()
		s.allowNotifications()
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		doc := s.seedDocument(reg, models.DocumentIdentityCard, models.DocumentPending)

		result, err := s.service.ApproveDocument(s.ctx, doc.ID, s.admin(), "")
		s.Require().NoError(err)
		s.Equal(models.DocumentApproved, result.Document.Status)
		s.Nil(s.document(doc.ID).PartnerNotes)
	})

	s.Run("approving the last document advances the registration", func() {
		s.allowAudit()
		s.allowNotifications()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		required := models.RequiredDocumentTypes(reg.OfferType)
		for _, t := range required[:len(required)-1] {
			s.seedDocument(reg, t, models.DocumentApprovedByPartner)
		}
		last := s.seedDocument(reg, required[len(required)-1], models.DocumentPending)

		result, err := s.service.ApproveDocument(s.ctx, last.ID, s.reviewer(), "")
		s.Require().NoError(err)
		s.Require().NotNil(result.Progression)
		s.True(result.Progression.Advanced)
		s.Equal(models.StatusAwaitingDiscoveryApproval, s.registration(reg.ID).Status)
	})

	s.Run("reviewer from another partner is unauthorized", func() {
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		doc := s.seedDocument(reg, models.DocumentDiploma, models.DocumentPending)

		_, err := s.service.ApproveDocument(s.ctx, doc.ID, s.otherReviewer(), "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.False(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(models.DocumentPending, s.document(doc.ID).Status)
	})

	s.Run("partner staff cannot review direct enrollments", func() {
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		doc := s.seedDocument(reg, models.DocumentIdentityCard, models.DocumentPending)

		_, err := s.service.ApproveDocument(s.ctx, doc.ID, s.reviewer(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("notification failure never fails the approval", func() {
		s.allowAudit()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		doc := s.seedDocument(reg, models.DocumentDiploma, models.DocumentPending)
		s.mockNotifier.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("smtp relay down"))

		result, err := s.service.ApproveDocument(s.ctx, doc.ID, s.reviewer(), "")
		s.Require().NoError(err)
		s.False(result.NotificationSent)
		s.Contains(result.Warnings, "notification not sent")
		s.Equal(models.DocumentApprovedByPartner, s.document(doc.ID).Status)
	})

	s.Run("audit failure surfaces a warning", func() {
		s.allowNotifications()
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("audit store down")).AnyTimes()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		doc := s.seedDocument(reg, models.DocumentDiploma, models.DocumentPending)

		result, err := s.service.ApproveDocument(s.ctx, doc.ID, s.reviewer(), "")
		s.Require().NoError(err)
		s.Contains(result.Warnings, "audit event not published")
	})

	s.Run("unknown document is not found", func() {
		_, err := s.service.ApproveDocument(s.ctx, id.NewDocumentID(), s.admin(), "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("document without a registration cannot be reviewed", func() {
		doc := &models.UserDocument{
			ID:     id.NewDocumentID(),
			UserID: s.student.ID,
			Type:   models.DocumentBirthCert,
			Status: models.DocumentPending,
		}
		s.store.PutDocument(doc)

		_, err := s.service.ApproveDocument(s.ctx, doc.ID, s.admin(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestRejectDocument() {
	s.Run("blank reason is a validation error", func() {
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		doc := s.seedDocument(reg, models.DocumentDiploma, models.DocumentPending)

		for _, reason := range []string{"", "   \t"} {
			_, err := s.service.RejectDocument(s.ctx, doc.ID, s.reviewer(), reason, "")
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		}
		s.Equal(models.DocumentPending, s.document(doc.ID).Status)
	})

	s.Run("rejection records the reason and leaves status unchanged", func() {
		events := s.captureAudit()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		required := models.RequiredDocumentTypes(reg.OfferType)
		for _, t := range required[1:] {
			s.seedDocument(reg, t, models.DocumentApprovedByPartner)
		}
		doc := s.seedDocument(reg, required[0], models.DocumentPending)
		s.mockNotifier.EXPECT().
			Send(gomock.Any(), notify.KindDocumentRejected, s.student.Email, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ notify.Kind, _ string, payload map[string]string) error {
				s.Equal("scan is blurry", payload["reason"])
				return nil
			})

		result, err := s.service.RejectDocument(s.ctx, doc.ID, s.reviewer(), "scan is blurry", "page 2 unreadable")
		s.Require().NoError(err)
		s.True(result.NotificationSent)
		s.Require().NotNil(result.Progression)
		s.False(result.Progression.Advanced)
		s.Equal(models.ReasonDocumentsRejected, result.Progression.Reason)

		stored := s.document(doc.ID)
		s.Equal(models.DocumentRejectedByPartner, stored.Status)
		s.True(stored.ReviewedByPartner)
		s.Equal("scan is blurry", *stored.RejectionReason)
		s.Equal("page 2 unreadable", *stored.RejectionDetails)
		s.NotNil(stored.UserNotifiedAt)
		s.Equal(models.StatusDocumentsUploaded, s.registration(reg.ID).Status)

		rejected := eventsWithAction(events(), audit.EventDocumentRejected)
		s.Require().Len(rejected, 1)
		s.Equal(audit.CategoryCompliance, rejected[0].Category)
		s.Equal("scan is blurry", rejected[0].Reason)
	})

	s.Run("re-approval after rejection clears the rejection", func() {
		s.allowAudit()
		s.allowNotifications()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		doc := s.seedDocument(reg, models.DocumentDiploma, models.DocumentPending)

		_, err := s.service.RejectDocument(s.ctx, doc.ID, s.reviewer(), "wrong file", "details")
		s.Require().NoError(err)
		_, err = s.service.ApproveDocument(s.ctx, doc.ID, s.reviewer(), "")
		s.Require().NoError(err)

		stored := s.document(doc.ID)
		s.Equal(models.DocumentApprovedByPartner, stored.Status)
		s.Nil(stored.RejectionReason)
		s.Nil(stored.RejectionDetails)
	})
}

func (s *ServiceSuite) TestBulkApproveRegistration() {
	s.Run("discovery approval enrolls and approves every document", func() {
		events := s.captureAudit()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusAwaitingDiscoveryApproval, true)
		docs := s.seedRequired(reg, models.DocumentApprovedByPartner)
		admin := s.admin()
		s.mockNotifier.EXPECT().
			Send(gomock.Any(), notify.KindEnrollmentConfirmed, s.student.Email, gomock.Any()).
			Return(nil)

		result, err := s.service.BulkApproveRegistration(s.ctx, reg.ID, admin, "all good")
		s.Require().NoError(err)
		s.Equal(models.StatusAwaitingDiscoveryApproval, result.PreviousStatus)
		s.Equal(models.StatusEnrolled, result.Status)
		s.Equal(len(docs), result.DocumentCount)
		s.True(result.NotificationSent)
		s.Equal(models.StatusEnrolled, s.registration(reg.ID).Status)

		for _, doc := range docs {
			stored := s.document(doc.ID)
			s.Equal(models.DocumentApproved, stored.Status)
			s.Require().NotNil(stored.DiscoveryApprovedAt)
			s.Equal(s.now, *stored.DiscoveryApprovedAt)
			s.Equal(admin.UserID, *stored.DiscoveryApprovedBy)
			approvals := actionsOf(s.actions(doc.ID), models.ActionApprove)
			s.Require().Len(approvals, 1)
			s.Equal("discovery", approvals[0].Details["tier"])
		}
		s.Len(eventsWithAction(events(), audit.EventRegistrationBulkApproved), 1)
	})

	s.Run("documents uploaded status enrolls directly", func() {
		s.allowAudit()
		s.allowNotifications()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, false)
		s.seedDocument(reg, models.DocumentDiploma, models.DocumentPending)

		result, err := s.service.BulkApproveRegistration(s.ctx, reg.ID, s.admin(), "")
		s.Require().NoError(err)
		s.Equal(models.StatusEnrolled, result.Status)
	})

	s.Run("registration past enrollment keeps its status", func() {
		s.allowAudit()
		s.allowNotifications()
		reg := s.seedRegistration(models.OfferCertification, models.StatusDocumentsApproved, false)
		doc := s.seedDocument(reg, models.DocumentIdentityCard, models.DocumentApproved)

		result, err := s.service.BulkApproveRegistration(s.ctx, reg.ID, s.admin(), "")
		s.Require().NoError(err)
		s.Equal(models.StatusDocumentsApproved, result.Status)
		s.NotNil(s.document(doc.ID).DiscoveryApprovedAt)
	})

	s.Run("zero documents is a conflict", func() {
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusAwaitingDiscoveryApproval, true)

		_, err := s.service.BulkApproveRegistration(s.ctx, reg.ID, s.admin(), "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(models.StatusAwaitingDiscoveryApproval, s.registration(reg.ID).Status)
	})

	s.Run("ineligible status changes nothing", func() {
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusContractSigned, true)
		doc := s.seedDocument(reg, models.DocumentDiploma, models.DocumentApprovedByPartner)

		_, err := s.service.BulkApproveRegistration(s.ctx, reg.ID, s.admin(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(models.DocumentApprovedByPartner, s.document(doc.ID).Status)
		s.Nil(s.document(doc.ID).DiscoveryApprovedAt)
	})

	s.Run("partner staff cannot perform discovery review", func() {
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusAwaitingDiscoveryApproval, true)

		_, err := s.service.BulkApproveRegistration(s.ctx, reg.ID, s.reviewer(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown registration is not found", func() {
		_, err := s.service.BulkApproveRegistration(s.ctx, id.RegistrationID(uuid.New()), s.admin(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("confirmation failure keeps the enrollment", func() {
		s.allowAudit()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusAwaitingDiscoveryApproval, true)
		s.seedRequired(reg, models.DocumentApprovedByPartner)
		s.mockNotifier.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(notify.ErrCircuitOpen)

		result, err := s.service.BulkApproveRegistration(s.ctx, reg.ID, s.admin(), "")
		s.Require().NoError(err)
		s.False(result.NotificationSent)
		s.Equal(models.StatusEnrolled, s.registration(reg.ID).Status)
	})
}

func (s *ServiceSuite) TestBulkRejectRegistration() {
	s.Run("discovery rejection rolls back and only stamps discovery fields", func() {
		s.allowAudit()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusAwaitingDiscoveryApproval, true)
		docs := s.seedRequired(reg, models.DocumentApprovedByPartner)
		s.mockNotifier.EXPECT().
			Send(gomock.Any(), notify.KindEnrollmentRejected, s.student.Email, gomock.Any()).
			Return(nil)

		result, err := s.service.BulkRejectRegistration(s.ctx, reg.ID, s.admin(), "diploma not recognised")
		s.Require().NoError(err)
		s.Equal(models.StatusDocumentsUploaded, result.Status)
		s.Equal(models.StatusDocumentsUploaded, s.registration(reg.ID).Status)

		for _, doc := range docs {
			stored := s.document(doc.ID)
			s.Equal(models.DocumentApprovedByPartner, stored.Status)
			s.Require().NotNil(stored.DiscoveryRejectedAt)
			s.Equal(s.now, *stored.DiscoveryRejectedAt)
			s.Equal("diploma not recognised", *stored.DiscoveryRejectReason)
			s.Len(actionsOf(s.actions(doc.ID), models.ActionReject), 1)
		}
	})

	s.Run("re-evaluation after a discovery rejection waits for a fresh partner review", func() {
		s.allowAudit()
		s.allowNotifications()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusAwaitingDiscoveryApproval, true)
		docs := s.seedRequired(reg, models.DocumentApprovedByPartner)

		_, err := s.service.BulkRejectRegistration(s.ctx, reg.ID, s.admin(), "transcript not legalised")
		s.Require().NoError(err)

		outcome, err := s.service.EvaluateProgression(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.False(outcome.Advanced)
		s.Equal(models.ReasonDocumentsRejected, outcome.Reason)
		s.Equal(models.StatusDocumentsUploaded, s.registration(reg.ID).Status)

		later := requestcontext.WithTime(s.ctx, s.now.Add(time.Hour))
		var last *models.ReviewResult
		for _, doc := range docs {
			last, err = s.service.ApproveDocument(later, doc.ID, s.reviewer(), "")
			s.Require().NoError(err)
		}
		s.Require().NotNil(last.Progression)
		s.True(last.Progression.Advanced)
		s.Equal(models.StatusAwaitingDiscoveryApproval, s.registration(reg.ID).Status)
	})

	s.Run("documents uploaded status is stamped without a status change", func() {
		s.allowAudit()
		s.allowNotifications()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		s.seedDocument(reg, models.DocumentDiploma, models.DocumentApprovedByPartner)

		result, err := s.service.BulkRejectRegistration(s.ctx, reg.ID, s.admin(), "incomplete")
		s.Require().NoError(err)
		s.Equal(models.StatusDocumentsUploaded, result.Status)
		s.Equal(result.PreviousStatus, result.Status)
	})

	s.Run("blank reason is a validation error", func() {
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusAwaitingDiscoveryApproval, true)

		_, err := s.service.BulkRejectRegistration(s.ctx, reg.ID, s.admin(), " ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("enrolled registration cannot be rolled back", func() {
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusEnrolled, true)
		doc := s.seedDocument(reg, models.DocumentDiploma, models.DocumentApproved)

		_, err := s.service.BulkRejectRegistration(s.ctx, reg.ID, s.admin(), "late")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Nil(s.document(doc.ID).DiscoveryRejectedAt)
	})

	s.Run("zero documents is a conflict", func() {
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusAwaitingDiscoveryApproval, true)

		_, err := s.service.BulkRejectRegistration(s.ctx, reg.ID, s.admin(), "nothing here")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}
