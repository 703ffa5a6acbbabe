package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"dossier/internal/blob"
	"dossier/internal/enrollment/models"
	"dossier/internal/enrollment/service"
	"dossier/internal/notify"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/audit"
	"dossier/pkg/requestcontext"
)

func (s *ServiceSuite) uploadRequest(reg *models.Registration, docType models.DocumentType, fileName string) *models.UploadRequest {
	regID := reg.ID
	return &models.UploadRequest{
		UserID:         reg.UserID,
		RegistrationID: &regID,
		Type:           docType,
		FileName:       fileName,
		MimeType:       "application/pdf",
		Size:           5,
		Content:        strings.NewReader("%PDF-"),
		Source:         models.SourceStudentPortal,
	}
}

func (s *ServiceSuite) expectPut(key, checksum string) {
	s.mockBlobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(blob.Object{Key: key, Checksum: checksum, Size: 5}, nil)
}

func (s *ServiceSuite) TestUploadDocument() {
	s.Run("first upload creates a pending document and refreshes the checklist", func() {
		s.allowAudit()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, false)
		s.expectPut("documents/2026/05/a.pdf", "sum-a")

		result, err := s.service.UploadDocument(s.ctx, s.owner(), s.uploadRequest(reg, models.DocumentDiploma, " diploma.pdf "))
		s.Require().NoError(err)
		s.Nil(result.Replaced)
		s.Equal("diploma.pdf", result.Document.FileName)
		s.Equal("sum-a", result.Document.Checksum)
		s.Equal(models.DocumentPending, result.Document.Status)
		s.Equal(models.RoleStudent, result.Document.UploadedByRole)
		s.False(result.NotificationSent, "direct enrollments have no partner to notify")

		s.Require().NotNil(result.Progression)
		s.False(result.Progression.Advanced)
		s.Equal(models.ReasonDocumentsMissing, result.Progression.Reason)
		s.Len(result.Progression.Checklist.Missing, 7)

		s.Len(actionsOf(s.actions(result.Document.ID), models.ActionUpload), 1)
	})

	s.Run("second DIPLOMA upload replaces the first", func() {
		events := s.captureAudit()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, false)

		s.expectPut("documents/2026/05/first.pdf", "sum-first")
		first, err := s.service.UploadDocument(s.ctx, s.owner(), s.uploadRequest(reg, models.DocumentDiploma, "old.pdf"))
		s.Require().NoError(err)

		s.expectPut("documents/2026/05/second.pdf", "sum-second")
		s.mockBlobs.EXPECT().Delete(gomock.Any(), "documents/2026/05/first.pdf").Return(nil)
		later := requestcontext.WithTime(s.ctx, s.now.Add(time.Minute))
		second, err := s.service.UploadDocument(later, s.owner(), s.uploadRequest(reg, models.DocumentDiploma, "new.pdf"))
		s.Require().NoError(err)

		s.Require().NotNil(second.Replaced)
		s.Equal(first.Document.ID, *second.Replaced)

		live, err := s.store.Stores().Documents.ListByOwnerAndType(s.ctx, reg.UserID, &reg.ID, models.DocumentDiploma)
		s.Require().NoError(err)
		s.Require().Len(live, 1)
		s.Equal("sum-second", live[0].Checksum)
		s.Equal("new.pdf", live[0].FileName)

		replaces := actionsOf(s.actions(second.Document.ID), models.ActionReplace)
		s.Require().Len(replaces, 1)
		s.Equal(first.Document.ID.String(), replaces[0].Details["replaced_document_id"])
		s.Len(eventsWithAction(events(), audit.EventDocumentReplaced), 1)
	})

	s.Run("old blob delete failure does not fail the replace", func() {
		s.allowAudit()
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		old := s.seedDocument(reg, models.DocumentIdentityCard, models.DocumentRejected)

		s.expectPut("documents/2026/05/new.pdf", "sum-new")
		s.mockBlobs.EXPECT().Delete(gomock.Any(), old.StorageKey).Return(errors.New("disk unavailable"))

		result, err := s.service.UploadDocument(s.ctx, s.owner(), s.uploadRequest(reg, models.DocumentIdentityCard, "id.pdf"))
		s.Require().NoError(err)
		s.Equal(old.ID, *result.Replaced)
		_, err = s.store.Stores().Documents.FindByID(s.ctx, old.ID)
		s.Error(err)
	})

	s.Run("partner-managed upload notifies the partner", func() {
		s.allowAudit()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		s.expectPut("documents/2026/05/p.pdf", "sum-p")
		s.mockNotifier.EXPECT().
			Send(gomock.Any(), notify.KindPartnerDocumentUploaded, s.partner.ContactEmail, gomock.Any()).
			Return(nil)

		result, err := s.service.UploadDocument(s.ctx, s.owner(), s.uploadRequest(reg, models.DocumentTranscript, "transcript.pdf"))
		s.Require().NoError(err)
		s.True(result.NotificationSent)

		notified := actionsOf(s.actions(result.Document.ID), models.ActionNotifyPartner)
		s.Require().Len(notified, 1)
		s.Equal("true", notified[0].Details["delivered"])
	})

	s.Run("partner notification failure is reported, not raised", func() {
		s.allowAudit()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		s.expectPut("documents/2026/05/p.pdf", "sum-p")
		s.mockNotifier.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(notify.ErrCircuitOpen)

		result, err := s.service.UploadDocument(s.ctx, s.owner(), s.uploadRequest(reg, models.DocumentTranscript, "transcript.pdf"))
		s.Require().NoError(err)
		s.False(result.NotificationSent)
		s.Contains(result.Warnings, "partner notification not sent")
	})

	s.Run("unsupported mime type is a validation error", func() {
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		req := s.uploadRequest(reg, models.DocumentIdentityCard, "id.exe")
		req.MimeType = "application/x-msdownload"

		_, err := s.service.UploadDocument(s.ctx, s.owner(), req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing file is a validation error", func() {
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		req := s.uploadRequest(reg, models.DocumentIdentityCard, "id.pdf")
		req.Content = nil

		_, err := s.service.UploadDocument(s.ctx, s.owner(), req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("blob store failure fails the upload", func() {
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		s.mockBlobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(blob.Object{}, errors.New("disk full"))

		_, err := s.service.UploadDocument(s.ctx, s.owner(), s.uploadRequest(reg, models.DocumentIdentityCard, "id.pdf"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDependencyFailure))
	})

	s.Run("stored object over the size limit is removed and rejected", func() {
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		s.mockBlobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(blob.Object{Key: "documents/2026/05/big.pdf", Size: models.MaxUploadSize + 1}, nil)
		s.mockBlobs.EXPECT().Delete(gomock.Any(), "documents/2026/05/big.pdf").Return(nil)

		_, err := s.service.UploadDocument(s.ctx, s.owner(), s.uploadRequest(reg, models.DocumentIdentityCard, "id.pdf"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("another student cannot upload for the owner", func() {
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		stranger := models.Actor{UserID: id.UserID(uuid.New()), Role: models.RoleStudent}

		_, err := s.service.UploadDocument(s.ctx, stranger, s.uploadRequest(reg, models.DocumentIdentityCard, "id.pdf"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("registration of another user is rejected", func() {
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		req := s.uploadRequest(reg, models.DocumentIdentityCard, "id.pdf")
		req.UserID = id.UserID(uuid.New())

		_, err := s.service.UploadDocument(s.ctx, s.admin(), req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown registration is not found", func() {
		missing := id.RegistrationID(uuid.New())
		req := s.uploadRequest(&models.Registration{ID: missing, UserID: s.student.ID}, models.DocumentIdentityCard, "id.pdf")

		_, err := s.service.UploadDocument(s.ctx, s.owner(), req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestDeleteDocument() {
	s.Run("owner deletes a pending document and history survives", func() {
		s.allowAudit()
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		doc := s.seedDocument(reg, models.DocumentIdentityCard, models.DocumentPending)
		s.mockBlobs.EXPECT().Delete(gomock.Any(), doc.StorageKey).Return(nil)

		s.Require().NoError(s.service.DeleteDocument(s.ctx, doc.ID, s.owner()))

		_, err := s.store.Stores().Documents.FindByID(s.ctx, doc.ID)
		s.Error(err)
		history, err := s.service.ListDocumentActions(s.ctx, doc.ID, s.admin())
		s.Require().NoError(err)
		s.Require().Len(history, 1)
		s.Equal(models.ActionDelete, history[0].Action)

		_, err = s.service.ListDocumentActions(s.ctx, doc.ID, s.owner())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("approved documents cannot be deleted", func() {
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		for _, status := range []models.DocumentStatus{models.DocumentApproved, models.DocumentApprovedByPartner} {
			doc := s.seedDocument(reg, models.DocumentIdentityCard, status)

			err := s.service.DeleteDocument(s.ctx, doc.ID, s.admin())
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeConflict))
			s.Equal(status, s.document(doc.ID).Status)

			s.Require().NoError(s.store.Stores().Documents.Delete(s.ctx, doc.ID))
		}
	})

	s.Run("blob delete failure is tolerated", func() {
		s.allowAudit()
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		doc := s.seedDocument(reg, models.DocumentIdentityCard, models.DocumentRejected)
		s.mockBlobs.EXPECT().Delete(gomock.Any(), doc.StorageKey).Return(errors.New("gone"))

		s.Require().NoError(s.service.DeleteDocument(s.ctx, doc.ID, s.owner()))
		_, err := s.store.Stores().Documents.FindByID(s.ctx, doc.ID)
		s.Error(err)
	})

	s.Run("approval committed just before the delete wins", func() {
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, true)
		doc := s.seedDocument(reg, models.DocumentIdentityCard, models.DocumentPending)
		tx := &interleavedTx{StoreTx: s.store, before: func() {
			approved := s.document(doc.ID)
			approved.ApplyPartnerApproval(id.UserID(uuid.New()), "", false, s.now)
			s.Require().NoError(s.store.Stores().Documents.Update(s.ctx, approved))
		}}
		svc := service.New(s.store.Stores(), tx, s.store, s.mockBlobs, s.mockNotifier,
			service.WithAuditPublisher(s.mockAudit),
			service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		)

		err := svc.DeleteDocument(s.ctx, doc.ID, s.owner())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(models.DocumentApprovedByPartner, s.document(doc.ID).Status)
		s.Empty(s.actions(doc.ID))
	})

	s.Run("another user cannot delete", func() {
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, true)
		doc := s.seedDocument(reg, models.DocumentIdentityCard, models.DocumentPending)

		err := s.service.DeleteDocument(s.ctx, doc.ID, s.reviewer())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown document is not found", func() {
		err := s.service.DeleteDocument(s.ctx, id.NewDocumentID(), s.admin())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestGetDownloadURL() {
	const chromeUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

	s.Run("owner receives a signed link and the access is logged", func() {
		events := s.captureAudit()
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		doc := s.seedDocument(reg, models.DocumentIdentityCard, models.DocumentPending)
		s.mockBlobs.EXPECT().DownloadURL(gomock.Any(), doc.StorageKey, 15*time.Minute).
			Return("http://localhost:8080/files/"+doc.StorageKey+"?token=t", nil)

		ctx := requestcontext.WithClientMetadata(s.ctx, "10.1.2.3", chromeUA)
		link, err := s.service.GetDownloadURL(ctx, doc.ID, s.owner())
		s.Require().NoError(err)
		s.Equal(doc.ID, link.DocumentID)
		s.Contains(link.URL, "token=")

		downloads := actionsOf(s.actions(doc.ID), models.ActionDownload)
		s.Require().Len(downloads, 1)
		s.Equal("10.1.2.3", downloads[0].Details["client_ip"])
		s.Contains(downloads[0].Details["browser"], "Chrome")

		downloaded := eventsWithAction(events(), audit.EventDocumentDownloaded)
		s.Require().Len(downloaded, 1)
		s.Equal(audit.CategorySecurity, downloaded[0].Category)
	})

	s.Run("reviewer of the registration may download", func() {
		s.allowAudit()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		doc := s.seedDocument(reg, models.DocumentDiploma, models.DocumentPending)
		s.mockBlobs.EXPECT().DownloadURL(gomock.Any(), doc.StorageKey, gomock.Any()).Return("http://files/x", nil)

		_, err := s.service.GetDownloadURL(s.ctx, doc.ID, s.reviewer())
		s.Require().NoError(err)
	})

	s.Run("unrelated partner is unauthorized", func() {
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		doc := s.seedDocument(reg, models.DocumentDiploma, models.DocumentPending)

		_, err := s.service.GetDownloadURL(s.ctx, doc.ID, s.otherReviewer())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("blob store failure is a dependency failure", func() {
		reg := s.seedRegistration(models.OfferCertification, models.StatusEnrolled, false)
		doc := s.seedDocument(reg, models.DocumentIdentityCard, models.DocumentPending)
		s.mockBlobs.EXPECT().DownloadURL(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("signer down"))

		_, err := s.service.GetDownloadURL(s.ctx, doc.ID, s.owner())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDependencyFailure))
	})
}

func (s *ServiceSuite) TestListDocumentActions() {
	s.Run("reviewer of the registration sees the history", func() {
		s.allowAudit()
		s.allowNotifications()
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		doc := s.seedDocument(reg, models.DocumentDiploma, models.DocumentPending)
		_, err := s.service.ApproveDocument(s.ctx, doc.ID, s.reviewer(), "ok")
		s.Require().NoError(err)

		history, err := s.service.ListDocumentActions(s.ctx, doc.ID, s.reviewer())
		s.Require().NoError(err)
		s.Require().NotEmpty(history)
		s.Equal(models.ActionApprove, history[0].Action)
	})

	s.Run("unrelated partner is unauthorized", func() {
		reg := s.seedRegistration(models.OfferTFARomania, models.StatusDocumentsUploaded, true)
		doc := s.seedDocument(reg, models.DocumentDiploma, models.DocumentPending)

		_, err := s.service.ListDocumentActions(s.ctx, doc.ID, s.otherReviewer())
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// interleavedTx runs before once, ahead of the first transaction, standing in
// for a writer that commits between a caller's request and its transaction.
type interleavedTx struct {
	service.StoreTx
	once   sync.Once
	before func()
}

func (t *interleavedTx) RunInTx(ctx context.Context, fn func(stores service.Stores) error) error {
	t.once.Do(t.before)
	return t.StoreTx.RunInTx(ctx, fn)
}
