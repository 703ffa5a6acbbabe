package service

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"dossier/internal/blob"
	"dossier/internal/enrollment/models"
	"dossier/internal/notify"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/audit"
	"dossier/pkg/platform/sentinel"
	"dossier/pkg/requestcontext"
)

// UploadDocument stores a file and makes it the single live document for its
// (user, registration, type). An existing document is replaced: the new row is
// inserted and the old rows removed in one transaction, then the old blobs are
// deleted best-effort.
func (s *Service) UploadDocument(ctx context.Context, actor models.Actor, req *models.UploadRequest) (result *models.UploadResult, err error) {
	ctx, span := s.startSpan(ctx, "UploadDocument",
		attribute.String("user_id", req.UserID.String()),
		attribute.String("document_type", string(req.Type)),
	)
	defer func() { endSpan(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var reg *models.Registration
	if req.RegistrationID != nil {
		reg, err = loadRegistration(ctx, s.stores.Registrations.FindByID, *req.RegistrationID)
		if err != nil {
			return nil, err
		}
		if reg.UserID != req.UserID {
			return nil, dErrors.New(dErrors.CodeValidation, "registration belongs to a different user")
		}
	}
	if !canView(actor, req.UserID, reg) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not allowed to upload for this user")
	}

	obj, err := s.blobs.Put(ctx, req.Content, blob.Meta{FileName: req.FileName, ContentType: req.MimeType})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDependencyFailure, "failed to store file")
	}
	if obj.Size > models.MaxUploadSize {
		s.deleteBlob(ctx, obj.Key, "")
		return nil, dErrors.New(dErrors.CodeValidation, "file exceeds the maximum upload size")
	}

	now := requestcontext.Now(ctx)
	doc := &models.UserDocument{
		ID:             id.NewDocumentID(),
		UserID:         req.UserID,
		RegistrationID: req.RegistrationID,
		Type:           req.Type,
		Status:         models.DocumentPending,
		FileName:       req.FileName,
		MimeType:       req.MimeType,
		Size:           obj.Size,
		StorageKey:     obj.Key,
		Checksum:       obj.Checksum,
		Source:         req.Source,
		UploadedByRole: actor.Role,
		UploadedAt:     now,
		UpdatedAt:      now,
	}

	var previous []*models.UserDocument
	err = s.tx.RunInTx(ctx, func(stores Stores) error {
		existing, err := stores.Documents.ListByOwnerAndType(ctx, req.UserID, req.RegistrationID, req.Type)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load existing documents")
		}
		// Insert first so the type is never without a current document.
		if err := stores.Documents.Create(ctx, doc); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "a concurrent upload replaced this document")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save document")
		}
		for _, old := range existing {
			if err := stores.Documents.Delete(ctx, old.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove replaced document")
			}
		}
		previous = existing
		return nil
	})
	if err != nil {
		s.deleteBlob(ctx, obj.Key, doc.ID.String())
		return nil, txFailure(err, "failed to save document")
	}

	result = &models.UploadResult{Document: doc}
	for _, old := range previous {
		s.deleteBlob(ctx, old.StorageKey, old.ID.String())
	}

	details := clientDetails(ctx, map[string]string{
		"file_name": doc.FileName,
		"checksum":  doc.Checksum,
		"size":      strconv.FormatInt(doc.Size, 10),
		"source":    string(doc.Source),
	})
	action, event := models.ActionUpload, audit.EventDocumentUploaded
	if len(previous) > 0 {
		replaced := previous[0].ID
		result.Replaced = &replaced
		details["replaced_document_id"] = replaced.String()
		action, event = models.ActionReplace, audit.EventDocumentReplaced
	}
	if err := s.recordAction(ctx, models.NewActionLog(doc.ID, action, actor, details, now)); err != nil {
		result.Warnings = append(result.Warnings, "action log entry not recorded")
	}
	auditArgs := append([]any{
		"user_id", doc.UserID.String(),
		"document_id", doc.ID.String(),
		"document_type", string(doc.Type),
	}, actorAttrs(actor)...)
	if err := s.logAudit(ctx, event, auditArgs...); err != nil {
		result.Warnings = append(result.Warnings, "audit event not published")
	}
	if s.metrics != nil {
		s.metrics.IncrementUpload(len(previous) > 0)
	}

	if reg == nil {
		return result, nil
	}

	outcome, err := s.evaluate(ctx, reg.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "progression not evaluated after upload",
			"registration_id", reg.ID.String(), "error", err)
		result.Warnings = append(result.Warnings, "progression not evaluated")
	} else {
		result.Progression = outcome
	}

	if reg.IsPartnerManaged() {
		result.NotificationSent = s.notifyPartner(ctx, notify.KindPartnerDocumentUploaded, *reg.PartnerID, map[string]string{
			"registration_id": reg.ID.String(),
			"document_type":   string(doc.Type),
			"course_name":     reg.CourseName,
		})
		notifyDetails := map[string]string{
			"partner_id": reg.PartnerID.String(),
			"delivered":  strconv.FormatBool(result.NotificationSent),
		}
		if err := s.recordAction(ctx, models.NewActionLog(doc.ID, models.ActionNotifyPartner, models.SystemActor, notifyDetails, now)); err != nil {
			result.Warnings = append(result.Warnings, "action log entry not recorded")
		}
		if !result.NotificationSent {
			result.Warnings = append(result.Warnings, "partner notification not sent")
		}
	}
	return result, nil
}

// DeleteDocument removes a document that has not passed review. The status
// check, the action log entry and the row delete share one transaction with
// the document row locked, so a review committing concurrently cannot slip
// an approved document past the check. The blob goes last, best-effort.
func (s *Service) DeleteDocument(ctx context.Context, documentID id.DocumentID, actor models.Actor) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteDocument", attribute.String("document_id", documentID.String()))
	defer func() { endSpan(span, err) }()

	now := requestcontext.Now(ctx)
	var doc *models.UserDocument
	err = s.tx.RunInTx(ctx, func(stores Stores) error {
		d, err := loadDocument(ctx, stores.Documents.FindByIDForUpdate, documentID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && actor.UserID != d.UserID {
			return dErrors.New(dErrors.CodeUnauthorized, "not allowed to delete this document")
		}
		if err := d.CanDelete(); err != nil {
			return err
		}

		entry := models.NewActionLog(d.ID, models.ActionDelete, actor, map[string]string{
			"file_name": d.FileName,
			"type":      string(d.Type),
			"checksum":  d.Checksum,
		}, now)
		if err := stores.ActionLogs.Append(ctx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record document deletion")
		}
		if err := stores.Documents.Delete(ctx, d.ID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "document not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete document")
		}
		doc = d
		return nil
	})
	if err != nil {
		return txFailure(err, "failed to delete document")
	}

	s.deleteBlob(ctx, doc.StorageKey, doc.ID.String())

	auditArgs := append([]any{
		"user_id", doc.UserID.String(),
		"document_id", doc.ID.String(),
		"document_type", string(doc.Type),
	}, actorAttrs(actor)...)
	_ = s.logAudit(ctx, audit.EventDocumentDeleted, auditArgs...)
	return nil
}

// GetDownloadURL returns a signed, expiring URL for the document's file and
// records the access.
func (s *Service) GetDownloadURL(ctx context.Context, documentID id.DocumentID, actor models.Actor) (link *models.DownloadLink, err error) {
	ctx, span := s.startSpan(ctx, "GetDownloadURL", attribute.String("document_id", documentID.String()))
	defer func() { endSpan(span, err) }()

	doc, err := loadDocument(ctx, s.stores.Documents.FindByID, documentID)
	if err != nil {
		return nil, err
	}
	var reg *models.Registration
	if doc.RegistrationID != nil {
		if reg, err = loadRegistration(ctx, s.stores.Registrations.FindByID, *doc.RegistrationID); err != nil {
			return nil, err
		}
	}
	if !canView(actor, doc.UserID, reg) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not allowed to download this document")
	}

	url, err := s.blobs.DownloadURL(ctx, doc.StorageKey, s.downloadTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDependencyFailure, "failed to create download link")
	}

	now := requestcontext.Now(ctx)
	_ = s.recordAction(ctx, models.NewActionLog(doc.ID, models.ActionDownload, actor, clientDetails(ctx, nil), now))
	auditArgs := append([]any{
		"user_id", doc.UserID.String(),
		"document_id", doc.ID.String(),
	}, actorAttrs(actor)...)
	_ = s.logAudit(ctx, audit.EventDocumentDownloaded, auditArgs...)

	return &models.DownloadLink{DocumentID: doc.ID, URL: url}, nil
}

// ListDocumentActions returns a document's action history. The history
// outlives the document, so admins can still read it after deletion.
func (s *Service) ListDocumentActions(ctx context.Context, documentID id.DocumentID, actor models.Actor) (entries []*models.ActionLog, err error) {
	ctx, span := s.startSpan(ctx, "ListDocumentActions", attribute.String("document_id", documentID.String()))
	defer func() { endSpan(span, err) }()

	doc, err := s.stores.Documents.FindByID(ctx, documentID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		if !actor.IsAdmin() {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	default:
		reg, err := registrationOf(ctx, s.stores.Registrations, doc)
		if err != nil && !actor.IsAdmin() {
			return nil, err
		}
		if !actor.IsAdmin() && !actor.CanReview(reg) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "not allowed to view this document's history")
		}
	}

	entries, err = s.stores.ActionLogs.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document actions")
	}
	return entries, nil
}

func (s *Service) deleteBlob(ctx context.Context, key, documentID string) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete blob",
			"document_id", documentID,
			"storage_key", key,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncrementBlobDeleteFailure()
		}
	}
}
