package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"dossier/internal/enrollment/models"
	"dossier/internal/notify"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/audit"
	"dossier/pkg/platform/sentinel"
	"dossier/pkg/requestcontext"
)

const (
	tierPartner   = "partner"
	tierDirect    = "direct"
	tierDiscovery = "discovery"
)

// ApproveDocument records a first-tier approval. Registrations without a
// partner are single-tier and the document goes straight to APPROVED.
func (s *Service) ApproveDocument(ctx context.Context, documentID id.DocumentID, actor models.Actor, notes string) (result *models.ReviewResult, err error) {
	ctx, span := s.startSpan(ctx, "ApproveDocument", attribute.String("document_id", documentID.String()))
	defer func() { endSpan(span, err) }()

	notes = strings.TrimSpace(notes)
	doc, reg, err := s.review(ctx, documentID, actor, func(doc *models.UserDocument, singleTier bool) {
		doc.ApplyPartnerApproval(actor.UserID, notes, singleTier, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	return s.afterReview(ctx, doc, reg, actor, models.ActionApprove, map[string]string{"notes": notes}), nil
}

// RejectDocument records a first-tier rejection. The registration is never
// moved backward by a single rejection; the student re-uploads.
func (s *Service) RejectDocument(ctx context.Context, documentID id.DocumentID, actor models.Actor, reason, details string) (result *models.ReviewResult, err error) {
	ctx, span := s.startSpan(ctx, "RejectDocument", attribute.String("document_id", documentID.String()))
	defer func() { endSpan(span, err) }()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	details = strings.TrimSpace(details)
	doc, reg, err := s.review(ctx, documentID, actor, func(doc *models.UserDocument, singleTier bool) {
		doc.ApplyPartnerRejection(actor.UserID, reason, details, singleTier, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	return s.afterReview(ctx, doc, reg, actor, models.ActionReject, map[string]string{"reason": reason, "details": details}), nil
}

// review loads, authorizes and updates one document in a transaction.
func (s *Service) review(ctx context.Context, documentID id.DocumentID, actor models.Actor, apply func(doc *models.UserDocument, singleTier bool)) (*models.UserDocument, *models.Registration, error) {
	var (
		doc *models.UserDocument
		reg *models.Registration
	)
	err := s.tx.RunInTx(ctx, func(stores Stores) error {
		d, err := loadDocument(ctx, stores.Documents.FindByIDForUpdate, documentID)
		if err != nil {
			return err
		}
		r, err := registrationOf(ctx, stores.Registrations, d)
		if err != nil {
			return err
		}
		if !actor.CanReview(r) {
			return dErrors.New(dErrors.CodeUnauthorized, "reviewer is not associated with this registration")
		}
		apply(d, !r.IsPartnerManaged())
		if err := stores.Documents.Update(ctx, d); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "document not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update document")
		}
		doc, reg = d, r
		return nil
	})
	if err != nil {
		return nil, nil, txFailure(err, "failed to review document")
	}
	return doc, reg, nil
}

// afterReview runs the side effects of a committed review. None of them can
// fail the review; each failure becomes a warning.
func (s *Service) afterReview(ctx context.Context, doc *models.UserDocument, reg *models.Registration, actor models.Actor, action models.DocumentAction, details map[string]string) *models.ReviewResult {
	result := &models.ReviewResult{Document: doc}
	tier := tierPartner
	if !reg.IsPartnerManaged() {
		tier = tierDirect
	}
	details["tier"] = tier

	if err := s.recordAction(ctx, models.NewActionLog(doc.ID, action, actor, details, doc.UpdatedAt)); err != nil {
		result.Warnings = append(result.Warnings, "action log entry not recorded")
	}

	event, kind, decision := audit.EventDocumentApproved, notify.KindDocumentApproved, "approved"
	if action == models.ActionReject {
		event, kind, decision = audit.EventDocumentRejected, notify.KindDocumentRejected, "rejected"
	}
	auditArgs := append([]any{
		"user_id", doc.UserID.String(),
		"document_id", doc.ID.String(),
		"registration_id", reg.ID.String(),
		"decision", string(doc.Status),
		"reason", details["reason"],
	}, actorAttrs(actor)...)
	if err := s.logAudit(ctx, event, auditArgs...); err != nil {
		result.Warnings = append(result.Warnings, "audit event not published")
	}
	if s.metrics != nil {
		s.metrics.IncrementReview(tier, decision)
	}

	outcome, err := s.evaluate(ctx, reg.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "progression not evaluated after review",
			"registration_id", reg.ID.String(), "error", err)
		result.Warnings = append(result.Warnings, "progression not evaluated")
	} else {
		result.Progression = outcome
	}

	payload := map[string]string{
		"document_type": string(doc.Type),
		"course_name":   reg.CourseName,
	}
	if doc.RejectionReason != nil {
		payload["reason"] = *doc.RejectionReason
	}
	result.NotificationSent = s.notifyStudent(ctx, kind, doc.UserID, payload)
	if !result.NotificationSent {
		result.Warnings = append(result.Warnings, "notification not sent")
	}
	return result
}

// BulkApproveRegistration is the discovery-level approval: every document of
// the registration becomes APPROVED and the registration moves to ENROLLED, all
// in one transaction.
func (s *Service) BulkApproveRegistration(ctx context.Context, registrationID id.RegistrationID, actor models.Actor, notes string) (result *models.BulkReviewResult, err error) {
	ctx, span := s.startSpan(ctx, "BulkApproveRegistration", attribute.String("registration_id", registrationID.String()))
	defer func() { endSpan(span, err) }()

	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only administrators may approve registrations")
	}
	notes = strings.TrimSpace(notes)
	now := requestcontext.Now(ctx)

	reg, docs, target, err := s.bulkReview(ctx, registrationID, bulkApproveTarget, func(doc *models.UserDocument) {
		doc.ApplyDiscoveryApproval(actor.UserID, notes, now)
	})
	if err != nil {
		return nil, err
	}
	result = &models.BulkReviewResult{
		RegistrationID: reg.ID,
		PreviousStatus: reg.Status,
		Status:         target,
		DocumentCount:  len(docs),
	}
	s.afterBulkReview(ctx, result, reg, docs, actor, models.ActionApprove, map[string]string{"notes": notes})

	result.NotificationSent = s.notifyStudent(ctx, notify.KindEnrollmentConfirmed, docs[0].UserID, map[string]string{
		"course_name":     reg.CourseName,
		"registration_id": reg.ID.String(),
	})
	if !result.NotificationSent {
		result.Warnings = append(result.Warnings, "notification not sent")
	}
	return result, nil
}

// BulkRejectRegistration is the discovery-level rejection. Only the
// discovery fields of each document are stamped; partner-level status stays.
func (s *Service) BulkRejectRegistration(ctx context.Context, registrationID id.RegistrationID, actor models.Actor, reason string) (result *models.BulkReviewResult, err error) {
	ctx, span := s.startSpan(ctx, "BulkRejectRegistration", attribute.String("registration_id", registrationID.String()))
	defer func() { endSpan(span, err) }()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only administrators may reject registrations")
	}
	now := requestcontext.Now(ctx)

	reg, docs, target, err := s.bulkReview(ctx, registrationID, bulkRejectTarget, func(doc *models.UserDocument) {
		doc.ApplyDiscoveryRejection(reason, now)
	})
	if err != nil {
		return nil, err
	}
	result = &models.BulkReviewResult{
		RegistrationID: reg.ID,
		PreviousStatus: reg.Status,
		Status:         target,
		DocumentCount:  len(docs),
	}
	s.afterBulkReview(ctx, result, reg, docs, actor, models.ActionReject, map[string]string{"reason": reason})

	result.NotificationSent = s.notifyStudent(ctx, notify.KindEnrollmentRejected, docs[0].UserID, map[string]string{
		"course_name":     reg.CourseName,
		"registration_id": reg.ID.String(),
		"reason":          reason,
	})
	if !result.NotificationSent {
		result.Warnings = append(result.Warnings, "notification not sent")
	}
	return result, nil
}

// bulkReview applies fn to every document of the registration and moves its
// status to whatever target picks, all or nothing.
func (s *Service) bulkReview(
	ctx context.Context,
	registrationID id.RegistrationID,
	target func(models.RegistrationStatus) (models.RegistrationStatus, error),
	fn func(doc *models.UserDocument),
) (*models.Registration, []*models.UserDocument, models.RegistrationStatus, error) {
	var (
		reg  *models.Registration
		docs []*models.UserDocument
		next models.RegistrationStatus
	)
	err := s.tx.RunInTx(ctx, func(stores Stores) error {
		r, err := loadRegistration(ctx, stores.Registrations.FindByIDForUpdate, registrationID)
		if err != nil {
			return err
		}
		list, err := stores.Documents.ListByRegistrationForUpdate(ctx, registrationID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load documents")
		}
		if len(list) == 0 {
			return dErrors.New(dErrors.CodeConflict, "registration has no documents to review")
		}
		to, err := target(r.Status)
		if err != nil {
			return err
		}

		for _, doc := range list {
			fn(doc)
			if err := stores.Documents.Update(ctx, doc); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update document")
			}
		}
		if to != r.Status {
			err := stores.Registrations.UpdateStatusIfCurrent(ctx, r.ID, r.Status, to, requestcontext.Now(ctx))
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "registration status changed concurrently")
			}
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update registration status")
			}
		}
		reg, docs, next = r, list, to
		return nil
	})
	if err != nil {
		return nil, nil, "", txFailure(err, "failed to review registration")
	}
	return reg, docs, next, nil
}

func (s *Service) afterBulkReview(ctx context.Context, result *models.BulkReviewResult, reg *models.Registration, docs []*models.UserDocument, actor models.Actor, action models.DocumentAction, details map[string]string) {
	details["tier"] = tierDiscovery
	now := requestcontext.Now(ctx)
	failed := 0
	for _, doc := range docs {
		if err := s.recordAction(ctx, models.NewActionLog(doc.ID, action, actor, details, now)); err != nil {
			failed++
		}
	}
	if failed > 0 {
		result.Warnings = append(result.Warnings, "action log entries not recorded")
	}

	event, decision := audit.EventRegistrationBulkApproved, "approved"
	if action == models.ActionReject {
		event, decision = audit.EventRegistrationBulkRejected, "rejected"
	}
	auditArgs := append([]any{
		"user_id", reg.UserID.String(),
		"registration_id", reg.ID.String(),
		"decision", string(result.Status),
		"reason", details["reason"],
		"document_count", len(docs),
	}, actorAttrs(actor)...)
	if err := s.logAudit(ctx, event, auditArgs...); err != nil {
		result.Warnings = append(result.Warnings, "audit event not published")
	}

	if s.metrics != nil {
		for range docs {
			s.metrics.IncrementReview(tierDiscovery, decision)
		}
		if result.Status != result.PreviousStatus {
			s.metrics.IncrementTransition(string(result.PreviousStatus), string(result.Status))
		}
	}
}

// bulkApproveTarget moves pre-enrollment registrations to ENROLLED and leaves
// registrations already at or past ENROLLED where they are.
func bulkApproveTarget(status models.RegistrationStatus) (models.RegistrationStatus, error) {
	switch {
	case status.IsAtLeast(models.StatusEnrolled):
		return status, nil
	case status.CanTransitionTo(models.StatusEnrolled) && status.IsAtLeast(models.StatusDocumentsUploaded):
		return models.StatusEnrolled, nil
	}
	return "", dErrors.New(dErrors.CodeConflict, "registration is not awaiting discovery approval")
}

// bulkRejectTarget follows the single rollback edge; a registration already
// at DOCUMENTS_UPLOADED keeps its status.
func bulkRejectTarget(status models.RegistrationStatus) (models.RegistrationStatus, error) {
	if back, ok := status.RollbackTarget(); ok {
		return back, nil
	}
	if status == models.StatusDocumentsUploaded {
		return status, nil
	}
	return "", dErrors.New(dErrors.CodeConflict, "registration is not awaiting discovery approval")
}
