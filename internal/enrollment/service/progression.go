package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"dossier/internal/enrollment/models"
	"dossier/internal/enrollment/progression"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/audit"
	"dossier/pkg/platform/sentinel"
	"dossier/pkg/requestcontext"
)

// GetRequiredDocuments returns the ordered required set for an offer type.
func (s *Service) GetRequiredDocuments(offer models.OfferType) []models.RequiredDocument {
	return models.RequiredDocumentSet(offer)
}

// EvaluateProgression recomputes the registration's checklist from the full
// current document set and applies its offer's transition rule. It is safe to
// call after every document change: a second call with nothing changed is a
// no-op, and a lost compare-and-set reports the status another caller set.
func (s *Service) EvaluateProgression(ctx context.Context, registrationID id.RegistrationID) (outcome *models.ProgressionOutcome, err error) {
	ctx, span := s.startSpan(ctx, "EvaluateProgression", attribute.String("registration_id", registrationID.String()))
	defer func() { endSpan(span, err) }()

	return s.evaluate(ctx, registrationID)
}

func (s *Service) evaluate(ctx context.Context, registrationID id.RegistrationID) (*models.ProgressionOutcome, error) {
	start := time.Now()
	if s.metrics != nil {
		defer s.metrics.ObserveEvaluate(start)
	}
	now := requestcontext.Now(ctx)

	var (
		outcome models.ProgressionOutcome
		owner   id.UserID
	)
	err := s.tx.RunInTx(ctx, func(stores Stores) error {
		reg, err := loadRegistration(ctx, stores.Registrations.FindByID, registrationID)
		if err != nil {
			return err
		}
		owner = reg.UserID

		docs, err := stores.Documents.ListByRegistration(ctx, registrationID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load documents")
		}
		fullyPaid := false
		if progression.RequiresPayment(reg.OfferType) {
			deadlines, err := stores.Payments.ListByRegistration(ctx, registrationID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment deadlines")
			}
			fullyPaid = models.FullyPaid(deadlines)
		}

		var decision progression.Decision
		outcome, decision = progression.Evaluate(reg, docs, fullyPaid)
		if !decision.Advance {
			return nil
		}

		err = stores.Registrations.UpdateStatusIfCurrent(ctx, reg.ID, reg.Status, decision.Target, now)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update registration status")
		}
		// Someone else moved the status between our read and write.
		current, err := loadRegistration(ctx, stores.Registrations.FindByID, registrationID)
		if err != nil {
			return err
		}
		outcome.Advanced = false
		outcome.Reason = models.ReasonConcurrentlyMoved
		outcome.Status = current.Status
		outcome.Checklist.Status = current.Status
		return nil
	})
	if err != nil {
		return nil, txFailure(err, "failed to evaluate progression")
	}

	if s.metrics != nil {
		s.metrics.IncrementEvaluation(string(outcome.Reason))
	}
	if !outcome.Advanced {
		return &outcome, nil
	}

	if s.metrics != nil {
		s.metrics.IncrementTransition(string(outcome.PreviousStatus), string(outcome.Status))
	}
	details := map[string]string{
		"from": string(outcome.PreviousStatus),
		"to":   string(outcome.Status),
	}
	for _, doc := range outcome.Checklist.Resolved() {
		_ = s.recordAction(ctx, models.NewActionLog(doc.ID, models.ActionCheck, models.SystemActor, details, now))
	}
	_ = s.logAudit(ctx, audit.EventRegistrationAdvanced,
		"user_id", owner.String(),
		"registration_id", registrationID.String(),
		"decision", string(outcome.Status),
		"reason", string(outcome.Reason),
		"actor_role", string(models.RoleSystem),
	)
	return &outcome, nil
}

// GetChecklist returns the registration's required documents resolved to the
// current upload per type, without evaluating any transition.
func (s *Service) GetChecklist(ctx context.Context, registrationID id.RegistrationID, actor models.Actor) (checklist *models.Checklist, err error) {
	ctx, span := s.startSpan(ctx, "GetChecklist", attribute.String("registration_id", registrationID.String()))
	defer func() { endSpan(span, err) }()

	reg, err := loadRegistration(ctx, s.stores.Registrations.FindByID, registrationID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, reg.UserID, reg) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not allowed to view this registration")
	}
	docs, err := s.stores.Documents.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load documents")
	}
	result := progression.Assess(reg, docs)
	return &result, nil
}

// RecordPayment marks one payment deadline paid and re-evaluates the
// registration, which may now clear the payment gate.
func (s *Service) RecordPayment(ctx context.Context, deadlineID id.DeadlineID, actor models.Actor) (result *models.PaymentResult, err error) {
	ctx, span := s.startSpan(ctx, "RecordPayment", attribute.String("deadline_id", deadlineID.String()))
	defer func() { endSpan(span, err) }()

	if !actor.IsAdmin() && actor.Role != models.RoleSystem {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only administrators may record payments")
	}
	now := requestcontext.Now(ctx)

	var (
		deadline *models.PaymentDeadline
		changed  bool
	)
	err = s.tx.RunInTx(ctx, func(stores Stores) error {
		d, err := stores.Payments.FindByID(ctx, deadlineID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "payment deadline not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment deadline")
		}
		deadline = d
		if changed = d.MarkPaid(now); !changed {
			return nil
		}
		if err := stores.Payments.Update(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update payment deadline")
		}
		return nil
	})
	if err != nil {
		return nil, txFailure(err, "failed to record payment")
	}

	if changed {
		_ = s.logAudit(ctx, audit.EventPaymentRecorded,
			"registration_id", deadline.RegistrationID.String(),
			"deadline_id", deadlineID.String(),
			"decision", string(models.PaymentPaid),
			"actor_id", actor.UserID.String(),
			"actor_role", string(actor.Role),
		)
	}

	outcome, err := s.evaluate(ctx, deadline.RegistrationID)
	if err != nil {
		return nil, err
	}
	return &models.PaymentResult{Deadline: deadline, Progression: outcome}, nil
}

// canView allows the owner, anyone who may review the registration, and the system.
func canView(actor models.Actor, owner id.UserID, reg *models.Registration) bool {
	if actor.Role == models.RoleSystem || actor.IsAdmin() {
		return true
	}
	if !actor.UserID.IsNil() && actor.UserID == owner {
		return true
	}
	return reg != nil && actor.CanReview(reg)
}

// txFailure keeps domain errors raised inside a transaction and wraps the rest.
// A uniqueness conflict surfacing at commit becomes CodeConflict.
func txFailure(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
