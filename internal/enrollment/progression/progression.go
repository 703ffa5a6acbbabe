// Package progression holds the auto-advance rules for registrations. Every
// function here is pure: callers load the registration, its documents and its
// payment schedule, and persist whatever Decision comes back.
//
// Evaluation always recomputes from the full current document set. There is
// no counter to go stale, so running it after every review is safe even when
// two reviews race on the same registration.
package progression

import (
	"dossier/internal/enrollment/models"
)

// Assess resolves the registration's documents to the most recent upload per
// required type and computes the aggregate flags. Documents of types outside
// the required set, or filed under another registration, are ignored.
func Assess(reg *models.Registration, docs []*models.UserDocument) models.Checklist {
	required := models.RequiredDocumentTypes(reg.OfferType)
	current := make(map[models.DocumentType]*models.UserDocument, len(required))
	for _, doc := range docs {
		if doc == nil || !doc.BelongsTo(reg.ID) {
			continue
		}
		if prev, ok := current[doc.Type]; ok && !doc.UploadedAt.After(prev.UploadedAt) {
			continue
		}
		current[doc.Type] = doc
	}

	checklist := models.Checklist{
		RegistrationID: reg.ID,
		OfferType:      reg.OfferType,
		Status:         reg.Status,
		Items:          make([]models.ChecklistItem, 0, len(required)),
		Missing:        []models.DocumentType{},
		AllReviewed:    true,
		AllApproved:    true,
	}
	for _, t := range required {
		doc := current[t]
		checklist.Items = append(checklist.Items, models.ChecklistItem{Type: t, Document: doc})
		if doc == nil {
			checklist.Missing = append(checklist.Missing, t)
			continue
		}
		if !doc.ReviewedByPartner {
			checklist.AllReviewed = false
		}
		// A standing discovery rejection outranks the partner approval until
		// the partner reviews the document again.
		if !doc.Status.IsApproved() || doc.DiscoveryRejectionStands() {
			checklist.AllApproved = false
		}
	}
	checklist.AllPresent = len(checklist.Missing) == 0
	if !checklist.AllPresent {
		// Flags describe the resolved set; an incomplete set is never approved.
		checklist.AllApproved = false
	}
	return checklist
}

// Decision is the outcome of applying the offer-specific rule.
type Decision struct {
	Advance bool
	Target  models.RegistrationStatus
	Reason  models.ProgressionReason
}

// rule is the status an offer auto-advances from and to.
type rule struct {
	from            models.RegistrationStatus
	to              models.RegistrationStatus
	requiresPayment bool
}

var rules = map[models.OfferType]rule{
	models.OfferTFARomania: {
		from: models.StatusDocumentsUploaded,
		to:   models.StatusAwaitingDiscoveryApproval,
	},
	models.OfferCertification: {
		from:            models.StatusEnrolled,
		to:              models.StatusDocumentsApproved,
		requiresPayment: true,
	},
}

// ruleFor mirrors the catalog fallback: unknown offers follow CERTIFICATION.
func ruleFor(offer models.OfferType) rule {
	if r, ok := rules[offer]; ok {
		return r
	}
	return rules[models.OfferCertification]
}

// Decide applies the offer rule to an assessed checklist. fullyPaid is only
// consulted for offers that gate on payment.
func Decide(reg *models.Registration, checklist models.Checklist, fullyPaid bool) Decision {
	r := ruleFor(reg.OfferType)
	stay := func(reason models.ProgressionReason) Decision {
		return Decision{Target: reg.Status, Reason: reason}
	}

	switch {
	case reg.Status != r.from:
		return stay(models.ReasonStatusNotEligible)
	case !checklist.AllPresent:
		return stay(models.ReasonDocumentsMissing)
	case !checklist.AllReviewed:
		return stay(models.ReasonAwaitingReview)
	case !checklist.AllApproved:
		// Rejections never move a registration backward; the student re-uploads.
		return stay(models.ReasonDocumentsRejected)
	case r.requiresPayment && !fullyPaid:
		return stay(models.ReasonPaymentIncomplete)
	}
	return Decision{Advance: true, Target: r.to, Reason: models.ReasonAdvanced}
}

// Evaluate runs Assess and Decide and shapes the result for callers.
func Evaluate(reg *models.Registration, docs []*models.UserDocument, fullyPaid bool) (models.ProgressionOutcome, Decision) {
	checklist := Assess(reg, docs)
	decision := Decide(reg, checklist, fullyPaid)
	checklist.Status = decision.Target
	return models.ProgressionOutcome{
		RegistrationID: reg.ID,
		PreviousStatus: reg.Status,
		Status:         decision.Target,
		Advanced:       decision.Advance,
		Reason:         decision.Reason,
		Checklist:      checklist,
	}, decision
}

// RequiresPayment reports whether the offer's rule gates on the payment schedule.
func RequiresPayment(offer models.OfferType) bool {
	return ruleFor(offer).requiresPayment
}
