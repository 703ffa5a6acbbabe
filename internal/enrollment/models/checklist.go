package models

import (
	id "dossier/pkg/domain"
)

// ChecklistItem pairs a required type with its current document, if any.
type ChecklistItem struct {
	Type     DocumentType  `json:"type"`
	Document *UserDocument `json:"document,omitempty"`
}

// Checklist is the aggregate view of a registration's required documents,
// resolved to the most recent upload per type.
type Checklist struct {
	RegistrationID id.RegistrationID  `json:"registration_id"`
	OfferType      OfferType          `json:"offer_type"`
	Status         RegistrationStatus `json:"status"`
	Items          []ChecklistItem    `json:"items"`
	Missing        []DocumentType     `json:"missing"`
	AllPresent     bool               `json:"all_present"`
	AllReviewed    bool               `json:"all_reviewed"`
	AllApproved    bool               `json:"all_approved"`
}

// Ready reports whether every required document is present and reviewed.
func (c Checklist) Ready() bool {
	return c.AllPresent && c.AllReviewed
}

// Resolved returns the current documents in catalog order.
func (c Checklist) Resolved() []*UserDocument {
	docs := make([]*UserDocument, 0, len(c.Items))
	for _, item := range c.Items {
		if item.Document != nil {
			docs = append(docs, item.Document)
		}
	}
	return docs
}

// ProgressionReason explains why an evaluation did or did not transition.
type ProgressionReason string

const (
	ReasonAdvanced          ProgressionReason = "advanced"
	ReasonDocumentsMissing  ProgressionReason = "documents_missing"
	ReasonAwaitingReview    ProgressionReason = "awaiting_partner_review"
	ReasonDocumentsRejected ProgressionReason = "documents_not_approved"
	ReasonPaymentIncomplete ProgressionReason = "payment_incomplete"
	ReasonStatusNotEligible ProgressionReason = "status_not_eligible"
	ReasonConcurrentlyMoved ProgressionReason = "status_changed_concurrently"
)

// ProgressionOutcome is the result of one progression evaluation.
type ProgressionOutcome struct {
	RegistrationID id.RegistrationID  `json:"registration_id"`
	PreviousStatus RegistrationStatus `json:"previous_status"`
	Status         RegistrationStatus `json:"status"`
	Advanced       bool               `json:"advanced"`
	Reason         ProgressionReason  `json:"reason"`
	Checklist      Checklist          `json:"checklist"`
}
