package models

import (
	id "dossier/pkg/domain"
)

// ReviewResult is returned from partner-level approve/reject. The review is
// durable even when NotificationSent is false; Warnings carries best-effort
// failures (audit, notification) the caller may want to surface.
type ReviewResult struct {
	Document         *UserDocument       `json:"document"`
	Progression      *ProgressionOutcome `json:"progression,omitempty"`
	NotificationSent bool                `json:"notification_sent"`
	Warnings         []string            `json:"warnings,omitempty"`
}

// BulkReviewResult is returned from discovery-level bulk approve/reject.
type BulkReviewResult struct {
	RegistrationID   id.RegistrationID  `json:"registration_id"`
	PreviousStatus   RegistrationStatus `json:"previous_status"`
	Status           RegistrationStatus `json:"status"`
	DocumentCount    int                `json:"document_count"`
	NotificationSent bool               `json:"notification_sent"`
	Warnings         []string           `json:"warnings,omitempty"`
}

// UploadResult is returned from upload/replace.
type UploadResult struct {
	Document         *UserDocument       `json:"document"`
	Replaced         *id.DocumentID      `json:"replaced,omitempty"`
	Progression      *ProgressionOutcome `json:"progression,omitempty"`
	NotificationSent bool                `json:"notification_sent"`
	Warnings         []string            `json:"warnings,omitempty"`
}

// PaymentResult is returned from recording a payment.
type PaymentResult struct {
	Deadline    *PaymentDeadline    `json:"deadline"`
	Progression *ProgressionOutcome `json:"progression"`
}

// DownloadLink is a signed, expiring URL for one document.
type DownloadLink struct {
	DocumentID id.DocumentID `json:"document_id"`
	URL        string        `json:"url"`
}
