package models

import (
	"time"

	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
)

// DocumentStatus is the review state of one uploaded document.
type DocumentStatus string

const (
	DocumentPending           DocumentStatus = "PENDING"
	DocumentApproved          DocumentStatus = "APPROVED"
	DocumentRejected          DocumentStatus = "REJECTED"
	DocumentApprovedByPartner DocumentStatus = "APPROVED_BY_PARTNER"
	DocumentRejectedByPartner DocumentStatus = "REJECTED_BY_PARTNER"
)

// IsApproved reports whether the status counts as approved for progression.
func (s DocumentStatus) IsApproved() bool {
	return s == DocumentApproved || s == DocumentApprovedByPartner
}

// UploadSource records which surface produced an upload.
type UploadSource string

const (
	SourceStudentPortal UploadSource = "STUDENT_PORTAL"
	SourcePartnerPortal UploadSource = "PARTNER_PORTAL"
	SourceAdminConsole  UploadSource = "ADMIN_CONSOLE"
)

func (s UploadSource) IsValid() bool {
	switch s {
	case SourceStudentPortal, SourcePartnerPortal, SourceAdminConsole:
		return true
	}
	return false
}

// UserDocument is one uploaded file tied to a user and, once it exists, to a
// registration.
//
// Invariants:
//   - At most one live document per (UserID, RegistrationID, Type); a re-upload
//     replaces the previous row
//   - RejectionReason and RejectionDetails are nil whenever Status is approved
type UserDocument struct {
	ID                    id.DocumentID      `json:"id"`
	UserID                id.UserID          `json:"user_id"`
	RegistrationID        *id.RegistrationID `json:"registration_id,omitempty"`
	Type                  DocumentType       `json:"type"`
	Status                DocumentStatus     `json:"status"`
	FileName              string             `json:"file_name"`
	MimeType              string             `json:"mime_type"`
	Size                  int64              `json:"size"`
	StorageKey            string             `json:"-"`
	Checksum              string             `json:"checksum"`
	Source                UploadSource       `json:"source"`
	UploadedByRole        Role               `json:"uploaded_by_role"`
	ReviewedByPartner     bool               `json:"reviewed_by_partner"`
	PartnerCheckedAt      *time.Time         `json:"partner_checked_at,omitempty"`
	PartnerCheckedBy      *id.UserID         `json:"partner_checked_by,omitempty"`
	PartnerNotes          *string            `json:"partner_notes,omitempty"`
	RejectionReason       *string            `json:"rejection_reason,omitempty"`
	RejectionDetails      *string            `json:"rejection_details,omitempty"`
	UserNotifiedAt        *time.Time         `json:"user_notified_at,omitempty"`
	DiscoveryApprovedAt   *time.Time         `json:"discovery_approved_at,omitempty"`
	DiscoveryApprovedBy   *id.UserID         `json:"discovery_approved_by,omitempty"`
	DiscoveryNotes        *string            `json:"discovery_notes,omitempty"`
	DiscoveryRejectedAt   *time.Time         `json:"discovery_rejected_at,omitempty"`
	DiscoveryRejectReason *string            `json:"discovery_rejection_reason,omitempty"`
	UploadedAt            time.Time          `json:"uploaded_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// BelongsTo reports whether the document is filed under registrationID.
func (d *UserDocument) BelongsTo(registrationID id.RegistrationID) bool {
	return d.RegistrationID != nil && *d.RegistrationID == registrationID
}

// ApplyPartnerApproval records a first-tier approval and clears any earlier
// rejection. singleTier selects APPROVED for registrations without a partner.
func (d *UserDocument) ApplyPartnerApproval(reviewer id.UserID, notes string, singleTier bool, now time.Time) {
	if singleTier {
		d.Status = DocumentApproved
	} else {
		d.Status = DocumentApprovedByPartner
	}
	d.ReviewedByPartner = true
	d.PartnerCheckedAt = &now
	d.PartnerCheckedBy = &reviewer
	d.PartnerNotes = optionalString(notes)
	d.RejectionReason = nil
	d.RejectionDetails = nil
	d.UpdatedAt = now
}

// ApplyPartnerRejection records a first-tier rejection. The reason must be
// validated by the caller.
func (d *UserDocument) ApplyPartnerRejection(reviewer id.UserID, reason, details string, singleTier bool, now time.Time) {
	if singleTier {
		d.Status = DocumentRejected
	} else {
		d.Status = DocumentRejectedByPartner
	}
	d.ReviewedByPartner = true
	d.PartnerCheckedAt = &now
	d.PartnerCheckedBy = &reviewer
	d.RejectionReason = &reason
	d.RejectionDetails = optionalString(details)
	d.UserNotifiedAt = &now
	d.UpdatedAt = now
}

// ApplyDiscoveryApproval records the second-tier, registration-wide approval.
func (d *UserDocument) ApplyDiscoveryApproval(admin id.UserID, notes string, now time.Time) {
	d.Status = DocumentApproved
	d.DiscoveryApprovedAt = &now
	d.DiscoveryApprovedBy = &admin
	d.DiscoveryNotes = optionalString(notes)
	d.DiscoveryRejectedAt = nil
	d.DiscoveryRejectReason = nil
	d.RejectionReason = nil
	d.RejectionDetails = nil
	d.UpdatedAt = now
}

// ApplyDiscoveryRejection stamps the discovery-specific fields only; the
// partner-level Status is left as it was.
func (d *UserDocument) ApplyDiscoveryRejection(reason string, now time.Time) {
	d.DiscoveryRejectedAt = &now
	d.DiscoveryRejectReason = &reason
	d.UpdatedAt = now
}

// DiscoveryRejectionStands reports whether a discovery rejection is still
// current: no partner review and no discovery approval came after it.
func (d *UserDocument) DiscoveryRejectionStands() bool {
	if d.DiscoveryRejectedAt == nil {
		return false
	}
	return d.PartnerCheckedAt == nil || !d.PartnerCheckedAt.After(*d.DiscoveryRejectedAt)
}

// CanDelete rejects deletion of documents that already passed review.
func (d *UserDocument) CanDelete() error {
	if d.Status.IsApproved() {
		return dErrors.New(dErrors.CodeConflict, "approved documents cannot be deleted")
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
