package handler

import (
	"strings"

	"dossier/internal/enrollment/models"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
)

// ApproveRequest is the body of single and bulk approvals. Notes are optional.
type ApproveRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

func (r *ApproveRequest) Normalize() {
	r.Notes = strings.TrimSpace(r.Notes)
}

// RejectRequest is the body of a single-document rejection.
type RejectRequest struct {
	Reason  string `json:"reason" validate:"required,max=500"`
	Details string `json:"details" validate:"max=2000"`
}

func (r *RejectRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
	r.Details = strings.TrimSpace(r.Details)
}

// BulkRejectRequest is the body of a registration-wide rejection.
type BulkRejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (r *BulkRejectRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

// UploadForm holds the non-file fields of a multipart upload.
type UploadForm struct {
	Type   string `validate:"required,max=64"`
	UserID string `validate:"omitempty,uuid"`
	Source string `validate:"omitempty,max=32"`
}

func (f *UploadForm) Normalize() {
	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
	f.UserID = strings.TrimSpace(f.UserID)
	f.Source = strings.ToUpper(strings.TrimSpace(f.Source))
}

func (f *UploadForm) Validate() error {
	if !models.DocumentType(f.Type).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown document type: "+f.Type)
	}
	if f.Source != "" && !models.UploadSource(f.Source).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown upload source: "+f.Source)
	}
	return nil
}

// ToRequest builds the service request. The owner defaults to the caller;
// staff uploading on behalf of a student pass user_id.
func (f *UploadForm) ToRequest(actor models.Actor, registrationID id.RegistrationID) *models.UploadRequest {
	owner := actor.UserID
	if f.UserID != "" {
		if parsed, err := id.ParseUserID(f.UserID); err == nil {
			owner = parsed
		}
	}
	return &models.UploadRequest{
		UserID:         owner,
		RegistrationID: &registrationID,
		Type:           models.DocumentType(f.Type),
		Source:         models.UploadSource(f.Source),
	}
}
