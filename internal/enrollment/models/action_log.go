package models

import (
	"time"

	"github.com/google/uuid"

	id "dossier/pkg/domain"
)

// DocumentAction is one kind of action recorded against a document.
type DocumentAction string

const (
	ActionUpload        DocumentAction = "UPLOAD"
	ActionApprove       DocumentAction = "APPROVE"
	ActionReject        DocumentAction = "REJECT"
	ActionCheck         DocumentAction = "CHECK"
	ActionReplace       DocumentAction = "REPLACE"
	ActionDelete        DocumentAction = "DELETE"
	ActionDownload      DocumentAction = "DOWNLOAD"
	ActionNotifyPartner DocumentAction = "NOTIFY_PARTNER"
)

// ActionLog is an append-only record of one action on a document. Entries are
// never updated or deleted, and they outlive the document they describe.
type ActionLog struct {
	ID         uuid.UUID         `json:"id"`
	DocumentID id.DocumentID     `json:"document_id"`
	Action     DocumentAction    `json:"action"`
	ActorID    id.UserID         `json:"actor_id"`
	ActorRole  Role              `json:"actor_role"`
	Details    map[string]string `json:"details,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewActionLog builds an entry with a fresh ID.
func NewActionLog(documentID id.DocumentID, action DocumentAction, actor Actor, details map[string]string, now time.Time) *ActionLog {
	return &ActionLog{
		ID:         uuid.New(),
		DocumentID: documentID,
		Action:     action,
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Details:    details,
		CreatedAt:  now,
	}
}
