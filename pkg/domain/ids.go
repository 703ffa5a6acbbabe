package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "dossier/pkg/domain-errors"
)

// Typed identifiers keep a document ID from being passed where a registration
// ID is expected. All of them are non-nil UUIDs once parsed.
type (
	UserID         uuid.UUID
	PartnerID      uuid.UUID
	RegistrationID uuid.UUID
	DocumentID     uuid.UUID
	DeadlineID     uuid.UUID
)

const maxIDLength = 64

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" || len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if strings.TrimSpace(s) != s {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

func ParsePartnerID(s string) (PartnerID, error) {
	u, err := parseUUID(s, "partner ID")
	return PartnerID(u), err
}

func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID(s, "registration ID")
	return RegistrationID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document ID")
	return DocumentID(u), err
}

func ParseDeadlineID(s string) (DeadlineID, error) {
	u, err := parseUUID(s, "payment deadline ID")
	return DeadlineID(u), err
}

func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id PartnerID) String() string      { return uuid.UUID(id).String() }
func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string     { return uuid.UUID(id).String() }
func (id DeadlineID) String() string     { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id PartnerID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DeadlineID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs render as plain UUID strings in JSON.
func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id PartnerID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id RegistrationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id DocumentID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id DeadlineID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error         { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *PartnerID) UnmarshalText(b []byte) error      { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *RegistrationID) UnmarshalText(b []byte) error { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *DocumentID) UnmarshalText(b []byte) error     { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *DeadlineID) UnmarshalText(b []byte) error     { return unmarshalUUID((*uuid.UUID)(id), b) }

func unmarshalUUID(dst *uuid.UUID, b []byte) error {
	if len(b) == 0 {
		*dst = uuid.Nil
		return nil
	}
	return dst.UnmarshalText(b)
}
