package models

import (
	id "dossier/pkg/domain"
)

// Role is the caller's role as asserted by the auth token.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RolePartner Role = "PARTNER"
	RoleAdmin   Role = "ADMIN"
	RoleSystem  Role = "SYSTEM"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RolePartner, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID    id.UserID
	Role      Role
	PartnerID *id.PartnerID
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanReview reports whether the actor may perform partner-level review on reg.
// Admins may review any registration; partner staff only their own partner's.
func (a Actor) CanReview(reg *Registration) bool {
	if a.IsAdmin() {
		return true
	}
	if a.Role != RolePartner || a.PartnerID == nil {
		return false
	}
	return reg.ManagedBy(*a.PartnerID)
}

// SystemActor is used for actions the engine performs on its own.
var SystemActor = Actor{Role: RoleSystem}
