package models

import (
	id "dossier/pkg/domain"
)

// Student is the notification context for a registration's owner.
type Student struct {
	ID       id.UserID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
}

// Partner is the referring organization that performs first-tier review.
type Partner struct {
	ID           id.PartnerID `json:"id"`
	Name         string       `json:"name"`
	ContactEmail string       `json:"contact_email"`
}
