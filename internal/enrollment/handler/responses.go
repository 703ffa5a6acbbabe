package handler

import (
	"dossier/internal/enrollment/models"
	id "dossier/pkg/domain"
)

type RequiredDocumentsResponse struct {
	OfferType models.OfferType          `json:"offer_type"`
	Documents []models.RequiredDocument `json:"documents"`
}

type ActionsResponse struct {
	DocumentID id.DocumentID       `json:"document_id"`
	Actions    []*models.ActionLog `json:"actions"`
}
