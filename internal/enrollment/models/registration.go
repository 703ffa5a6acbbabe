package models

import (
	"time"

	id "dossier/pkg/domain"
)

// RegistrationStatus is the lifecycle position of one enrollment.
type RegistrationStatus string

const (
	StatusPending                   RegistrationStatus = "PENDING"
	StatusDataVerified              RegistrationStatus = "DATA_VERIFIED"
	StatusContractGenerated         RegistrationStatus = "CONTRACT_GENERATED"
	StatusContractSigned            RegistrationStatus = "CONTRACT_SIGNED"
	StatusDocumentsUploaded         RegistrationStatus = "DOCUMENTS_UPLOADED"
	StatusAwaitingDiscoveryApproval RegistrationStatus = "AWAITING_DISCOVERY_APPROVAL"
	StatusEnrolled                  RegistrationStatus = "ENROLLED"
	StatusDocumentsApproved         RegistrationStatus = "DOCUMENTS_APPROVED"
	StatusCNREDReleased             RegistrationStatus = "CNRED_RELEASED"
	StatusFinalExam                 RegistrationStatus = "FINAL_EXAM"
	StatusRecognitionRequest        RegistrationStatus = "RECOGNITION_REQUEST"
	StatusCompleted                 RegistrationStatus = "COMPLETED"
)

// forwardTransitions is the transition matrix. TFA registrations pass through
// discovery review (DOCUMENTS_UPLOADED -> AWAITING_DISCOVERY_APPROVAL -> ENROLLED);
// certifications enroll at signing and then collect documents
// (CONTRACT_SIGNED -> ENROLLED -> DOCUMENTS_APPROVED).
var forwardTransitions = map[RegistrationStatus]map[RegistrationStatus]bool{
	StatusPending:                   {StatusDataVerified: true},
	StatusDataVerified:              {StatusContractGenerated: true},
	StatusContractGenerated:         {StatusContractSigned: true},
	StatusContractSigned:            {StatusDocumentsUploaded: true, StatusEnrolled: true},
	StatusDocumentsUploaded:         {StatusAwaitingDiscoveryApproval: true, StatusEnrolled: true},
	StatusAwaitingDiscoveryApproval: {StatusEnrolled: true},
	StatusEnrolled:                  {StatusDocumentsApproved: true, StatusCNREDReleased: true},
	StatusDocumentsApproved:         {StatusCNREDReleased: true},
	StatusCNREDReleased:             {StatusFinalExam: true},
	StatusFinalExam:                 {StatusRecognitionRequest: true},
	StatusRecognitionRequest:        {StatusCompleted: true},
	StatusCompleted:                 {},
}

// rollbackTransitions holds the only backward edge: a discovery-level rejection.
var rollbackTransitions = map[RegistrationStatus]RegistrationStatus{
	StatusAwaitingDiscoveryApproval: StatusDocumentsUploaded,
}

// statusRank orders statuses for "at or beyond" checks.
var statusRank = map[RegistrationStatus]int{
	StatusPending:                   0,
	StatusDataVerified:              1,
	StatusContractGenerated:         2,
	StatusContractSigned:            3,
	StatusDocumentsUploaded:         4,
	StatusAwaitingDiscoveryApproval: 5,
	StatusEnrolled:                  6,
	StatusDocumentsApproved:         7,
	StatusCNREDReleased:             8,
	StatusFinalExam:                 9,
	StatusRecognitionRequest:        10,
	StatusCompleted:                 11,
}

func (s RegistrationStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo reports whether next is a forward edge from s.
func (s RegistrationStatus) CanTransitionTo(next RegistrationStatus) bool {
	return forwardTransitions[s][next]
}

// RollbackTarget returns where a discovery rejection sends s, if anywhere.
func (s RegistrationStatus) RollbackTarget() (RegistrationStatus, bool) {
	target, ok := rollbackTransitions[s]
	return target, ok
}

// IsAtLeast reports whether s is at or beyond other in the forward order.
func (s RegistrationStatus) IsAtLeast(other RegistrationStatus) bool {
	a, okA := statusRank[s]
	b, okB := statusRank[other]
	return okA && okB && a >= b
}

func (s RegistrationStatus) String() string {
	return string(s)
}

// Registration is one student's enrollment into one offer.
//
// Invariants:
//   - Status only moves along forwardTransitions, except the discovery
//     rollback AWAITING_DISCOVERY_APPROVAL -> DOCUMENTS_UPLOADED
//   - PartnerID is nil for direct enrollments (single-tier review)
type Registration struct {
	ID             id.RegistrationID  `json:"id"`
	UserID         id.UserID          `json:"user_id"`
	PartnerID      *id.PartnerID      `json:"partner_id,omitempty"`
	OfferType      OfferType          `json:"offer_type"`
	CourseName     string             `json:"course_name"`
	Status         RegistrationStatus `json:"status"`
	OriginalAmount int64              `json:"original_amount"`
	FinalAmount    int64              `json:"final_amount"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// IsPartnerManaged reports whether documents go through partner-level review.
func (r *Registration) IsPartnerManaged() bool {
	return r.PartnerID != nil && !r.PartnerID.IsNil()
}

// ManagedBy reports whether partnerID is the registration's partner.
func (r *Registration) ManagedBy(partnerID id.PartnerID) bool {
	return r.IsPartnerManaged() && *r.PartnerID == partnerID
}
