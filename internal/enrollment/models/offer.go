package models

// OfferType is the product category of an enrollment. It decides which
// documents are required before a registration can progress.
type OfferType string

const (
	OfferTFARomania    OfferType = "TFA_ROMANIA"
	OfferCertification OfferType = "CERTIFICATION"
)

// requiredDocuments is ordered; callers see the same order every time.
var requiredDocuments = map[OfferType][]DocumentType{
	OfferTFARomania: {
		DocumentIdentityCard,
		DocumentTesseraSanitaria,
		DocumentDiploma,
		DocumentBachelorDegree,
		DocumentMasterDegree,
		DocumentTranscript,
		DocumentMedicalCert,
		DocumentBirthCert,
	},
	OfferCertification: {
		DocumentIdentityCard,
		DocumentTesseraSanitaria,
	},
}

// RequiredDocumentTypes returns the document types that must all be present and
// approved before auto-advance can fire. Unknown offer types fall back to the
// CERTIFICATION set. The returned slice is a copy.
func RequiredDocumentTypes(offer OfferType) []DocumentType {
	types, ok := requiredDocuments[offer]
	if !ok {
		types = requiredDocuments[OfferCertification]
	}
	return append([]DocumentType(nil), types...)
}

// RequiredDocument is one row of the required set as exposed to clients.
type RequiredDocument struct {
	Type     DocumentType `json:"type"`
	Required bool         `json:"required"`
}

// RequiredDocumentSet is RequiredDocumentTypes shaped for the API.
func RequiredDocumentSet(offer OfferType) []RequiredDocument {
	types := RequiredDocumentTypes(offer)
	set := make([]RequiredDocument, 0, len(types))
	for _, t := range types {
		set = append(set, RequiredDocument{Type: t, Required: true})
	}
	return set
}

func (o OfferType) IsKnown() bool {
	_, ok := requiredDocuments[o]
	return ok
}

func (o OfferType) String() string {
	return string(o)
}
