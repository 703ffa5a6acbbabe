package models

// DocumentType tags an uploaded file. It is the single enumeration consumed by
// both the required-document catalog and the document record manager.
type DocumentType string

const (
	DocumentIdentityCard      DocumentType = "IDENTITY_CARD"
	DocumentTesseraSanitaria  DocumentType = "TESSERA_SANITARIA"
	DocumentDiploma           DocumentType = "DIPLOMA"
	DocumentBachelorDegree    DocumentType = "BACHELOR_DEGREE"
	DocumentMasterDegree      DocumentType = "MASTER_DEGREE"
	DocumentTranscript        DocumentType = "TRANSCRIPT"
	DocumentMedicalCert       DocumentType = "MEDICAL_CERT"
	DocumentBirthCert         DocumentType = "BIRTH_CERT"
	DocumentPassport          DocumentType = "PASSPORT"
	DocumentDrivingLicense    DocumentType = "DRIVING_LICENSE"
	DocumentResidencePermit   DocumentType = "RESIDENCE_PERMIT"
	DocumentFiscalCode        DocumentType = "FISCAL_CODE"
	DocumentPhoto             DocumentType = "PHOTO"
	DocumentCV                DocumentType = "CV"
	DocumentLanguageCert      DocumentType = "LANGUAGE_CERT"
	DocumentMarriageCert      DocumentType = "MARRIAGE_CERT"
	DocumentDiplomaSupplement DocumentType = "DIPLOMA_SUPPLEMENT"
	DocumentSignedContract    DocumentType = "SIGNED_CONTRACT"
	DocumentPaymentReceipt    DocumentType = "PAYMENT_RECEIPT"
	DocumentOther             DocumentType = "OTHER"
)

var documentTypes = map[DocumentType]struct{}{
	DocumentIdentityCard:      {},
	DocumentTesseraSanitaria:  {},
	DocumentDiploma:           {},
	DocumentBachelorDegree:    {},
	DocumentMasterDegree:      {},
	DocumentTranscript:        {},
	DocumentMedicalCert:       {},
	DocumentBirthCert:         {},
	DocumentPassport:          {},
	DocumentDrivingLicense:    {},
	DocumentResidencePermit:   {},
	DocumentFiscalCode:        {},
	DocumentPhoto:             {},
	DocumentCV:                {},
	DocumentLanguageCert:      {},
	DocumentMarriageCert:      {},
	DocumentDiplomaSupplement: {},
	DocumentSignedContract:    {},
	DocumentPaymentReceipt:    {},
	DocumentOther:             {},
}

func (t DocumentType) IsValid() bool {
	_, ok := documentTypes[t]
	return ok
}

func (t DocumentType) String() string {
	return string(t)
}
