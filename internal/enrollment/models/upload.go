package models

import (
	"io"
	"strings"

	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
)

// MaxUploadSize bounds a single document upload.
const MaxUploadSize = 20 << 20

var allowedMimeTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
	"image/heic":      {},
}

// UploadRequest carries one file into the record manager.
type UploadRequest struct {
	UserID         id.UserID
	RegistrationID *id.RegistrationID
	Type           DocumentType
	FileName       string
	MimeType       string
	Size           int64
	Content        io.Reader
	Source         UploadSource
}

// Validate checks the request shape. It never touches storage.
func (r *UploadRequest) Validate() error {
	if r.UserID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user ID is required")
	}
	if r.Content == nil || r.Size <= 0 {
		return dErrors.New(dErrors.CodeValidation, "file is required")
	}
	if r.Size > MaxUploadSize {
		return dErrors.New(dErrors.CodeValidation, "file exceeds maximum upload size")
	}
	if !r.Type.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown document type: "+string(r.Type))
	}
	if _, ok := allowedMimeTypes[normalizeMimeType(r.MimeType)]; !ok {
		return dErrors.New(dErrors.CodeValidation, "unsupported file type: "+r.MimeType)
	}
	if strings.TrimSpace(r.FileName) == "" {
		return dErrors.New(dErrors.CodeValidation, "file name is required")
	}
	if r.Source != "" && !r.Source.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown upload source: "+string(r.Source))
	}
	return nil
}

// Normalize trims user-provided strings and fills defaults.
func (r *UploadRequest) Normalize() {
	r.FileName = strings.TrimSpace(r.FileName)
	r.MimeType = normalizeMimeType(r.MimeType)
	if r.Source == "" {
		r.Source = SourceStudentPortal
	}
}

func normalizeMimeType(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}
