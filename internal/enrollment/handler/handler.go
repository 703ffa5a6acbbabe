package handler

//go:generate mockgen -destination=mocks/mocks.go -package=mocks dossier/internal/enrollment/handler Service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"dossier/internal/enrollment/models"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/httputil"
	"dossier/pkg/requestcontext"
)

// multipartMemory is how much of an upload is buffered before spilling to disk.
const multipartMemory = 4 << 20

// Service is the enrollment service as seen by the HTTP layer.
type Service interface {
	GetRequiredDocuments(offer models.OfferType) []models.RequiredDocument
	GetChecklist(ctx context.Context, registrationID id.RegistrationID, actor models.Actor) (*models.Checklist, error)
	EvaluateProgression(ctx context.Context, registrationID id.RegistrationID) (*models.ProgressionOutcome, error)
	UploadDocument(ctx context.Context, actor models.Actor, req *models.UploadRequest) (*models.UploadResult, error)
	DeleteDocument(ctx context.Context, documentID id.DocumentID, actor models.Actor) error
	GetDownloadURL(ctx context.Context, documentID id.DocumentID, actor models.Actor) (*models.DownloadLink, error)
	ListDocumentActions(ctx context.Context, documentID id.DocumentID, actor models.Actor) ([]*models.ActionLog, error)
	ApproveDocument(ctx context.Context, documentID id.DocumentID, actor models.Actor, notes string) (*models.ReviewResult, error)
	RejectDocument(ctx context.Context, documentID id.DocumentID, actor models.Actor, reason, details string) (*models.ReviewResult, error)
	BulkApproveRegistration(ctx context.Context, registrationID id.RegistrationID, actor models.Actor, notes string) (*models.BulkReviewResult, error)
	BulkRejectRegistration(ctx context.Context, registrationID id.RegistrationID, actor models.Actor, reason string) (*models.BulkReviewResult, error)
	RecordPayment(ctx context.Context, deadlineID id.DeadlineID, actor models.Actor) (*models.PaymentResult, error)
}

// Handler wires enrollment endpoints to the service. Every route expects the
// auth middleware to have populated the caller in the request context.
type Handler struct {
	service       Service
	logger        *slog.Logger
	uploadLimit   []func(http.Handler) http.Handler
	downloadLimit []func(http.Handler) http.Handler
}

// Option customises a Handler.
type Option func(*Handler)

// WithUploadMiddleware wraps only the upload route, typically with a rate limiter.
func WithUploadMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.uploadLimit = append(h.uploadLimit, mw...) }
}

// WithDownloadMiddleware wraps only the download link route.
func WithDownloadMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.downloadLimit = append(h.downloadLimit, mw...) }
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts enrollment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/offers/{offerType}/required-documents", h.HandleRequiredDocuments)

	r.Route("/registrations/{registrationID}", func(r chi.Router) {
		r.Get("/checklist", h.HandleChecklist)
		r.Post("/evaluate", h.HandleEvaluate)
		r.With(h.uploadLimit...).Post("/documents", h.HandleUpload)
		r.Post("/approve", h.HandleBulkApprove)
		r.Post("/reject", h.HandleBulkReject)
	})

	r.Route("/documents/{documentID}", func(r chi.Router) {
		r.Delete("/", h.HandleDelete)
		r.Post("/approve", h.HandleApprove)
		r.Post("/reject", h.HandleReject)
		r.With(h.downloadLimit...).Get("/download-url", h.HandleDownloadURL)
		r.Get("/actions", h.HandleActions)
	})

	r.Post("/payment-deadlines/{deadlineID}/paid", h.HandleRecordPayment)
}

// actorFrom builds the caller from the auth context.
func actorFrom(ctx context.Context) (models.Actor, error) {
	userID := requestcontext.UserID(ctx)
	role := models.Role(requestcontext.Role(ctx))
	if userID.IsNil() || !role.IsValid() || role == models.RoleSystem {
		return models.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	actor := models.Actor{UserID: userID, Role: role}
	if partnerID, ok := requestcontext.PartnerID(ctx); ok {
		actor.PartnerID = &partnerID
	}
	return actor, nil
}

// begin resolves the caller or writes the error and returns ok=false.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, err := actorFrom(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return models.Actor{}, false
	}
	return actor, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	attrs := []any{"request_id", requestcontext.RequestID(ctx), "error", err}
	if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.CodeOf(err) == dErrors.CodeDependencyFailure {
		h.logger.ErrorContext(ctx, op+" failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, op+" rejected", attrs...)
	}
	httputil.WriteError(w, err)
}

func registrationParam(r *http.Request) (id.RegistrationID, error) {
	return id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
}

func documentParam(r *http.Request) (id.DocumentID, error) {
	return id.ParseDocumentID(chi.URLParam(r, "documentID"))
}

// HandleRequiredDocuments handles GET /offers/{offerType}/required-documents.
func (h *Handler) HandleRequiredDocuments(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.begin(w, r); !ok {
		return
	}
	offer := models.OfferType(chi.URLParam(r, "offerType"))
	httputil.WriteJSON(w, http.StatusOK, RequiredDocumentsResponse{
		OfferType: offer,
		Documents: h.service.GetRequiredDocuments(offer),
	})
}

// HandleChecklist handles GET /registrations/{registrationID}/checklist.
func (h *Handler) HandleChecklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	registrationID, err := registrationParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	checklist, err := h.service.GetChecklist(ctx, registrationID, actor)
	if err != nil {
		h.fail(ctx, w, "checklist", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, checklist)
}

// HandleEvaluate handles POST /registrations/{registrationID}/evaluate. The
// evaluation is idempotent and exposed to staff for manual retries.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "only administrators may trigger evaluation"))
		return
	}
	registrationID, err := registrationParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	outcome, err := h.service.EvaluateProgression(ctx, registrationID)
	if err != nil {
		h.fail(ctx, w, "evaluate progression", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, outcome)
}

// HandleUpload handles POST /registrations/{registrationID}/documents as
// multipart/form-data with a "file" part.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	registrationID, err := registrationParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, models.MaxUploadSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "file exceeds maximum upload size"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart body"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	form := UploadForm{
		Type:   r.FormValue("type"),
		UserID: r.FormValue("user_id"),
		Source: r.FormValue("source"),
	}
	if err := httputil.Prepare(&form); err != nil {
		httputil.WriteError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "file is required"))
		return
	}
	defer file.Close()

	contentType, err := sniffContentType(file)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable file part"))
		return
	}

	req := form.ToRequest(actor, registrationID)
	req.FileName = header.Filename
	req.MimeType = contentType
	req.Size = header.Size
	req.Content = file

	result, err := h.service.UploadDocument(ctx, actor, req)
	if err != nil {
		h.fail(ctx, w, "upload document", err)
		return
	}
	h.logger.InfoContext(ctx, "document uploaded",
		"request_id", requestcontext.RequestID(ctx),
		"document_id", result.Document.ID.String(),
		"replaced", result.Replaced != nil,
	)
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// sniffContentType detects the type from the file's leading bytes and rewinds
// it. The part's declared Content-Type is ignored.
func sniffContentType(file multipart.File) (string, error) {
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return detected.String(), nil
}

// HandleDelete handles DELETE /documents/{documentID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	documentID, err := documentParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteDocument(ctx, documentID, actor); err != nil {
		h.fail(ctx, w, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleApprove handles POST /documents/{documentID}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	documentID, err := documentParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.ApproveDocument(ctx, documentID, actor, req.Notes)
	if err != nil {
		h.fail(ctx, w, "approve document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleReject handles POST /documents/{documentID}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	documentID, err := documentParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RejectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.RejectDocument(ctx, documentID, actor, req.Reason, req.Details)
	if err != nil {
		h.fail(ctx, w, "reject document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleDownloadURL handles GET /documents/{documentID}/download-url.
func (h *Handler) HandleDownloadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	documentID, err := documentParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	link, err := h.service.GetDownloadURL(ctx, documentID, actor)
	if err != nil {
		h.fail(ctx, w, "download url", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, link)
}

// HandleActions handles GET /documents/{documentID}/actions.
func (h *Handler) HandleActions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	documentID, err := documentParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.service.ListDocumentActions(ctx, documentID, actor)
	if err != nil {
		h.fail(ctx, w, "list document actions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ActionsResponse{DocumentID: documentID, Actions: entries})
}

// HandleBulkApprove handles POST /registrations/{registrationID}/approve.
func (h *Handler) HandleBulkApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	registrationID, err := registrationParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.BulkApproveRegistration(ctx, registrationID, actor, req.Notes)
	if err != nil {
		h.fail(ctx, w, "bulk approve", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleBulkReject handles POST /registrations/{registrationID}/reject.
func (h *Handler) HandleBulkReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	registrationID, err := registrationParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[BulkRejectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.BulkRejectRegistration(ctx, registrationID, actor, req.Reason)
	if err != nil {
		h.fail(ctx, w, "bulk reject", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleRecordPayment handles POST /payment-deadlines/{deadlineID}/paid.
func (h *Handler) HandleRecordPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	deadlineID, err := id.ParseDeadlineID(chi.URLParam(r, "deadlineID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.RecordPayment(ctx, deadlineID, actor)
	if err != nil {
		h.fail(ctx, w, "record payment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
