// Package service is the document record manager and progression engine
// orchestration: it loads state, applies the rules in models and progression,
// persists inside a transaction and then runs best-effort side effects
// (action log, audit, notification), each caught on its own.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/mssola/useragent"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dossier/internal/enrollment/metrics"
	"dossier/internal/enrollment/models"
	"dossier/internal/notify"
	"dossier/pkg/attrs"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/audit"
	"dossier/pkg/platform/sentinel"
	"dossier/pkg/requestcontext"
)

const defaultDownloadTTL = 15 * time.Minute

// Service orchestrates document review and registration progression.
type Service struct {
	stores    Stores
	tx        StoreTx
	directory Directory
	blobs     BlobStore
	notifier  Notifier

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	downloadTTL    time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithDownloadTTL sets how long signed download URLs stay valid.
func WithDownloadTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.downloadTTL = ttl
		}
	}
}

// New constructs a Service. stores is used for reads and for writes that sit
// outside a transaction (action log entries); tx wraps every multi-row mutation.
func New(stores Stores, tx StoreTx, directory Directory, blobs BlobStore, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		stores:      stores,
		tx:          tx,
		directory:   directory,
		blobs:       blobs,
		notifier:    notifier,
		logger:      slog.Default(),
		tracer:      otel.Tracer("dossier/enrollment"),
		downloadTTL: defaultDownloadTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, op string, kv ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "enrollment."+op, trace.WithAttributes(kv...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// loadRegistration and loadDocument translate store errors. find is a plain or
// a ForUpdate read.
func loadRegistration(ctx context.Context, find func(context.Context, id.RegistrationID) (*models.Registration, error), registrationID id.RegistrationID) (*models.Registration, error) {
	reg, err := find(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return reg, nil
}

func loadDocument(ctx context.Context, find func(context.Context, id.DocumentID) (*models.UserDocument, error), documentID id.DocumentID) (*models.UserDocument, error) {
	doc, err := find(ctx, documentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	return doc, nil
}

// registrationOf loads the registration a document is filed under. Documents
// uploaded before a registration existed cannot be reviewed.
func registrationOf(ctx context.Context, registrations RegistrationStore, doc *models.UserDocument) (*models.Registration, error) {
	if doc.RegistrationID == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "document is not attached to a registration")
	}
	return loadRegistration(ctx, registrations.FindByID, *doc.RegistrationID)
}

// recordAction appends to the action log. Failures are logged and returned so
// the caller can surface a warning; they never undo the primary action.
func (s *Service) recordAction(ctx context.Context, entry *models.ActionLog) error {
	if err := s.stores.ActionLogs.Append(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "failed to record document action",
			"document_id", entry.DocumentID.String(),
			"action", string(entry.Action),
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncrementActionLogFailure()
		}
		return err
	}
	return nil
}

func (s *Service) notifyStudent(ctx context.Context, kind notify.Kind, userID id.UserID, payload map[string]string) bool {
	student, err := s.directory.FindStudent(ctx, userID)
	if err != nil {
		s.notificationFailed(ctx, kind, err, "user_id", userID.String())
		return false
	}
	if payload == nil {
		payload = map[string]string{}
	}
	payload["full_name"] = student.FullName
	return s.send(ctx, kind, student.Email, payload)
}

func (s *Service) notifyPartner(ctx context.Context, kind notify.Kind, partnerID id.PartnerID, payload map[string]string) bool {
	partner, err := s.directory.FindPartner(ctx, partnerID)
	if err != nil {
		s.notificationFailed(ctx, kind, err, "partner_id", partnerID.String())
		return false
	}
	return s.send(ctx, kind, partner.ContactEmail, payload)
}

func (s *Service) send(ctx context.Context, kind notify.Kind, recipient string, payload map[string]string) bool {
	if err := s.notifier.Send(ctx, kind, recipient, payload); err != nil {
		s.notificationFailed(ctx, kind, err)
		return false
	}
	return true
}

func (s *Service) notificationFailed(ctx context.Context, kind notify.Kind, err error, attributes ...any) {
	args := append([]any{"kind", string(kind), "error", err}, attributes...)
	s.logger.WarnContext(ctx, "notification not sent", args...)
	if s.metrics != nil {
		s.metrics.IncrementNotificationFailure(string(kind))
	}
}

// logAudit logs the event and forwards it to the audit publisher. A publisher
// failure is logged and returned for the caller's warnings.
func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) error {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	s.logger.InfoContext(ctx, string(event), args...)
	if s.auditPublisher == nil {
		return nil
	}

	userID, _ := id.ParseUserID(attrs.String(attributes, "user_id"))
	subject := attrs.First(attributes, "document_id", "registration_id")
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Category:  event.Category(),
		Timestamp: requestcontext.Now(ctx),
		UserID:    userID,
		Subject:   subject,
		Action:    string(event),
		Decision:  attrs.String(attributes, "decision"),
		Reason:    attrs.String(attributes, "reason"),
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   attrs.String(attributes, "actor_id"),
		ActorRole: attrs.String(attributes, "actor_role"),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event", "event", string(event), "error", err)
	}
	return err
}

func actorAttrs(actor models.Actor) []any {
	return []any{"actor_id", actor.UserID.String(), "actor_role", string(actor.Role)}
}

// clientDetails adds the caller's IP and parsed User-Agent to action details.
func clientDetails(ctx context.Context, details map[string]string) map[string]string {
	if details == nil {
		details = map[string]string{}
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		details["client_ip"] = ip
	}
	if raw := requestcontext.UserAgent(ctx); raw != "" {
		ua := useragent.New(raw)
		name, version := ua.Browser()
		if name != "" {
			details["browser"] = name + " " + version
		}
		if os := ua.OS(); os != "" {
			details["os"] = os
		}
		details["mobile"] = strconv.FormatBool(ua.Mobile())
	}
	return details
}
