package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/httputil"
	"dossier/pkg/requestcontext"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID    id.UserID
	Role      string
	PartnerID *id.PartnerID // set only for partner staff
}

// Authenticator turns a bearer token into a Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// principal in the request context for handlers.
func RequireAuth(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				reject(ctx, w, logger, "missing bearer token", nil)
				return
			}

			principal, err := authn.Authenticate(ctx, strings.TrimSpace(token))
			if err != nil {
				reject(ctx, w, logger, "token rejected", err)
				return
			}
			if principal == nil || principal.UserID.IsNil() || principal.Role == "" {
				reject(ctx, w, logger, "token without subject or role", nil)
				return
			}

			ctx = requestcontext.WithUserID(ctx, principal.UserID)
			ctx = requestcontext.WithRole(ctx, principal.Role)
			if principal.PartnerID != nil {
				ctx = requestcontext.WithPartnerID(ctx, *principal.PartnerID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, reason string, err error) {
	attrs := []any{"request_id", requestcontext.RequestID(ctx), "reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	logger.WarnContext(ctx, "unauthenticated request", attrs...)

	message := "missing or invalid access token"
	if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
		message = dErrors.MessageOf(err)
	}
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, message))
}
