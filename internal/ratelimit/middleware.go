package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"dossier/pkg/platform/httputil"
	"dossier/pkg/requestcontext"
)

type exceededResponse struct {
	Error          string    `json:"error"`
	Message        string    `json:"message"`
	QuotaLimit     int       `json:"quota_limit"`
	QuotaRemaining int       `json:"quota_remaining"`
	QuotaReset     time.Time `json:"quota_reset"`
	RetryAfter     int       `json:"retry_after"`
}

// Limiter builds per-user middleware. When the primary store errors the
// request is counted against an in-process fallback instead of being let
// through unmetered.
type Limiter struct {
	store    Store
	fallback *MemoryStore
	logger   *slog.Logger
}

func NewLimiter(store Store, logger *slog.Logger) *Limiter {
	return &Limiter{store: store, fallback: NewMemoryStore(), logger: logger}
}

// PerUser limits authenticated callers by user ID within scope. It must run
// after the auth middleware; anonymous requests are keyed by client IP.
func (l *Limiter) PerUser(scope string, limit Limit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !limit.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			subject := requestcontext.ClientIP(ctx)
			if userID := requestcontext.UserID(ctx); !userID.IsNil() {
				subject = userID.String()
			}
			key := Key(scope, subject)

			result, err := l.store.Allow(ctx, key, limit)
			if err != nil {
				l.logger.WarnContext(ctx, "rate limit store failed, using local window",
					"scope", scope,
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				result, _ = l.fallback.Allow(ctx, key, limit)
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := result.RetryAfter(time.Now())
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
					Error:          "rate_limit_exceeded",
					Message:        "You have exceeded your request quota for this operation.",
					QuotaLimit:     result.Limit,
					QuotaRemaining: result.Remaining,
					QuotaReset:     result.ResetAt,
					RetryAfter:     retryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
