// Package requestcontext carries request-scoped values (caller, client
// metadata, request ID and the pinned request time) through context.Context so
// services can read them without importing net/http.
package requestcontext

import (
	"context"
	"time"

	id "dossier/pkg/domain"
)

type key int

const (
	userIDKey key = iota
	roleKey
	partnerIDKey
	clientIPKey
	userAgentKey
	requestIDKey
	requestTimeKey
)

func value[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// UserID is the authenticated caller, or the nil ID.
func UserID(ctx context.Context) id.UserID {
	v, _ := value[id.UserID](ctx, userIDKey)
	return v
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Role is the caller's role claim, empty when unauthenticated.
func Role(ctx context.Context) string {
	v, _ := value[string](ctx, roleKey)
	return v
}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// PartnerID is the organization a partner-staff caller acts for. A nil ID
// counts as absent.
func PartnerID(ctx context.Context) (id.PartnerID, bool) {
	v, ok := value[id.PartnerID](ctx, partnerIDKey)
	return v, ok && !v.IsNil()
}

func WithPartnerID(ctx context.Context, partnerID id.PartnerID) context.Context {
	return context.WithValue(ctx, partnerIDKey, partnerID)
}

func ClientIP(ctx context.Context) string {
	v, _ := value[string](ctx, clientIPKey)
	return v
}

func UserAgent(ctx context.Context) string {
	v, _ := value[string](ctx, userAgentKey)
	return v
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, clientIP)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func RequestID(ctx context.Context) string {
	v, _ := value[string](ctx, requestIDKey)
	return v
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Now is the time pinned for this request, or the wall clock outside HTTP
// (outbox relay, tests that did not pin one).
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, requestTimeKey); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}
