// Package ratelimit bounds how often one caller may hit an expensive endpoint,
// using a sliding window so bursts at a window boundary are still counted.
package ratelimit

import (
	"context"
	"time"
)

// Limit is a request budget per sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Enabled reports whether the limit should be enforced.
func (l Limit) Enabled() bool { return l.Requests > 0 && l.Window > 0 }

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until a slot frees up, at least one.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// Store counts requests per key.
type Store interface {
	Allow(ctx context.Context, key string, limit Limit) (Result, error)
}

// Key scopes a limit to one caller on one endpoint class.
func Key(scope, subject string) string {
	return "rl:" + scope + ":" + subject
}
