package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dossier/pkg/requestcontext"
)

func TestWithClock(t *testing.T) {
	frozen := time.Date(2026, 9, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	var seen time.Time
	h := WithClock(func() time.Time { return frozen })(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Now(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, frozen.Equal(seen))
	assert.Equal(t, time.UTC, seen.Location())
}

func TestMiddlewareUsesWallClock(t *testing.T) {
	var seen time.Time
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Now(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.WithinDuration(t, time.Now(), seen, time.Second)
}
