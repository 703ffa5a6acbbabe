package metadata

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"dossier/pkg/requestcontext"
)

// maxUserAgent bounds what ends up in action log rows.
const maxUserAgent = 512

// ClientMetadata records the caller's address and User-Agent for the action log.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		if len(ua) > maxUserAgent {
			ua = ua[:maxUserAgent]
		}
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIP(r), ua)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the first parseable address among the leftmost
// X-Forwarded-For entry, X-Real-IP and the connection's remote address.
// Unparseable header values are skipped rather than trusted.
func ClientIP(r *http.Request) string {
	candidates := make([]string, 0, 3)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		candidates = append(candidates, first)
	}
	candidates = append(candidates, r.Header.Get("X-Real-IP"))
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	candidates = append(candidates, host)

	for _, c := range candidates {
		if addr, err := netip.ParseAddr(strings.TrimSpace(c)); err == nil {
			return addr.Unmap().String()
		}
	}
	return "unknown"
}
