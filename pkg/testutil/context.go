package testutil

import (
	"net/http"

	id "dossier/pkg/domain"
	"dossier/pkg/requestcontext"
)

// AsUser puts the identity the auth middleware would have extracted from a
// token onto the request. A nil partnerID leaves the caller unaffiliated.
func AsUser(req *http.Request, userID id.UserID, role string, partnerID *id.PartnerID) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithRole(ctx, role)
	if partnerID != nil {
		ctx = requestcontext.WithPartnerID(ctx, *partnerID)
	}
	return req.WithContext(ctx)
}

// WithRequestID tags the request the way the request-id middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
