// Package jwttoken validates the HS256 access tokens issued by the identity
// provider. The subject is the user ID; partner staff also carry partner_id.
package jwttoken

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	authmw "dossier/pkg/platform/middleware/auth"
)

const clockSkew = 30 * time.Second

type Claims struct {
	Role      string `json:"role"`
	PartnerID string `json:"partner_id,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies access tokens. It satisfies authmw.Authenticator.
type Service struct {
	key      []byte
	issuer   string
	audience string
	parser   *jwt.Parser
}

func New(signingKey, issuer, audience string) *Service {
	return &Service{
		key:      []byte(signingKey),
		issuer:   issuer,
		audience: audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// Issue signs a token for p. Production tokens come from the identity
// provider; this exists for local runs and tests.
func (s *Service) Issue(p authmw.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	if p.PartnerID != nil {
		claims.PartnerID = p.PartnerID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Parse verifies the signature and registered claims.
func (s *Service) Parse(token string) (*Claims, error) {
	var claims Claims
	_, err := s.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
	return &claims, nil
}

func (s *Service) Authenticate(_ context.Context, token string) (*authmw.Principal, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token subject is not a user ID")
	}
	p := &authmw.Principal{UserID: userID, Role: claims.Role}
	if claims.PartnerID != "" {
		partnerID, err := id.ParsePartnerID(claims.PartnerID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "malformed partner claim")
		}
		p.PartnerID = &partnerID
	}
	return p, nil
}
