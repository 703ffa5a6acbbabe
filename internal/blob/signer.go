package blob

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "dossier/pkg/domain-errors"
)

const downloadAudience = "blob-download"

// URLSigner issues and verifies download tokens. A token is bound to exactly
// one key through its subject claim.
type URLSigner struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewURLSigner(signingKey, issuer string) *URLSigner {
	return &URLSigner{signingKey: []byte(signingKey), issuer: issuer, now: time.Now}
}

func (s *URLSigner) Sign(key string, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   key,
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{downloadAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign download token")
	}
	return signed, nil
}

// Verify checks the token and that it was issued for key.
func (s *URLSigner) Verify(tokenString, key string) error {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithAudience(downloadAudience),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return dErrors.New(dErrors.CodeUnauthorized, "download link has expired")
		}
		return dErrors.New(dErrors.CodeUnauthorized, "invalid download token")
	}
	if !parsed.Valid || claims.Subject != key {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid download token")
	}
	return nil
}
