package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dvellmar/storeratings-backend/pkg/config"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager mints and parses the platform's HS256 access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenManager(cfg config.JWTConfig) *TokenManager {
	return &TokenManager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTokenTTL(),
	}
}

// TTL returns the configured access token lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Mint issues a signed access token for the user and returns the token string
// together with its claims (callers need the jti and expiry for revocation).
func (m *TokenManager) Mint(userID uuid.UUID) (string, *Claims, error) {
	now := time.Now().UTC()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse validates a token string and returns its claims. Expired and otherwise
// invalid tokens both map to CodeUnauthorized with distinct public messages.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "session expired")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if !token.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	if claims.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}
