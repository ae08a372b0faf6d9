package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dvellmar/storeratings-backend/api/responses"
	pkgauth "github.com/dvellmar/storeratings-backend/pkg/auth"
	"github.com/dvellmar/storeratings-backend/pkg/auth/session"
	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/logger"
)

// UserLoader resolves the account behind a token so the actor carries the
// current role rather than whatever was minted into older tokens.
type UserLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Auth validates a bearer token, rejects revoked sessions, and seeds the
// request context with the resolved actor.
func Auth(tokens *pkgauth.TokenManager, revocations session.RevocationChecker, loader UserLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r, tokens, revocations, loader, logg)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves an actor when credentials are present but lets
// anonymous requests through untouched. A present-but-invalid token is still
// rejected.
func OptionalAuth(tokens *pkgauth.TokenManager, revocations session.RevocationChecker, loader UserLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx, err := authenticate(r, tokens, revocations, loader, logg)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, tokens *pkgauth.TokenManager, revocations session.RevocationChecker, loader UserLoader, logg *logger.Logger) (context.Context, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	if revocations != nil {
		revoked, err := revocations.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if revoked {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
		}
	}

	user, err := loader.FindByID(r.Context(), claims.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "account unavailable")
	}

	actor := pkgauth.Actor{UserID: user.ID, Role: user.Role}
	ctx := WithActor(r.Context(), actor)
	ctx = WithTokenID(ctx, claims.ID)
	if claims.ExpiresAt != nil {
		ctx = WithTokenExpiry(ctx, claims.ExpiresAt.Time)
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"user_id":    actor.UserID.String(),
			"actor_role": actor.Role.String(),
		})
	}
	return ctx, nil
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
