package middleware

import (
	"context"
	"time"

	pkgauth "github.com/dvellmar/storeratings-backend/pkg/auth"
)

type contextKey string

const (
	ctxActor       contextKey = "actor"
	ctxTokenID     contextKey = "token_id"
	ctxTokenExpiry contextKey = "token_expiry"
)

// ActorFromContext returns the authenticated actor, or false for anonymous
// requests.
func ActorFromContext(ctx context.Context) (pkgauth.Actor, bool) {
	if ctx == nil {
		return pkgauth.Actor{}, false
	}
	if actor, ok := ctx.Value(ctxActor).(pkgauth.Actor); ok {
		return actor, true
	}
	return pkgauth.Actor{}, false
}

// TokenIDFromContext returns the jti of the bearer token that authenticated
// the request.
func TokenIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxTokenID).(string); ok {
		return v
	}
	return ""
}

// WithActor injects an authenticated actor into the context.
func WithActor(ctx context.Context, actor pkgauth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// WithTokenID injects the bearer token id into the context.
func WithTokenID(ctx context.Context, tokenID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxTokenID, tokenID)
}

// TokenExpiryFromContext returns when the bearer token expires. The zero time
// means no token was attached.
func TokenExpiryFromContext(ctx context.Context) time.Time {
	if ctx == nil {
		return time.Time{}
	}
	if v, ok := ctx.Value(ctxTokenExpiry).(time.Time); ok {
		return v
	}
	return time.Time{}
}

// WithTokenExpiry injects the bearer token expiry into the context.
func WithTokenExpiry(ctx context.Context, expiresAt time.Time) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxTokenExpiry, expiresAt)
}
