package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redisclient "github.com/dvellmar/storeratings-backend/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

const revokedMarker = "revoked"

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type sessionKeyer interface {
	RevokedTokenKey(tokenID string) string
}

// Manager tracks revoked access tokens so logout invalidates a token before it
// expires. Entries carry a TTL equal to the remaining token lifetime, so the
// denylist never outlives the tokens it guards.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
}

// RevocationChecker exposes the read-only surface needed by middleware.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// NewManager constructs a revocation manager backed by Redis.
func NewManager(client *redisclient.Client) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Manager{store: client, keyer: client}, nil
}

// Revoke records the token ID until the token would have expired anyway.
func (m *Manager) Revoke(ctx context.Context, tokenID string, remaining time.Duration) error {
	if strings.TrimSpace(tokenID) == "" {
		return fmt.Errorf("token id is required")
	}
	if remaining <= 0 {
		// Already expired; nothing to deny.
		return nil
	}
	return m.store.Set(ctx, m.keyer.RevokedTokenKey(tokenID), revokedMarker, remaining)
}

// IsRevoked reports whether the token ID has been revoked.
func (m *Manager) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if strings.TrimSpace(tokenID) == "" {
		return false, nil
	}
	_, err := m.store.Get(ctx, m.keyer.RevokedTokenKey(tokenID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
