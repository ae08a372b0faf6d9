package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dvellmar/storeratings-backend/api/responses"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy bounds how often a single IP or account email may hit a
// credential endpoint within a fixed window. A zero window or all-zero limits
// disable the policy.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{
		name:       name,
		window:     window,
		ipLimit:    ipLimit,
		emailLimit: emailLimit,
	}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// AuthRateLimit counts attempts per client IP and per (hashed) submitted
// email. The email hash keeps raw addresses out of redis keys.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.ipLimit > 0 {
				if ip := clientIP(r); ip != "" {
					if checkCounter(ctx, logg, w, store, policy, "ip", "rl:ip:"+policy.name+":"+ip, policy.ipLimit) {
						return
					}
				}
			}

			if policy.emailLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
					return
				}
				// Downstream decoding needs the body back.
				r.Body = io.NopCloser(bytes.NewReader(body))

				if email := submittedEmail(body); email != "" {
					sum := sha256.Sum256([]byte(email))
					key := "rl:email:" + policy.name + ":" + hex.EncodeToString(sum[:])
					if checkCounter(ctx, logg, w, store, policy, "email", key, policy.emailLimit) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkCounter bumps one fixed-window counter. done reports that a response
// was already written and the request must not continue.
func checkCounter(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store rateLimiterStore, policy AuthRateLimitPolicy, scope, key string, limit int) (done bool) {
	count, err := store.IncrWithTTL(ctx, key, policy.window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return true
	}
	if count <= int64(limit) {
		return false
	}

	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"scope":          scope,
			"policy":         policy.name,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		})
		logg.Warn(logCtx, "auth.rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	return true
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for _, part := range strings.Split(forwarded, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func submittedEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}
