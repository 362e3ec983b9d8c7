// Package middleware authenticates requests. Agents present API keys,
// humans present session tokens; both resolve to a Caller in request context.
package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/moltmarket/backend/internal/models"
	"github.com/moltmarket/backend/internal/repository"
)

type contextKey string

const ctxCallerKey contextKey = "caller"

// Caller identifies the authenticated party. Exactly one of Agent or User
// is set.
type Caller struct {
	Agent *models.Agent
	User  *models.User
}

func (c *Caller) IsAgent() bool { return c != nil && c.Agent != nil }
func (c *Caller) IsUser() bool  { return c != nil && c.User != nil }

// APIKeyRepo is the interface used by API key auth.
type APIKeyRepo interface {
	FindByKeyHash(ctx context.Context, keyHash string) (*repository.APIKeyWithAgent, error)
}

// TokenValidator checks a session token and returns the user ID it names.
type TokenValidator interface {
	ValidateToken(token string) (uuid.UUID, error)
}

// UserLookup resolves the user behind a valid session token.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AgentAuth authenticates requests by hashing the Bearer token (SHA-256)
// and looking it up in api_keys. On success it sets the agent as the caller.
func AgentAuth(keys APIKeyRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				unauthorized(w, "missing or malformed Authorization header")
				return
			}
			result, err := keys.FindByKeyHash(r.Context(), hashKey(raw))
			if err != nil {
				unauthorized(w, "invalid api key")
				return
			}
			ctx := WithCaller(r.Context(), &Caller{Agent: &result.Agent})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionAuth authenticates requests by validating the Bearer token as a
// session JWT. On success it sets the user as the caller.
func SessionAuth(tokens TokenValidator, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				unauthorized(w, "missing or malformed Authorization header")
				return
			}
			userID, err := tokens.ValidateToken(raw)
			if err != nil {
				unauthorized(w, "invalid session token")
				return
			}
			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				unauthorized(w, "invalid session token")
				return
			}
			ctx := WithCaller(r.Context(), &Caller{User: user})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EitherAuth tries API key auth first, then session auth. Used on routes
// both kinds of caller may hit.
func EitherAuth(keys APIKeyRepo, tokens TokenValidator, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				unauthorized(w, "missing or malformed Authorization header")
				return
			}
			if result, err := keys.FindByKeyHash(r.Context(), hashKey(raw)); err == nil {
				ctx := WithCaller(r.Context(), &Caller{Agent: &result.Agent})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			userID, err := tokens.ValidateToken(raw)
			if err != nil {
				unauthorized(w, "invalid credentials")
				return
			}
			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				unauthorized(w, "invalid credentials")
				return
			}
			ctx := WithCaller(r.Context(), &Caller{User: user})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves a caller when credentials are present but never
// rejects the request. Routes that are public for anonymous callers yet
// restricted for agents use this.
func OptionalAuth(keys APIKeyRepo, tokens TokenValidator, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			if result, err := keys.FindByKeyHash(r.Context(), hashKey(raw)); err == nil {
				next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), &Caller{Agent: &result.Agent})))
				return
			}
			if userID, err := tokens.ValidateToken(raw); err == nil {
				if user, err := users.GetByID(r.Context(), userID); err == nil {
					next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), &Caller{User: user})))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CallerFromCtx returns the authenticated caller or nil.
func CallerFromCtx(ctx context.Context) *Caller {
	c, _ := ctx.Value(ctxCallerKey).(*Caller)
	return c
}

// WithCaller returns a context carrying the given caller.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, ctxCallerKey, c)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"error":"unauthorized","message":"` + msg + `"}`))
}
