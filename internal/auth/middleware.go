package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/game-marketplace/internal/apperror"
	"github.com/sakif/game-marketplace/internal/model"
)

// TokenHeader carries the session token issued by POST /users/login.
const TokenHeader = "X-Authorization"

// contextKey is unexported so only this package can set or read the
// authenticated user on a context.
type contextKey string

const userKey contextKey = "user"

// UserResolver looks up the user holding a session token.
// repository.UserRepository satisfies it.
type UserResolver interface {
	GetByToken(ctx context.Context, token string) (*model.User, error)
}

// OptionalAuth resolves the X-Authorization header, when present, and
// stores the user on the request context. Requests without a header, or
// with a token that matches nobody, continue anonymously. Handlers decide
// whether anonymous is acceptable, after validating their input.
func OptionalAuth(users UserResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetByToken(r.Context(), token)
			switch {
			case err == nil:
				r = r.WithContext(WithUser(r.Context(), user))
			case errors.Is(err, apperror.ErrNotFound):
				// stale or forged token: treat as anonymous
			default:
				logger.Error("resolving auth token", slog.String("error", err.Error()))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests with 401. It must run after
// OptionalAuth. Use it on routes that have nothing to validate before
// the auth check.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or (nil, false) for an
// anonymous request.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
