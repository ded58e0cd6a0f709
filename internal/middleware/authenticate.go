package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/apierr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/response"
)

// AccessTokenCookie is the cookie carrying the access token.
const AccessTokenCookie = "accessToken"

// Authenticator resolves the user behind an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// Authenticate attaches the caller to the request context. When required is false, anonymous or
// invalid credentials pass through without a user.
func Authenticate(authenticator Authenticator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := accessToken(r)

			if token == "" {
				if required {
					response.Error(ctx, w, apierr.Auth("Unauthorized request"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			user, err := authenticator.Authenticate(ctx, token)
			switch {
			case err == nil:
				ctx = auth.WithUser(ctx, user)
				ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", user.ID.Hex()))
				next.ServeHTTP(w, r.WithContext(ctx))
			case errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenExpired):
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				response.Error(ctx, w, apierr.Auth("Invalid access token"))
			default:
				response.Error(ctx, w, apierr.Internal("", err))
			}
		})
	}
}

func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// Chain applies middlewares so that the first one listed runs outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
