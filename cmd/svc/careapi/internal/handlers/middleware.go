// Package handlers contains the HTTP handlers for the care API service.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/auth"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/httputil"
)

type accountContextKey struct{}

// WithAccount attaches the authenticated account to the context.
func WithAccount(ctx context.Context, account *models.Account) context.Context {
	return context.WithValue(ctx, accountContextKey{}, account)
}

// AccountFromContext returns the authenticated account, or nil.
func AccountFromContext(ctx context.Context) *models.Account {
	account, _ := ctx.Value(accountContextKey{}).(*models.Account)
	return account
}

// Authenticator resolves a session token to an account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Account, error)
}

// AuthRequired wraps h to require a Bearer session token, attaching the
// account to the request context.
func AuthRequired(h http.Handler, authSvc Authenticator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httputil.JSONError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		account, err := authSvc.Authenticate(r.Context(), token)
		if errors.Cause(err) == auth.ErrBadToken {
			httputil.JSONError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		} else if err != nil {
			httputil.JSONInternalError(w, err)
			return
		}
		h.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
	})
}

// clientAddr returns the address of the client that made the request,
// preferring the first X-Forwarded-For entry when behind a proxy.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	return r.RemoteAddr
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
