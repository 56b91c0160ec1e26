package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/service"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// Principal represents the authenticated identity making the request.
type Principal struct {
	Type       string // "admin" or "api_key"
	AdminID    string
	Credential *model.Credential
	IsAdmin    bool
}

// ErrorWriter renders an error response. The handler package supplies it so
// that auth failures use the same envelope as every other error.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// bearerToken returns the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

// APIKeyFromRequest returns the raw API key carried by r: the X-API-Key
// header, or else a bearer token.
func APIKeyFromRequest(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return bearerToken(r)
}

// AuthenticateKey returns an HTTP middleware that resolves the request's API
// key to a credential. A request without a key is refused with
// no-credentials; an unknown or expired key with invalid-credentials.
func AuthenticateKey(authSvc *service.AuthService, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := APIKeyFromRequest(r)
			if rawKey == "" {
				writeErr(w, r, apierr.New(apierr.NoCredentials))
				return
			}

			cred, err := authSvc.ValidateAPIKey(r.Context(), rawKey)
			if err != nil {
				writeErr(w, r, apierr.Wrap(apierr.InvalidCredentials, err))
				return
			}

			principal := &Principal{Type: "api_key", Credential: cred}
			reportPrincipal(r.Context(), principal)
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticateAdmin returns an HTTP middleware that requires an admin JWT
// bearer token.
func AuthenticateAdmin(authSvc *service.AuthService, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeErr(w, r, apierr.New(apierr.NoCredentials))
				return
			}

			p, err := authSvc.ValidateJWT(r.Context(), token)
			if err != nil {
				writeErr(w, r, apierr.Wrap(apierr.InvalidCredentials, err))
				return
			}

			principal := &Principal{Type: "admin", AdminID: p.AdminID, IsAdmin: true}
			reportPrincipal(r.Context(), principal)
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns an HTTP middleware that enforces admin-level access.
// It must be used after AuthenticateAdmin in the middleware chain.
func RequireAdmin(writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil || !principal.IsAdmin {
				writeErr(w, r, apierr.New(apierr.AdminRequired))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

// GetCredential returns the API key credential of the request, or nil.
func GetCredential(ctx context.Context) *model.Credential {
	if p := GetPrincipal(ctx); p != nil {
		return p.Credential
	}
	return nil
}
