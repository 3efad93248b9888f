package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/franchise-pos/api/internal/auth"
	"github.com/franchise-pos/api/internal/authz"
	"github.com/franchise-pos/api/internal/enum"
)

type contextKey string

const principalKey contextKey = "principal"

// Authenticate validates the bearer token and places the resolved
// authz.Principal in the request context. A super admin gets the
// unrestricted scope here, so no downstream code special-cases the
// role.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, parts[1])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			ctx := WithPrincipal(r.Context(), PrincipalFromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticateOptional resolves a principal when a valid bearer token
// is present and passes the request through anonymously otherwise.
// Used by endpoints that accept walk-in traffic but still attribute
// the action when a token is supplied.
func AuthenticateOptional(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				if claims, err := auth.ValidateToken(jwtSecret, parts[1]); err == nil {
					ctx := WithPrincipal(r.Context(), PrincipalFromClaims(claims))
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p authz.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromClaims builds the authorization principal for a set of
// validated claims.
func PrincipalFromClaims(claims *auth.Claims) authz.Principal {
	scope := authz.ScopeOf(claims.LocationIDs...)
	if claims.Role == enum.RoleSuperAdmin {
		scope = authz.Unrestricted()
	}
	return authz.Principal{
		ID:    claims.UserID,
		Role:  claims.Role,
		Scope: scope,
	}
}

// RequireRole allows the request through only when the authenticated
// principal holds one of the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if !p.Authenticated() {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}

			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeJSON(w, http.StatusForbidden, map[string]string{"error": string(authz.ReasonRoleNotPermitted)})
		})
	}
}

// PrincipalFromContext returns the authenticated principal, or the
// zero (unauthenticated) principal when the request carried no valid
// token.
func PrincipalFromContext(ctx context.Context) authz.Principal {
	p, _ := ctx.Value(principalKey).(authz.Principal)
	return p
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
