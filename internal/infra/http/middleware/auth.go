package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

type ctxKey struct{}

// Authenticator turns a raw session token into a principal.
type Authenticator interface {
	Authenticate(raw string) (entity.Principal, error)
}

// SessionCookies reads and clears the token kept in the session cookie.
type SessionCookies interface {
	Token(r *http.Request) (string, error)
	Clear(w http.ResponseWriter, r *http.Request) error
}

func WithPrincipal(ctx context.Context, p entity.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (entity.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(entity.Principal)
	return p, ok
}

// Auth requires a valid session. The token comes from the Authorization
// header or, failing that, the session cookie. A bad or expired session
// clears the cookie and sends the client back to /login.
func Auth(authn Authenticator, cookies SessionCookies, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" && cookies != nil {
				if tok, err := cookies.Token(r); err == nil {
					raw = tok
				} else {
					log.Debug("unreadable session cookie", zap.Error(err))
				}
			}

			p, err := authn.Authenticate(raw)
			if err != nil {
				if cookies != nil {
					if cerr := cookies.Clear(w, r); cerr != nil {
						log.Warn("failed to clear session cookie", zap.Error(cerr))
					}
				}
				sessionExpired(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole lets the request through only for the given roles.
func RequireRole(roles ...entity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				sessionExpired(w, r)
				return
			}
			if !p.HasAnyRole(roles...) {
				if wantsHTML(r) {
					http.Redirect(w, r, "/forbidden", http.StatusSeeOther)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{
					"error":   "FORBIDDEN",
					"message": "no tiene permisos para esta acción",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionExpired(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":    "SESSION_EXPIRED",
		"redirect": "/login",
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
