package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/alubilles/membership-api/internal/domain"
)

// NewBasicAuthMiddleware guards admin routes with HTTP basic auth against a single
// administrator whose password is stored as a bcrypt hash.
//
// On success, it stores the administrator name in request context.
func NewBasicAuthMiddleware(user, passwordHash string) func(http.Handler) http.Handler {
	wantUser := []byte(user)
	hash := []byte(passwordHash)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok {
				unauthorized(w, r, "missing basic credentials")
				return
			}
			userOK := subtle.ConstantTimeCompare([]byte(u), wantUser) == 1
			// bcrypt runs even when the user does not match.
			passErr := bcrypt.CompareHashAndPassword(hash, []byte(p))
			if !userOK || passErr != nil {
				unauthorized(w, r, "invalid credentials")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), domain.AdminID(u))))
		})
	}
}

// NewDevAuthMiddleware is a local/dev-only auth shim.
//
// It accepts an explicit administrator via X-Debug-Admin and stores it in request context.
// If the header is absent, it falls back to defaultAdmin (if provided).
//
// Do NOT use this in production deployments.
func NewDevAuthMiddleware(defaultAdmin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin := strings.TrimSpace(r.Header.Get("X-Debug-Admin"))
			if admin == "" {
				admin = strings.TrimSpace(defaultAdmin)
			}
			if admin == "" {
				writeOASError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing administrator (set X-Debug-Admin)", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), domain.AdminID(admin))))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="membership-admin", charset="UTF-8"`)
	writeOASError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}
