package http

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/coach-hub/science-coach-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT IDENTITY
// ══════════════════════════════════════════════════════════════════════════════

// studentIdentity is the caller identity for student endpoints, resolved
// from trusted gateway headers.
type studentIdentity struct {
	ID   string
	Name string
}

// resolveStudent extracts the student identity from the X-Student-ID and
// X-Student-Name headers. Writes a 401 and returns false when the ID is
// missing.
func (s *Server) resolveStudent(w http.ResponseWriter, r *http.Request) (studentIdentity, bool) {
	id := strings.TrimSpace(r.Header.Get("X-Student-ID"))
	if id == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing_identity", "X-Student-ID header is required")
		return studentIdentity{}, false
	}

	return studentIdentity{
		ID:   id,
		Name: strings.TrimSpace(r.Header.Get("X-Student-Name")),
	}, true
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN API KEY
// ══════════════════════════════════════════════════════════════════════════════

// requireAdmin guards admin endpoints with the X-API-Key header, checked
// against the configured bcrypt hash. With no hash configured the whole
// admin surface is disabled.
func (s *Server) requireAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.AdminKeyHash == "" {
			writeJSONError(w, http.StatusForbidden, "admin_disabled", "Admin API is not configured")
			return
		}

		key := r.Header.Get("X-API-Key")
		if key == "" {
			// Accept "Authorization: Bearer <key>" as an alias.
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if key == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing_api_key", "X-API-Key header is required")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminKeyHash), []byte(key)); err != nil {
			s.logger.Warn("admin auth rejected",
				logger.String("ip", getClientIP(r)),
				logger.String("path", r.URL.Path),
			)
			writeJSONError(w, http.StatusUnauthorized, "invalid_api_key", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
