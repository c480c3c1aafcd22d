package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cardiolab/ecg-engine/pkg/apperrors"
)

// Middleware provides HTTP authorization gates. It is thin and delegates
// token verification and user resolution to Service. Endpoints pick the gate
// matching their required role:
//
//	RequireUser     — any valid user
//	RequireNonAdmin — valid user with is_admin false
//	RequireAdmin    — valid user with is_admin true
//	RequireRefresh  — valid refresh token (refresh key, not access key)
type Middleware struct {
	authService Service
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given Service.
func NewMiddleware(authService Service, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireUser admits any user carrying a valid access token.
func (m *Middleware) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return m.gate(TokenAccess, func(isAdmin bool) bool { return true }, next)
}

// RequireNonAdmin admits only non-admin users. Admins receive 403.
func (m *Middleware) RequireNonAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.gate(TokenAccess, func(isAdmin bool) bool { return !isAdmin }, next)
}

// RequireAdmin admits only admin users. Non-admins receive 403.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.gate(TokenAccess, func(isAdmin bool) bool { return isAdmin }, next)
}

// RequireRefresh admits requests carrying a valid refresh token. An access
// token presented here fails signature verification against the refresh key.
func (m *Middleware) RequireRefresh(next http.HandlerFunc) http.HandlerFunc {
	return m.gate(TokenRefresh, func(isAdmin bool) bool { return true }, next)
}

func (m *Middleware) gate(role TokenRole, admit func(isAdmin bool) bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authService.Authenticate(r, role)
		if err != nil {
			m.writeAuthError(w, err)
			return
		}

		if !admit(user.IsAdmin) {
			m.writeError(w, http.StatusForbidden, "forbidden", "Insufficient privileges")
			return
		}

		next(w, r.WithContext(WithUser(r.Context(), user)))
	}
}

// writeAuthError maps authentication failures to their HTTP status:
// expired or absent credentials are 401, malformed or forged tokens are 403,
// and a subject with no user record is 404.
func (m *Middleware) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrTokenExpired):
		m.writeError(w, http.StatusUnauthorized, "token_expired", "Token expired")
	case errors.Is(err, ErrMissingAuthorization), errors.Is(err, ErrInvalidAuthFormat):
		m.writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		m.writeError(w, http.StatusForbidden, "invalid_token", "Could not validate credentials")
	case errors.Is(err, apperrors.ErrUserNotFound):
		m.writeError(w, http.StatusNotFound, "user_not_found", "Could not find user")
	default:
		m.logger.Error("Authentication failed", zap.Error(err))
		m.writeError(w, http.StatusInternalServerError, "auth_failed", "Authentication failed")
	}
}

func (m *Middleware) writeError(w http.ResponseWriter, status int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
