package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cardiolab/ecg-engine/pkg/apperrors"
	"github.com/cardiolab/ecg-engine/pkg/auth"
	"github.com/cardiolab/ecg-engine/pkg/services"
)

// LoginRequest is the JSON request body for login. Form-encoded bodies with
// username/password fields (OAuth2 password-form shape) are accepted too.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the request body for registering a new user.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries the issued token pair.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// AuthHandler handles login, registration and token refresh.
type AuthHandler struct {
	userService services.UserService
	issuer      *auth.Issuer
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(userService services.UserService, issuer *auth.Issuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		issuer:      issuer,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
// Login is public; register is admin-only; refresh needs a refresh token.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.HandleFunc("POST /api/v1/auth/register", authMiddleware.RequireAdmin(h.Register))
	mux.HandleFunc("GET /api/v1/auth/refresh", authMiddleware.RequireRefresh(h.Refresh))
}

// Login handles POST /api/v1/auth/login
// Authenticates by email and password and issues an access/refresh pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email, password, ok := h.readCredentials(r)
	if !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user, err := h.userService.Authenticate(r.Context(), email, password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			err = ErrorResponse(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
		case errors.Is(err, apperrors.ErrInactiveUser):
			err = ErrorResponse(w, http.StatusBadRequest, "inactive_user", "Inactive user")
		default:
			h.logger.Error("Login failed", zap.Error(err))
			err = ErrorResponse(w, http.StatusInternalServerError, "login_failed", "Login failed")
		}
		if err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	accessToken, err := h.issuer.Issue(user.Email, auth.TokenAccess)
	if err != nil {
		h.logger.Error("Failed to issue access token", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "token_failed", "Failed to issue token")
		return
	}

	refreshToken, err := h.issuer.Issue(user.Email, auth.TokenRefresh)
	if err != nil {
		h.logger.Error("Failed to issue refresh token", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "token_failed", "Failed to issue token")
		return
	}

	response := TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode login response", zap.Error(err))
	}
}

// readCredentials accepts either a JSON body or an OAuth2-style password form.
func (h *AuthHandler) readCredentials(r *http.Request) (email, password string, ok bool) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return "", "", false
		}
		email = r.PostFormValue("username")
		password = r.PostFormValue("password")
	} else {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", "", false
		}
		email = req.Email
		password = req.Password
	}

	if email == "" || password == "" {
		return "", "", false
	}
	return email, password, true
}

// Register handles POST /api/v1/auth/register
// Creates a new account. Admin-gated: registration creates other users'
// accounts, it is not self-signup.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user, err := h.userService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrDuplicateEmail):
			err = ErrorResponse(w, http.StatusBadRequest, "duplicate_email", "Email already registered")
		case apperrors.IsValidation(err):
			err = ErrorResponse(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		default:
			h.logger.Error("Registration failed", zap.Error(err))
			err = ErrorResponse(w, http.StatusInternalServerError, "register_failed", "Failed to register user")
		}
		if err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, user); err != nil {
		h.logger.Error("Failed to encode register response", zap.Error(err))
	}
}

// Refresh handles GET /api/v1/auth/refresh
// Issues a new access token for the refresh token's subject. The active flag
// is not re-checked here; a refresh token issued before deactivation keeps
// working until it expires.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	accessToken, err := h.issuer.Issue(user.Email, auth.TokenAccess)
	if err != nil {
		h.logger.Error("Failed to issue access token", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "token_failed", "Failed to issue token")
		return
	}

	response := TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode refresh response", zap.Error(err))
	}
}
