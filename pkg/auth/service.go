package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cardiolab/ecg-engine/pkg/apperrors"
	"github.com/cardiolab/ecg-engine/pkg/models"
)

// Common authentication errors for the request-parsing stage. Both surface as
// 401 to the caller, before any token verification runs.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
)

// UserDirectory resolves a token subject to a user record. Satisfied by
// repositories.UserRepository.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service defines the interface for authenticating HTTP requests. The
// abstraction separates HTTP handling from token logic, making both easier
// to test.
type Service interface {
	// Authenticate extracts the bearer token from the request, verifies it
	// against the given role's key and resolves the subject to a user.
	// Note that the user's active flag is NOT re-checked here: a token issued
	// before deactivation stays valid until it expires.
	Authenticate(r *http.Request, role TokenRole) (*models.User, error)
}

// service implements Service.
type service struct {
	issuer *Issuer
	users  UserDirectory
	logger *zap.Logger
}

// NewService creates an auth Service backed by the given issuer and directory.
func NewService(issuer *Issuer, users UserDirectory, logger *zap.Logger) Service {
	return &service{
		issuer: issuer,
		users:  users,
		logger: logger,
	}
}

// Authenticate extracts and validates a bearer token from the request.
func (s *service) Authenticate(r *http.Request, role TokenRole) (*models.User, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		s.logger.Debug("No bearer token in request",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method))
		return nil, ErrMissingAuthorization
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		s.logger.Debug("Invalid Authorization header format",
			zap.String("path", r.URL.Path))
		return nil, ErrInvalidAuthFormat
	}

	claims, err := s.issuer.Verify(parts[1], role)
	if err != nil {
		s.logger.Debug("Token validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("role", string(role)))
		return nil, err
	}

	user, err := s.users.GetByEmail(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)
