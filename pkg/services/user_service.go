package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cardiolab/ecg-engine/pkg/apperrors"
	"github.com/cardiolab/ecg-engine/pkg/crypto"
	"github.com/cardiolab/ecg-engine/pkg/models"
	"github.com/cardiolab/ecg-engine/pkg/repositories"
)

// UserService defines the interface for account operations.
type UserService interface {
	// Register creates a new active, non-admin user. Returns
	// apperrors.ErrDuplicateEmail if the email is taken.
	Register(ctx context.Context, email, password string) (*models.User, error)
	// Authenticate checks credentials. An unknown email and a wrong password
	// both return apperrors.ErrInvalidCredentials; a matching but deactivated
	// account returns apperrors.ErrInactiveUser.
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// userService implements UserService.
type userService struct {
	userRepo repositories.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new user service with dependencies.
func NewUserService(userRepo repositories.UserRepository, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Register hashes the credential and creates the user record.
func (s *userService) Register(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" {
		return nil, apperrors.NewValidation("email", "must not be empty")
	}
	if password == "" {
		return nil, apperrors.NewValidation("password", "must not be empty")
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash credential: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate verifies credentials against the stored hash.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.VerifyPassword(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	// Checked after the credential so a deactivated account does not probe
	// differently than a wrong password for an attacker without credentials.
	if !user.IsActive {
		return nil, apperrors.ErrInactiveUser
	}

	return user, nil
}

// Ensure userService implements UserService at compile time.
var _ UserService = (*userService)(nil)
