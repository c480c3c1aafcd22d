package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardiolab/ecg-engine/pkg/apperrors"
	"github.com/cardiolab/ecg-engine/pkg/crypto"
	"github.com/cardiolab/ecg-engine/pkg/models"
)

// mockUserRepo is an in-memory UserRepository keyed by email.
type mockUserRepo struct {
	users     map[string]*models.User
	createErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{}}
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.users[user.Email]; exists {
		return apperrors.ErrDuplicateEmail
	}
	user.ID = uuid.New()
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockUserRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	for _, u := range m.users {
		if u.ID == id {
			u.IsActive = active
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for email, u := range m.users {
		if u.ID == id {
			delete(m.users, email)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func TestUserService_Register(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, zap.NewNop())

	user, err := svc.Register(context.Background(), "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("expected user to get an id")
	}
	if !user.IsActive {
		t.Error("expected new user to be active")
	}
	if user.IsAdmin {
		t.Error("expected new user to be non-admin")
	}
	if user.PasswordHash == "s3cret" {
		t.Error("password stored in plaintext")
	}
	if !crypto.VerifyPassword("s3cret", user.PasswordHash) {
		t.Error("stored hash does not verify against the password")
	}
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, zap.NewNop())

	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice@example.com", "s3cret"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Register(ctx, "alice@example.com", "other"); !errors.Is(err, apperrors.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserService_Register_EmptyFields(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "s3cret"); !apperrors.IsValidation(err) {
		t.Errorf("expected validation error for empty email, got %v", err)
	}
	if _, err := svc.Register(ctx, "alice@example.com", ""); !apperrors.IsValidation(err) {
		t.Errorf("expected validation error for empty password, got %v", err)
	}
}

func TestUserService_Authenticate(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, zap.NewNop())
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, err := svc.Authenticate(ctx, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("expected user %s, got %s", registered.ID, user.ID)
	}
}

func TestUserService_Authenticate_InvalidCredentials(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "s3cret"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// An unknown email and a wrong password must be indistinguishable.
	if _, err := svc.Authenticate(ctx, "ghost@example.com", "s3cret"); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "alice@example.com", "wrong"); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUserService_Authenticate_InactiveUser(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, zap.NewNop())
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := repo.SetActive(ctx, user.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "alice@example.com", "s3cret"); !errors.Is(err, apperrors.ErrInactiveUser) {
		t.Errorf("expected ErrInactiveUser, got %v", err)
	}

	// Wrong password on an inactive account still reads as bad credentials,
	// not as an account-state disclosure.
	if _, err := svc.Authenticate(ctx, "alice@example.com", "wrong"); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}
