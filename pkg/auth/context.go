package auth

import (
	"context"
	"fmt"

	"github.com/cardiolab/ecg-engine/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// UserKey is the context key for storing the authenticated user.
const UserKey contextKey = "user"

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser retrieves the authenticated user from the request context.
// Returns nil and false if no user is present.
func GetUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserKey).(*models.User)
	return user, ok
}

// RequireUser extracts the authenticated user from context and returns an
// error if it is missing. Use in services that must not run unauthenticated.
func RequireUser(ctx context.Context) (*models.User, error) {
	user, ok := GetUser(ctx)
	if !ok || user == nil {
		return nil, fmt.Errorf("authentication required: no user in context")
	}
	return user, nil
}
