package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account in the directory. Identity (email) is immutable after
// creation; only the active and admin flags change over a user's lifetime.
// Deleting a user cascades to their ECGs, leads and analyses at the database
// level.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
