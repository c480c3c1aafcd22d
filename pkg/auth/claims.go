// Package auth provides JWT-based authentication for ecg-engine. Tokens come
// in two classes, access and refresh, each signed with its own key so a leaked
// key for one class cannot forge tokens of the other.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload: a subject (the user's email) plus the standard
// registered fields (exp, iat).
type Claims struct {
	jwt.RegisteredClaims
}
