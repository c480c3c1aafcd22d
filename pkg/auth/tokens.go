package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cardiolab/ecg-engine/pkg/apperrors"
)

// TokenRole selects the token class and, with it, the signing key and TTL.
// Modeling the class as a distinct type prevents key confusion: a call site
// cannot pass an ad hoc string where a role is expected.
type TokenRole string

const (
	TokenAccess  TokenRole = "access"
	TokenRefresh TokenRole = "refresh"
)

// Issuer signs and verifies tokens for both roles.
type Issuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer creates an Issuer from the two signing keys and their TTLs.
func NewIssuer(accessKey, refreshKey string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessKey:  []byte(accessKey),
		refreshKey: []byte(refreshKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (i *Issuer) keyAndTTL(role TokenRole) ([]byte, time.Duration, error) {
	switch role {
	case TokenAccess:
		return i.accessKey, i.accessTTL, nil
	case TokenRefresh:
		return i.refreshKey, i.refreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown token role: %s", role)
	}
}

// Issue signs a token of the given role for subject.
func (i *Issuer) Issue(subject string, role TokenRole) (string, error) {
	key, ttl, err := i.keyAndTTL(role)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token against the given role's key.
// Returns apperrors.ErrTokenExpired when the expiry has passed and
// apperrors.ErrTokenInvalid for any signature or structure failure,
// including a token signed with the other role's key.
func (i *Issuer) Verify(tokenString string, role TokenRole) (*Claims, error) {
	key, _, err := i.keyAndTTL(role)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrTokenInvalid
	}

	if !token.Valid || claims.Subject == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	return claims, nil
}
