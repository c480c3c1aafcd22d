package testhelpers

import (
	"time"

	"github.com/cardiolab/ecg-engine/pkg/auth"
)

// Signing keys for tests. Distinct on purpose: a token signed with one key
// must never verify against the other.
const (
	TestAccessKey  = "test-access-signing-key"
	TestRefreshKey = "test-refresh-signing-key"
)

// NewTestIssuer returns an Issuer with the fixed test keys and short TTLs.
func NewTestIssuer() *auth.Issuer {
	return auth.NewIssuer(TestAccessKey, TestRefreshKey, 30*time.Minute, 7*24*time.Hour)
}

// IssueTestToken signs a token of the given role for subject using the test
// keys.
func IssueTestToken(subject string, role auth.TokenRole) (string, error) {
	return NewTestIssuer().Issue(subject, role)
}

// BearerToken returns the token with the "Bearer " prefix for an
// Authorization header.
func BearerToken(token string) string {
	return "Bearer " + token
}
