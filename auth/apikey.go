package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"
)

// DefaultAPIKeyHeader carries API keys.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKey is a registered key. Only the SHA-256 hash of the key is kept.
type APIKey struct {
	ID        string
	KeyHash   string
	Principal string
	Roles     []string
	ExpiresAt time.Time
}

// APIKeyAuthenticator validates API keys against a fixed set.
type APIKeyAuthenticator struct {
	header string
	keys   []APIKey
	now    func() time.Time
}

// NewAPIKeyAuthenticator creates an authenticator reading header, or
// DefaultAPIKeyHeader when empty.
func NewAPIKeyAuthenticator(header string, keys ...APIKey) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return &APIKeyAuthenticator{header: header, keys: keys, now: time.Now}
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string { return "api_key" }

// Supports reports whether the request has an API key header.
func (a *APIKeyAuthenticator) Supports(req *AuthRequest) bool {
	return req.Header(a.header) != ""
}

// Authenticate validates the API key. Every registered hash is compared in
// constant time.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, req *AuthRequest) (*AuthResult, error) {
	key := strings.TrimSpace(req.Header(a.header))
	if key == "" {
		return AuthFailure(ErrMissingCredentials, AuthMethodAPIKey), nil
	}
	hash := HashAPIKey(key)

	var match *APIKey
	for i := range a.keys {
		if subtle.ConstantTimeCompare([]byte(a.keys[i].KeyHash), []byte(hash)) == 1 {
			match = &a.keys[i]
		}
	}
	if match == nil {
		return AuthFailure(ErrInvalidCredentials, AuthMethodAPIKey), nil
	}
	if !match.ExpiresAt.IsZero() && a.now().After(match.ExpiresAt) {
		return AuthFailure(ErrTokenExpired, AuthMethodAPIKey), nil
	}
	return AuthSuccess(&Identity{
		Principal: match.Principal,
		Roles:     match.Roles,
		Method:    AuthMethodAPIKey,
		ExpiresAt: match.ExpiresAt,
	}), nil
}

// HashAPIKey hashes an API key using SHA-256 for storage.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
