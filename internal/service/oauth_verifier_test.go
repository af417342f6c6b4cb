package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signIDToken(t *testing.T, secret string, claims idTokenClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validIDClaims() idTokenClaims {
	return idTokenClaims{
		Email: "ana@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "google-sub-1",
			Issuer:    "https://accounts.example.com",
			Audience:  jwt.ClaimStrings{"linkpay-app"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestHMACIdentityVerifier_Verify(t *testing.T) {
	v := NewHMACIdentityVerifier("oauth-secret", "https://accounts.example.com", "linkpay-app")

	id, err := v.Verify(context.Background(), signIDToken(t, "oauth-secret", validIDClaims()))
	require.NoError(t, err)
	assert.Equal(t, "google-sub-1", id.Subject)
	assert.Equal(t, "ana@example.com", id.Email)
}

func TestHMACIdentityVerifier_Rejects(t *testing.T) {
	v := NewHMACIdentityVerifier("oauth-secret", "https://accounts.example.com", "linkpay-app")

	tests := []struct {
		name   string
		secret string
		mutate func(c *idTokenClaims)
	}{
		{"wrong secret", "other", func(*idTokenClaims) {}},
		{"wrong issuer", "oauth-secret", func(c *idTokenClaims) { c.Issuer = "https://evil.example.com" }},
		{"wrong audience", "oauth-secret", func(c *idTokenClaims) { c.Audience = jwt.ClaimStrings{"other-app"} }},
		{"expired", "oauth-secret", func(c *idTokenClaims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute)) }},
		{"no expiry", "oauth-secret", func(c *idTokenClaims) { c.ExpiresAt = nil }},
		{"no subject", "oauth-secret", func(c *idTokenClaims) { c.Subject = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := validIDClaims()
			tt.mutate(&claims)
			_, err := v.Verify(context.Background(), signIDToken(t, tt.secret, claims))
			assert.Error(t, err)
		})
	}
}

func TestHMACIdentityVerifier_UnverifiedEmailDropped(t *testing.T) {
	v := NewHMACIdentityVerifier("oauth-secret", "https://accounts.example.com", "linkpay-app")

	claims := validIDClaims()
	unverified := false
	claims.EmailVerified = &unverified

	id, err := v.Verify(context.Background(), signIDToken(t, "oauth-secret", claims))
	require.NoError(t, err)
	assert.Empty(t, id.Email)
}

func TestHMACIdentityVerifier_NotConfigured(t *testing.T) {
	v := NewHMACIdentityVerifier("", "", "")
	_, err := v.Verify(context.Background(), "anything")
	assert.ErrorContains(t, err, "not configured")
}
