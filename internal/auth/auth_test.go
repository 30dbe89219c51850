package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"printwatch/internal/config"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	// MinCost keeps the suite fast; production hashes come from HashPassword.
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewManager(config.AuthConfig{
		Enabled:     true,
		APIKey:      "printer-floor-key",
		JWTSecret:   "test-secret",
		TokenTTLMin: 5,
		Users:       []config.UserConfig{{Username: "operator", PasswordHash: string(hash)}},
	})
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("wrong")))
}

func TestTokenRoundTrip(t *testing.T) {
	m := testManager(t)

	token, ttl, err := m.GenerateToken("operator")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Username)
	assert.Equal(t, "printwatch-bridge", claims.Issuer)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	m := testManager(t)
	token, _, err := m.GenerateToken("operator")
	require.NoError(t, err)

	other := NewManager(config.AuthConfig{JWTSecret: "different-secret", TokenTTLMin: 5})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	m := testManager(t)
	_, err := m.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateAPIKey(t *testing.T) {
	m := testManager(t)
	assert.True(t, m.ValidateAPIKey("printer-floor-key"))
	assert.False(t, m.ValidateAPIKey("wrong"))
	assert.False(t, m.ValidateAPIKey(""))

	unkeyed := NewManager(config.AuthConfig{Enabled: true, JWTSecret: "s", TokenTTLMin: 5})
	assert.False(t, unkeyed.ValidateAPIKey("printer-floor-key"), "no configured key matches nothing")
}

func TestAuthenticateUser(t *testing.T) {
	m := testManager(t)

	assert.NoError(t, m.AuthenticateUser("operator", "hunter2"))
	assert.ErrorIs(t, m.AuthenticateUser("operator", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, m.AuthenticateUser("ghost", "hunter2"), ErrInvalidCredentials)
}
