// Package auth issues and validates the short-lived tokens that gate
// WebSocket listeners when bridge authentication is enabled.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"printwatch/internal/config"
)

// ErrInvalidCredentials covers every authentication failure. Callers must
// not learn whether the username, password, or key was the wrong part.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims are the JWT claims carried by a listener token.
type Claims struct {
	Username string `json:"username"`
	jwt.StandardClaims
}

// Manager checks credentials and mints listener tokens. With auth disabled
// every check passes and no tokens are issued.
type Manager struct {
	cfg config.AuthConfig
}

func NewManager(cfg config.AuthConfig) *Manager {
	return &Manager{cfg: cfg}
}

// Enabled reports whether listener authentication is turned on.
func (m *Manager) Enabled() bool { return m.cfg.Enabled }

// GenerateToken creates a signed token for the given subject, expiring
// after the configured TTL.
func (m *Manager) GenerateToken(username string) (string, time.Duration, error) {
	ttl := time.Duration(m.cfg.TokenTTLMin) * time.Minute
	now := time.Now()
	claims := &Claims{
		Username: username,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    "printwatch-bridge",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.cfg.JWTSecret))
	if err != nil {
		return "", 0, fmt.Errorf("signing token: %w", err)
	}
	return signed, ttl, nil
}

// ValidateToken parses and verifies a listener token.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

// ValidateAPIKey compares the presented key against the configured one in
// constant time.
func (m *Manager) ValidateAPIKey(apiKey string) bool {
	if m.cfg.APIKey == "" || apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(apiKey), []byte(m.cfg.APIKey)) == 1
}

// AuthenticateUser verifies a username/password pair against the configured
// user list.
func (m *Manager) AuthenticateUser(username, password string) error {
	for _, user := range m.cfg.Users {
		if user.Username != username {
			continue
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
		return nil
	}
	return ErrInvalidCredentials
}

// HashPassword produces a bcrypt hash suitable for the users section of the
// configuration file.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}
