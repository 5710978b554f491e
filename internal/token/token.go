// Package token issues and verifies the HMAC-signed JWTs used for API
// authentication.
package token

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/yega-app/yega-api/internal/domain/auth"
)

// ErrInvalid is returned for malformed, tampered or expired tokens.
var ErrInvalid = errors.New("invalid or expired token")

// Config holds signing secrets and lifetimes.
type Config struct {
	Secret        string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type accessClaims struct {
	Role auth.Role `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies access and refresh tokens.
type Manager struct {
	secret        []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewManager creates a Manager. Both secrets are required.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Secret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets must be set")
	}
	return &Manager{
		secret:        []byte(cfg.Secret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}, nil
}

// Access issues an access token carrying the user id as subject and the role.
func (m *Manager) Access(userID string, role auth.Role) (string, error) {
	claims := accessClaims{
		Role:             role,
		RegisteredClaims: m.registered(userID, m.accessTTL),
	}
	return m.sign(claims, m.secret)
}

// Refresh issues a refresh token for userID.
func (m *Manager) Refresh(userID string) (string, error) {
	return m.sign(m.registered(userID, m.refreshTTL), m.refreshSecret)
}

// ParseAccess verifies an access token and returns the identity it carries.
func (m *Manager) ParseAccess(raw string) (auth.Identity, error) {
	var claims accessClaims
	if err := m.parse(raw, &claims, m.secret); err != nil {
		return auth.Identity{}, err
	}
	if !claims.Role.Valid() {
		return auth.Identity{}, ErrInvalid
	}
	return auth.Identity{UserID: claims.Subject, Role: claims.Role}, nil
}

// ParseRefresh verifies a refresh token and returns its subject.
func (m *Manager) ParseRefresh(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	if err := m.parse(raw, &claims, m.refreshSecret); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (m *Manager) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := m.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func (m *Manager) sign(claims jwt.Claims, key []byte) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return s, nil
}

func (m *Manager) parse(raw string, claims jwt.Claims, key []byte) error {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil || !tok.Valid {
		return ErrInvalid
	}
	if sub, _ := claimsSubject(claims); sub == "" {
		return ErrInvalid
	}
	return nil
}

func claimsSubject(c jwt.Claims) (string, bool) {
	switch c := c.(type) {
	case *accessClaims:
		return c.Subject, true
	case *jwt.RegisteredClaims:
		return c.Subject, true
	}
	return "", false
}
