package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/yega-app/yega-api/internal/domain/auth"
)

// Sentinel errors for account operations.
var (
	ErrNotFound             = errors.New("user not found")
	ErrMissingFields        = errors.New("missing required fields")
	ErrPasswordTooLong      = errors.New("password must be at most 72 bytes")
	ErrEmailTaken           = errors.New("a user with this email already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrRefreshTokenRequired = errors.New("refresh token is required")
	ErrInvalidRefreshToken  = errors.New("invalid or expired refresh token")
)

// User is a registered account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         auth.Role
	// RefreshHash is the bcrypt hash of the digest of the last issued
	// refresh token. Empty when none was issued.
	RefreshHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository defines persistence operations for users.
type Repository interface {
	// Create inserts u and fills in its identifier and timestamps. It returns
	// ErrEmailTaken if the email is already registered.
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	SetRefreshHash(ctx context.Context, id, hash string) error
}

// Tokens issues and verifies signed tokens.
type Tokens interface {
	Access(userID string, role auth.Role) (string, error)
	Refresh(userID string) (string, error)
	// ParseRefresh validates a refresh token and returns its subject.
	ParseRefresh(token string) (string, error)
}
