package user

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/yega-app/yega-api/internal/domain/auth"
)

// RegisterRequest holds the input for a new account.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Session is the result of a successful register or login.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// Service implements registration, login and token refresh.
type Service struct {
	users  Repository
	tokens Tokens
	cost   int
}

// NewService creates a user Service.
func NewService(users Repository, tokens Tokens) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
	}
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// Register creates an account and opens a session for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" || req.Role == "" {
		return nil, ErrMissingFields
	}
	if len(req.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "lookup email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create user")
	}

	return s.open(ctx, u)
}

// Login verifies credentials and opens a session. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "lookup email")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.open(ctx, u)
}

// Refresh exchanges a valid refresh token for a new access token. Only the
// most recently issued refresh token of a user is accepted.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrRefreshTokenRequired
	}

	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidRefreshToken
		}
		return "", errors.Wrap(err, "get user")
	}
	if u.RefreshHash == "" {
		return "", ErrInvalidRefreshToken
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.RefreshHash), digest(refreshToken)); err != nil {
		return "", ErrInvalidRefreshToken
	}

	access, err := s.tokens.Access(u.ID, u.Role)
	if err != nil {
		return "", errors.Wrap(err, "issue access token")
	}
	return access, nil
}

func (s *Service) open(ctx context.Context, u *User) (*Session, error) {
	access, err := s.tokens.Access(u.ID, u.Role)
	if err != nil {
		return nil, errors.Wrap(err, "issue access token")
	}
	refresh, err := s.tokens.Refresh(u.ID)
	if err != nil {
		return nil, errors.Wrap(err, "issue refresh token")
	}

	hash, err := bcrypt.GenerateFromPassword(digest(refresh), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash refresh token")
	}
	if err := s.users.SetRefreshHash(ctx, u.ID, string(hash)); err != nil {
		return nil, errors.Wrap(err, "store refresh token")
	}
	u.RefreshHash = string(hash)

	return &Session{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

// digest shortens a token below the bcrypt input limit of 72 bytes.
func digest(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return []byte(hex.EncodeToString(sum[:]))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
