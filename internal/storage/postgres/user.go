package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yega-app/yega-api/internal/domain/auth"
	"github.com/yega-app/yega-api/internal/domain/user"
)

const (
	userColumns = `id, name, email, password_hash, role, refresh_hash, created_at, updated_at`

	createUserSQL = `INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	getUserByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	setRefreshHashSQL = `UPDATE users SET refresh_hash = $2, updated_at = now() WHERE id = $1`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.pool.QueryRow(ctx, createUserSQL, u.Name, u.Email, u.PasswordHash, string(u.Role)).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if hasCode(err, codeUniqueViolation) {
			return user.ErrEmailTaken
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, getUserByEmailSQL, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, getUserByIDSQL, id)
}

func (r *UserRepository) SetRefreshHash(ctx context.Context, id, hash string) error {
	tag, err := r.pool.Exec(ctx, setRefreshHashSQL, id, hash)
	if err != nil {
		return errors.Wrapf(err, "set refresh hash of %s", id)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, sql string, arg string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "query user")
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan user")
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u    user.User
		role string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.RefreshHash, &u.CreatedAt, &u.UpdatedAt)
	u.Role = auth.Role(role)
	return u, err
}
