package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gadgethub-api/internal/domain/auth"
)

const (
	userColumns = `id, email, password_hash, first_name, last_name, COALESCE(phone_number, ''),
		role, created_at, last_login_at, is_active`

	createUserSQL = `INSERT INTO users
		(email, password_hash, first_name, last_name, phone_number, role, created_at, is_active)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8) RETURNING id`
	getUserByEmailSQL    = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	getUserByIDSQL       = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	updateLastLoginSQL   = `UPDATE users SET last_login_at = $2 WHERE id = $1`
	upsertAdminSQL       = `INSERT INTO users
		(email, password_hash, first_name, last_name, role, created_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT ((lower(email))) DO UPDATE SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role
		RETURNING id`
)

var _ auth.Repository = (*UserRepository)(nil)

// UserRepository implements auth.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts u and sets its generated ID. The unique index on
// lower(email) turns a concurrent duplicate registration into
// auth.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	err := r.pool.QueryRow(ctx, createUserSQL,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber, u.Role, u.CreatedAt, u.IsActive,
	).Scan(&u.ID)
	if err != nil {
		if hasCode(err, codeUniqueViolation) {
			return auth.ErrUserExists
		}
		return errors.Wrap(err, "create user")
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.one(ctx, getUserByEmailSQL, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	return r.one(ctx, getUserByIDSQL, id)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	if err := execOne(ctx, r.pool, auth.ErrUserNotFound, updateLastLoginSQL, id, at); err != nil {
		return errors.Wrapf(err, "update last login of user %d", id)
	}
	return nil
}

// UpsertAdmin creates or resets an administrator account.
func (r *UserRepository) UpsertAdmin(ctx context.Context, u *auth.User) error {
	err := r.pool.QueryRow(ctx, upsertAdminSQL,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, auth.AdminRole, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		return errors.Wrap(err, "upsert admin")
	}
	return nil
}

func (r *UserRepository) one(ctx context.Context, sql string, arg any) (*auth.User, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "get user")
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (auth.User, error) {
	var u auth.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.PhoneNumber,
		&u.Role, &u.CreatedAt, &u.LastLoginAt, &u.IsActive,
	)
	return u, err
}
