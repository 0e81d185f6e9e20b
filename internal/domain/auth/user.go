package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// DefaultRole is assigned to every self-registered user.
const DefaultRole = "User"

// AdminRole grants write access to the catalog.
const AdminRole = "Admin"

// Errors returned by the credential manager.
var (
	ErrUserExists         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid token")
)

// User is an account that can authenticate against the API.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	PhoneNumber  string
	Role         string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
	IsActive     bool
}

// DisplayName is the name carried in issued tokens.
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// Repository defines persistence operations for users.
type Repository interface {
	// Create stores u and sets its ID. It returns ErrUserExists when the
	// email is already taken, compared case-insensitively.
	Create(ctx context.Context, u *User) error
	// GetByEmail looks a user up by email, case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}
