package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// RegisterRequest holds the fields of a new account. Input validation
// (required fields, email format, password confirmation) happens at the API
// boundary.
type RegisterRequest struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
}

// Result is returned by successful registration and login.
type Result struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// Service is the credential manager: it registers users, checks passwords and
// issues tokens.
type Service struct {
	users  Repository
	tokens *TokenIssuer
	now    func() time.Time

	// dummyHash is verified against when the email is unknown so both login
	// failure paths derive a key.
	dummyHash string
}

// NewService creates a credential manager Service.
func NewService(users Repository, tokens *TokenIssuer) (*Service, error) {
	dummy, err := HashPassword("dummy-password")
	if err != nil {
		return nil, errors.Wrap(err, "dummy hash")
	}
	return &Service{
		users:     users,
		tokens:    tokens,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// Register creates an active account with the default role and returns a
// token for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Result, error) {
	email := normalizeEmail(req.Email)

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrUserExists
	case !errors.Is(err, ErrUserNotFound):
		return nil, errors.Wrap(err, "lookup user")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		Role:         DefaultRole,
		CreatedAt:    s.now().UTC(),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, errors.Wrap(err, "create user")
	}

	zctx.From(ctx).Info("User registered", zap.Int64("user_id", u.ID))
	return s.result(u)
}

// Login checks the credentials and returns a fresh token. Unknown emails,
// inactive accounts and wrong passwords all fail with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			VerifyPassword(password, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "lookup user")
	}

	if !VerifyPassword(password, u.PasswordHash) || !u.IsActive {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return nil, errors.Wrap(err, "update last login")
	}
	u.LastLoginAt = &now

	return s.result(u)
}

// CurrentUser returns the active user with the given ID.
func (s *Service) CurrentUser(ctx context.Context, id int64) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrapf(err, "get user %d", id)
	}
	if !u.IsActive {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Authenticate validates a bearer token.
func (s *Service) Authenticate(token string) (*Identity, error) {
	return s.tokens.Parse(token)
}

func (s *Service) result(u *User) (*Result, error) {
	token, expiresAt, err := s.tokens.Issue(u)
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	return &Result{Token: token, ExpiresAt: expiresAt, User: *u}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
