package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockUserRepo struct {
	byID       map[int64]*User
	nextID     int64
	lastLogins map[int64]time.Time
	getErr     error
}

func newUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byID:       make(map[int64]*User),
		lastLogins: make(map[int64]time.Time),
	}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrUserExists
		}
	}
	m.nextID++
	u.ID = m.nextID
	stored := *u
	m.byID[u.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	m.lastLogins[id] = at
	if u, ok := m.byID[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

// --- Helpers ---

func newTestService(t *testing.T) (*Service, *mockUserRepo) {
	t.Helper()

	repo := newUserRepo()
	svc, err := NewService(repo, newTestIssuer(t, time.Now()))
	require.NoError(t, err)
	return svc, repo
}

func register(t *testing.T, svc *Service, email, password string) *Result {
	t.Helper()

	res, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     email,
		Password:  password,
	})
	require.NoError(t, err)
	return res
}

// --- Tests ---

func TestRegister(t *testing.T) {
	svc, repo := newTestService(t)

	res := register(t, svc, "  A@B.com ", "secret1")

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "a@b.com", res.User.Email)
	assert.Equal(t, "Ada", res.User.FirstName)
	assert.Equal(t, DefaultRole, res.User.Role)
	assert.True(t, res.User.IsActive)
	assert.False(t, res.User.CreatedAt.IsZero())

	stored := repo.byID[res.User.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, VerifyPassword("secret1", stored.PasswordHash))

	id, err := svc.Authenticate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.UserID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "a@b.com", "secret1")

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Other", LastName: "Person", Email: "A@B.COM", Password: "secret2",
	})
	require.ErrorIs(t, err, ErrUserExists)
	assert.Equal(t, "user with this email already exists", err.Error())
}

func TestLogin(t *testing.T) {
	svc, repo := newTestService(t)
	reg := register(t, svc, "a@b.com", "secret1")

	res, err := svc.Login(context.Background(), "A@b.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	require.NotNil(t, res.User.LastLoginAt)
	assert.Contains(t, repo.lastLogins, reg.User.ID)
}

func TestLogin_UniformFailure(t *testing.T) {
	svc, repo := newTestService(t)
	reg := register(t, svc, "a@b.com", "secret1")
	register(t, svc, "inactive@b.com", "secret1")
	for _, u := range repo.byID {
		if u.Email == "inactive@b.com" {
			u.IsActive = false
		}
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "a@b.com", password: "wrong"},
		{name: "unknown email", email: "nobody@b.com", password: "secret1"},
		{name: "inactive account", email: "inactive@b.com", password: "secret1"},
	}

	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
			messages = append(messages, err.Error())
		})
	}

	for _, msg := range messages {
		assert.Equal(t, "invalid email or password", msg)
	}
	assert.NotContains(t, repo.lastLogins, reg.User.ID)
}

func TestLogin_StoreError(t *testing.T) {
	svc, repo := newTestService(t)
	storeErr := errors.New("timeout")
	repo.getErr = storeErr

	_, err := svc.Login(context.Background(), "a@b.com", "secret1")
	require.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestCurrentUser(t *testing.T) {
	svc, repo := newTestService(t)
	reg := register(t, svc, "a@b.com", "secret1")

	u, err := svc.CurrentUser(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)

	_, err = svc.CurrentUser(context.Background(), 999)
	require.ErrorIs(t, err, ErrUserNotFound)

	repo.byID[reg.User.ID].IsActive = false
	_, err = svc.CurrentUser(context.Background(), reg.User.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
}
