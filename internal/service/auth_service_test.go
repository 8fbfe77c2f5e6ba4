package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"auth-api/internal/domain"
	"auth-api/internal/repository"
	"auth-api/internal/repository/sqlite"
)

func newTestService(t *testing.T) (*authService, repository.UserRepository, repository.TokenRepository) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	users := sqlite.NewUserRepository(db)
	tokens := sqlite.NewTokenRepository(db)
	require.NoError(t, users.Init(ctx))
	require.NoError(t, tokens.Init(ctx))

	svc := NewAuthService(users, tokens, 24*time.Hour).(*authService)
	return svc, users, tokens
}

func seedUser(t *testing.T, users repository.UserRepository, username, email, password, role string, enabled bool) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	_, err = users.Create(context.Background(), &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Enabled:      enabled,
	})
	require.NoError(t, err)
}

func TestAuthenticate_IssuesResolvableToken(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	seedUser(t, users, "alice", "a@x.com", "Abcdef1!", domain.RoleUser, true)

	token, err := svc.Authenticate(ctx, "alice", "Abcdef1!")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	ident, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", ident.Username)
	assert.Equal(t, domain.RoleUser, ident.Role)
}

func TestAuthenticate_TokensAreUnique(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	seedUser(t, users, "alice", "a@x.com", "Abcdef1!", domain.RoleUser, true)

	seen := make(map[string]struct{})
	for i := 0; i < 10; i++ {
		token, err := svc.Authenticate(ctx, "alice", "Abcdef1!")
		require.NoError(t, err)

		_, dup := seen[token]
		require.False(t, dup, "token issued twice")
		seen[token] = struct{}{}
	}
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	seedUser(t, users, "alice", "a@x.com", "Abcdef1!", domain.RoleUser, true)
	seedUser(t, users, "mallory", "m@x.com", "Abcdef1!", domain.RoleUser, false)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "unknown username", username: "nobody", password: "Abcdef1!"},
		{name: "wrong password", username: "alice", password: "Wrong1!!"},
		{name: "disabled account", username: "mallory", password: "Abcdef1!"},
		{name: "empty password", username: "alice", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := svc.Authenticate(ctx, tt.username, tt.password)
			assert.Empty(t, token)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestResolve_ExpiredToken(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	seedUser(t, users, "alice", "a@x.com", "Abcdef1!", domain.RoleUser, true)

	token, err := svc.Authenticate(ctx, "alice", "Abcdef1!")
	require.NoError(t, err)

	// jump past the TTL; the row is untouched and unrevoked
	svc.now = func() time.Time { return time.Now().UTC().Add(25 * time.Hour) }

	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolve_RevokedTokenStaysRevoked(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	seedUser(t, users, "alice", "a@x.com", "Abcdef1!", domain.RoleUser, true)

	token, err := svc.Authenticate(ctx, "alice", "Abcdef1!")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// revoking again is allowed and changes nothing
	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolve_UnknownAndEmptyToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolve_OwnerMissingOrDisabled(t *testing.T) {
	svc, users, tokens := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// token whose owner row never existed
	_, err := tokens.Create(ctx, &domain.Token{
		Value:     "orphan-token",
		Username:  "ghost",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, "orphan-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// token whose owner exists but is disabled
	seedUser(t, users, "mallory", "m@x.com", "Abcdef1!", domain.RoleUser, false)
	_, err = tokens.Create(ctx, &domain.Token{
		Value:     "disabled-owner-token",
		Username:  "mallory",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, "disabled-owner-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogoutAll_RevokesExistingNotFuture(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	seedUser(t, users, "alice", "a@x.com", "Abcdef1!", domain.RoleUser, true)
	seedUser(t, users, "bob", "b@x.com", "Abcdef1!", domain.RoleUser, true)

	first, err := svc.Authenticate(ctx, "alice", "Abcdef1!")
	require.NoError(t, err)
	second, err := svc.Authenticate(ctx, "alice", "Abcdef1!")
	require.NoError(t, err)
	other, err := svc.Authenticate(ctx, "bob", "Abcdef1!")
	require.NoError(t, err)

	require.NoError(t, svc.LogoutAll(ctx, "alice"))

	_, err = svc.Resolve(ctx, first)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Resolve(ctx, second)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// other users are untouched
	_, err = svc.Resolve(ctx, other)
	assert.NoError(t, err)

	// tokens issued after the bulk revoke are unaffected
	later, err := svc.Authenticate(ctx, "alice", "Abcdef1!")
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, later)
	assert.NoError(t, err)
}

func TestRegisterUser_Gating(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	admin := domain.Identity{Username: "root", Role: domain.RoleAdmin}

	user, err := svc.RegisterUser(ctx, admin, "alice", "a@x.com", "Abcdef1!", domain.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.True(t, user.Enabled)
	assert.NotEqual(t, "Abcdef1!", user.PasswordHash)

	// non-admin and anonymous callers are rejected before any store access
	_, err = svc.RegisterUser(ctx, domain.Identity{Username: "alice", Role: domain.RoleUser}, "eve", "e@x.com", "Abcdef1!", domain.RoleUser)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.RegisterUser(ctx, domain.Identity{}, "eve", "e@x.com", "Abcdef1!", domain.RoleUser)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRegisterUser_Conflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	admin := domain.Identity{Username: "root", Role: domain.RoleAdmin}

	_, err := svc.RegisterUser(ctx, admin, "alice", "a@x.com", "Abcdef1!", domain.RoleUser)
	require.NoError(t, err)

	_, err = svc.RegisterUser(ctx, admin, "alice", "other@x.com", "Abcdef1!", domain.RoleUser)
	assert.ErrorIs(t, err, ErrUsernameTaken)

	// username is checked before email, so a double conflict reports the username
	_, err = svc.RegisterUser(ctx, admin, "alice", "a@x.com", "Abcdef1!", domain.RoleUser)
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.RegisterUser(ctx, admin, "bob", "a@x.com", "Abcdef1!", domain.RoleUser)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisteredUserCanAuthenticate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	admin := domain.Identity{Username: "root", Role: domain.RoleAdmin}

	_, err := svc.RegisterUser(ctx, admin, "alice", "a@x.com", "Abcdef1!", domain.RoleUser)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "alice", "Abcdef1!")
	assert.NoError(t, err)

	_, err = svc.Authenticate(ctx, "alice", "Abcdef1?")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCurrentUser(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	seedUser(t, users, "alice", "a@x.com", "Abcdef1!", domain.RoleUser, true)

	user, err := svc.CurrentUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	_, err = svc.CurrentUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPurgeExpired(t *testing.T) {
	svc, users, tokens := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedUser(t, users, "alice", "a@x.com", "Abcdef1!", domain.RoleUser, true)

	live, err := svc.Authenticate(ctx, "alice", "Abcdef1!")
	require.NoError(t, err)

	// expired rows are purged revoked or not
	_, err = tokens.Create(ctx, &domain.Token{
		Value: "expired-plain", Username: "alice",
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)
	_, err = tokens.Create(ctx, &domain.Token{
		Value: "expired-revoked", Username: "alice",
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour), Revoked: true,
	})
	require.NoError(t, err)

	deleted, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	// idempotent with no new expirations in between
	deleted, err = svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	// unexpired tokens survive the sweep
	_, err = svc.Resolve(ctx, live)
	assert.NoError(t, err)
}

func TestNewTokenValue_Shape(t *testing.T) {
	value, err := newTokenValue()
	require.NoError(t, err)

	// uuid (36) + separator + base64url of 32 bytes (43)
	assert.Len(t, value, 36+1+43)

	other, err := newTokenValue()
	require.NoError(t, err)
	assert.NotEqual(t, value, other)
}
