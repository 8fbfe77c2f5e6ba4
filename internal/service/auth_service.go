package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"auth-api/internal/domain"
	"auth-api/internal/repository"
)

var (
	// ErrInvalidCredentials covers unknown username, disabled account, and
	// password mismatch alike, so callers cannot probe which one occurred.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrUnauthenticated indicates a missing, unknown, expired, or revoked token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates an authenticated caller without the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrUserNotFound indicates a lookup for a user that does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// dummyHash is compared against when the username does not resolve, so the
// missing-user path costs one bcrypt verification like every other path.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("credential-padding"), bcrypt.DefaultCost)

// AuthService orchestrates credential verification and the bearer-token
// lifecycle. It holds no state between calls; every token check re-reads
// the store.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
	RegisterUser(ctx context.Context, actor domain.Identity, username, email, password, role string) (*domain.User, error)
	CurrentUser(ctx context.Context, username string) (*domain.User, error)
	Logout(ctx context.Context, tokenValue string) error
	LogoutAll(ctx context.Context, username string) error
	Resolve(ctx context.Context, tokenValue string) (domain.Identity, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type authService struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthService(users repository.UserRepository, tokens repository.TokenRepository, tokenTTL time.Duration) AuthService {
	return &authService{
		users:    users,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *authService) Authenticate(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	if !user.Enabled {
		return "", ErrInvalidCredentials
	}

	value, err := newTokenValue()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	token := &domain.Token{
		Value:     value,
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenTTL),
	}
	if _, err := s.tokens.Create(ctx, token); err != nil {
		return "", fmt.Errorf("persist token: %w", err)
	}

	return value, nil
}

// newTokenValue builds an opaque bearer token: a random UUID to rule out
// store collisions plus 32 bytes from crypto/rand for guessing resistance.
func newTokenValue() (string, error) {
	entropy := make([]byte, 32)
	if _, err := rand.Read(entropy); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return uuid.NewString() + "-" + base64.RawURLEncoding.EncodeToString(entropy), nil
}

func (s *authService) RegisterUser(ctx context.Context, actor domain.Identity, username, email, password, role string) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	taken, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Enabled:      true,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		// the store's UNIQUE constraints are authoritative under concurrent
		// registration; map a lost race back to the taken errors
		if errors.Is(err, repository.ErrDuplicate) {
			if taken, checkErr := s.users.ExistsByUsername(ctx, username); checkErr == nil && taken {
				return nil, ErrUsernameTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *authService) CurrentUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *authService) Logout(ctx context.Context, tokenValue string) error {
	if tokenValue == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, tokenValue); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *authService) LogoutAll(ctx context.Context, username string) error {
	if err := s.tokens.RevokeAllForUser(ctx, username); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

func (s *authService) Resolve(ctx context.Context, tokenValue string) (domain.Identity, error) {
	if tokenValue == "" {
		return domain.Identity{}, ErrUnauthenticated
	}

	token, err := s.tokens.GetByValue(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, ErrUnauthenticated
		}
		return domain.Identity{}, fmt.Errorf("lookup token: %w", err)
	}
	if !token.Valid(s.now()) {
		return domain.Identity{}, ErrUnauthenticated
	}

	// the token row alone is not enough: the owning account must still
	// exist and be enabled
	user, err := s.users.GetByUsername(ctx, token.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, ErrUnauthenticated
		}
		return domain.Identity{}, fmt.Errorf("lookup token owner: %w", err)
	}
	if !user.Enabled {
		return domain.Identity{}, ErrUnauthenticated
	}

	return domain.Identity{Username: user.Username, Role: user.Role}, nil
}

func (s *authService) PurgeExpired(ctx context.Context) (int64, error) {
	deleted, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	return deleted, nil
}
