package repository

import (
	"context"
	"time"

	"auth-api/internal/domain"
)

// TokenRepository defines persistence operations for bearer tokens.
type TokenRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, token *domain.Token) (int64, error)
	GetByValue(ctx context.Context, value string) (*domain.Token, error)
	// Revoke marks a single token revoked. Revoking a missing or
	// already-revoked token is not an error.
	Revoke(ctx context.Context, value string) error
	// RevokeAllForUser revokes every unrevoked token owned by username.
	RevokeAllForUser(ctx context.Context, username string) error
	// DeleteExpired removes rows whose expiry is before now, revoked or not,
	// and reports how many were deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
