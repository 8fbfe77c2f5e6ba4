package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"auth-api/internal/domain"
	"auth-api/internal/repository"
)

const createTokensTable = `
CREATE TABLE IF NOT EXISTS tokens (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL,
	revoked INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_tokens_expires_at ON tokens (expires_at);
CREATE INDEX IF NOT EXISTS idx_tokens_username ON tokens (username);
`

type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) repository.TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTokensTable); err != nil {
		return fmt.Errorf("create tokens table: %w", err)
	}
	return nil
}

func (r *TokenRepository) Create(ctx context.Context, token *domain.Token) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO tokens (value, username, created_at, expires_at, revoked)
VALUES (?, ?, ?, ?, ?)`,
		token.Value,
		token.Username,
		token.CreatedAt,
		token.ExpiresAt,
		token.Revoked,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return 0, fmt.Errorf("insert token: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert token: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("token last insert id: %w", err)
	}
	token.ID = id
	return id, nil
}

func (r *TokenRepository) GetByValue(ctx context.Context, value string) (*domain.Token, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, value, username, created_at, expires_at, revoked
FROM tokens
WHERE value = ?`,
		value,
	)

	var token domain.Token
	if err := row.Scan(
		&token.ID,
		&token.Value,
		&token.Username,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.Revoked,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}
	return &token, nil
}

func (r *TokenRepository) Revoke(ctx context.Context, value string) error {
	if _, err := r.db.ExecContext(ctx, `
UPDATE tokens SET revoked = 1 WHERE value = ?`,
		value,
	); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *TokenRepository) RevokeAllForUser(ctx context.Context, username string) error {
	if _, err := r.db.ExecContext(ctx, `
UPDATE tokens SET revoked = 1 WHERE username = ? AND revoked = 0`,
		username,
	); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM tokens WHERE expires_at < ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired tokens rows affected: %w", err)
	}
	return deleted, nil
}
