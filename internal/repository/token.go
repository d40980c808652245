package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fileshare/internal/model"
)

var ErrTokenNotFound = errors.New("token not found")

type TokenRepository interface {
	Create(ctx context.Context, token *model.Token) error
	Consume(ctx context.Context, token, tokenType string, now time.Time) (*model.Token, error)
	DeleteUnused(ctx context.Context, userID, tokenType string) error
}

type tokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, t *model.Token) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (id, user_id, type, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.UserID, t.Type, t.Token, t.ExpiresAt, t.CreatedAt)
	return err
}

// Consume marks an unused, unexpired token as used and returns it.
// Only one of several concurrent callers gets the token.
func (r *tokenRepository) Consume(ctx context.Context, token, tokenType string, now time.Time) (*model.Token, error) {
	var t model.Token
	err := r.db.GetContext(ctx, &t, `
		UPDATE tokens
		SET used_at = $1
		WHERE token = $2 AND type = $3 AND used_at IS NULL AND expires_at > $4
		RETURNING id, user_id, type, token
	`, now, token, tokenType, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	t.UsedAt = &now
	return &t, nil
}

func (r *tokenRepository) DeleteUnused(ctx context.Context, userID, tokenType string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = $1 AND type = $2 AND used_at IS NULL`, userID, tokenType)
	return err
}
