package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/GophChat/internal/models"
)

// PostgresTokenRepository stores login tokens, one-time OAuth credentials
// and push tokens.
type PostgresTokenRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresTokenRepository creates a repository on db.
func NewPostgresTokenRepository(db *sql.DB) *PostgresTokenRepository {
	return &PostgresTokenRepository{DB: db}
}

// CreateToken stores a new login token of userID.
func (r *PostgresTokenRepository) CreateToken(ctx context.Context, userID, token string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO tokens (token, user_id) VALUES ($1, $2)`,
		token, userID,
	)
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

// UserIDByToken returns the owner of token and marks the token as used.
func (r *PostgresTokenRepository) UserIDByToken(ctx context.Context, token string) (string, error) {
	var userID string
	err := r.DB.QueryRowContext(ctx,
		`UPDATE tokens SET last_used_at = now() WHERE token = $1 RETURNING user_id`,
		token,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup token: %w", err)
	}
	return userID, nil
}

// DeleteToken removes token if it belongs to userID.
func (r *PostgresTokenRepository) DeleteToken(ctx context.Context, userID, token string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM tokens WHERE token = $1 AND user_id = $2`,
		token, userID,
	)
	return err
}

// ConsumeOAuthCredential exchanges a credential pair for the id of the user
// it was issued to. A pair can be consumed once.
func (r *PostgresTokenRepository) ConsumeOAuthCredential(ctx context.Context, token, secret string) (string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRowContext(ctx, `
		SELECT user_id FROM oauth_credentials
		 WHERE token = $1 AND secret = $2 AND consumed = false
		   FOR UPDATE
	`, token, secret).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select credential: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE oauth_credentials SET consumed = true WHERE token = $1`, token); err != nil {
		return "", fmt.Errorf("consume credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return userID, nil
}

// SavePushToken registers or refreshes a push token of userID.
func (r *PostgresTokenRepository) SavePushToken(ctx context.Context, userID string, t models.PushToken) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO push_tokens (user_id, value, type, app_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, value) DO UPDATE SET
			type = EXCLUDED.type,
			app_name = EXCLUDED.app_name,
			updated_at = now()
	`, userID, t.Value, t.Type, t.AppName)
	if err != nil {
		return fmt.Errorf("save push token: %w", err)
	}
	return nil
}
