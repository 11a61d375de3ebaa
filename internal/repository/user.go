package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophChat/internal/models"
)

const userColumns = `id, COALESCE(username, ''), COALESCE(email, ''), language, password_hash`

// PostgresUserRepository stores chat users.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a repository on db.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// UserExists reports whether username is taken.
func (r *PostgresUserRepository) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	return exists, err
}

// CreateUser inserts u. A duplicate username or email yields ErrConflict.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, u models.User) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO users (id, username, email, language, password_hash) VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5)`,
		u.ID, u.Username, u.Email, u.Language, u.PasswordHash,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user %q: %w", u.Username, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByLogin looks a user up by username or email.
func (r *PostgresUserRepository) FindByLogin(ctx context.Context, login string) (models.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1`,
		login,
	)
	return scanUser(row)
}

// FindByID looks a user up by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ActiveUsers returns the users that used a login token after since.
func (r *PostgresUserRepository) ActiveUsers(ctx context.Context, since time.Time) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT DISTINCT u.id, COALESCE(u.username, ''), COALESCE(u.email, ''), u.language
		  FROM users u
		  JOIN tokens t ON t.user_id = u.id
		 WHERE t.last_used_at > $1
		 ORDER BY u.id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("ActiveUsers: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Language); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Language, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
