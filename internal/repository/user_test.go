package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/atinyakov/GophChat/internal/models"
)

func setupUserMock(t *testing.T) (*PostgresUserRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresUserRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestUserExists_True(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.UserExists(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Errorf("expected user to exist, got false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUserExists_Error(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`)).
		WithArgs("bob").
		WillReturnError(errors.New("query failed"))

	if _, err := repo.UserExists(context.Background(), "bob"); err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser(t *testing.T) {
	u := models.User{ID: "u1", Username: "alice", Email: "a@example.com", Language: "en", PasswordHash: []byte("hash")}
	insert := regexp.QuoteMeta(`INSERT INTO users (id, username, email, language, password_hash)`)

	t.Run("ok", func(t *testing.T) {
		repo, mock, cleanup := setupUserMock(t)
		defer cleanup()
		mock.ExpectExec(insert).
			WithArgs(u.ID, u.Username, u.Email, u.Language, u.PasswordHash).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := repo.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		repo, mock, cleanup := setupUserMock(t)
		defer cleanup()
		mock.ExpectExec(insert).WillReturnError(&pq.Error{Code: "23505"})

		err := repo.CreateUser(context.Background(), u)
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("other error", func(t *testing.T) {
		repo, mock, cleanup := setupUserMock(t)
		defer cleanup()
		mock.ExpectExec(insert).WillReturnError(errors.New("disk full"))

		err := repo.CreateUser(context.Background(), u)
		if err == nil || errors.Is(err, ErrConflict) {
			t.Fatalf("expected plain error, got %v", err)
		}
	})
}

func TestFindByLogin(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	cols := []string{"id", "username", "email", "language", "password_hash"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE username = $1 OR email = $1`)).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", "alice", "a@example.com", "de", []byte("hash")))

	u, err := repo.FindByLogin(context.Background(), "a@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" || u.Username != "alice" || u.Language != "de" || string(u.PasswordHash) != "hash" {
		t.Errorf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "language", "password_hash"}))

	_, err := repo.FindByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestActiveUsers(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	since := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN tokens t ON t.user_id = u.id`)).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "language"}).
			AddRow("u1", "alice", "", "en").
			AddRow("u2", "", "b@example.com", ""))

	users, err := repo.ActiveUsers(context.Background(), since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 || users[0].Username != "alice" || users[1].Email != "b@example.com" {
		t.Errorf("unexpected users: %+v", users)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
