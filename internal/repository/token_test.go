package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/atinyakov/GophChat/internal/models"
)

func setupTokenMock(t *testing.T) (*PostgresTokenRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresTokenRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestCreateToken(t *testing.T) {
	repo, mock, cleanup := setupTokenMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tokens (token, user_id) VALUES ($1, $2)`)).
		WithArgs("t1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.CreateToken(context.Background(), "u1", "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUserIDByToken(t *testing.T) {
	query := regexp.QuoteMeta(`UPDATE tokens SET last_used_at = now() WHERE token = $1 RETURNING user_id`)

	t.Run("found", func(t *testing.T) {
		repo, mock, cleanup := setupTokenMock(t)
		defer cleanup()
		mock.ExpectQuery(query).WithArgs("t1").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))

		id, err := repo.UserIDByToken(context.Background(), "t1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "u1" {
			t.Errorf("UserIDByToken = %q; want u1", id)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		repo, mock, cleanup := setupTokenMock(t)
		defer cleanup()
		mock.ExpectQuery(query).WithArgs("nope").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

		_, err := repo.UserIDByToken(context.Background(), "nope")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDeleteToken(t *testing.T) {
	repo, mock, cleanup := setupTokenMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tokens WHERE token = $1 AND user_id = $2`)).
		WithArgs("t1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteToken(context.Background(), "u1", "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestConsumeOAuthCredential_Success(t *testing.T) {
	repo, mock, cleanup := setupTokenMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM oauth_credentials`)).
		WithArgs("ct", "cs").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE oauth_credentials SET consumed = true WHERE token = $1`)).
		WithArgs("ct").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := repo.ConsumeOAuthCredential(context.Background(), "ct", "cs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "u1" {
		t.Errorf("ConsumeOAuthCredential = %q; want u1", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestConsumeOAuthCredential_AlreadyConsumed(t *testing.T) {
	repo, mock, cleanup := setupTokenMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM oauth_credentials`)).
		WithArgs("ct", "cs").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectRollback()

	_, err := repo.ConsumeOAuthCredential(context.Background(), "ct", "cs")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestConsumeOAuthCredential_CommitError(t *testing.T) {
	repo, mock, cleanup := setupTokenMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM oauth_credentials`)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE oauth_credentials`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("commit fail"))

	_, err := repo.ConsumeOAuthCredential(context.Background(), "ct", "cs")
	if err == nil || !regexp.MustCompile(`commit`).MatchString(err.Error()) {
		t.Errorf("expected commit error, got %v", err)
	}
}

func TestSavePushToken(t *testing.T) {
	repo, mock, cleanup := setupTokenMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO push_tokens (user_id, value, type, app_name)`)).
		WithArgs("u1", "device-1", "gcm", "chat.gophchat.terminal").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SavePushToken(context.Background(), "u1", models.PushToken{Type: "gcm", Value: "device-1", AppName: "chat.gophchat.terminal"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
