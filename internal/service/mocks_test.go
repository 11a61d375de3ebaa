package service

import (
	"context"
	"time"

	"github.com/atinyakov/GophChat/internal/models"
)

type mockUserRepo struct {
	UserExistsFunc  func(ctx context.Context, username string) (bool, error)
	CreateUserFunc  func(ctx context.Context, u models.User) error
	FindByLoginFunc func(ctx context.Context, login string) (models.User, error)
	FindByIDFunc    func(ctx context.Context, id string) (models.User, error)
	ActiveUsersFunc func(ctx context.Context, since time.Time) ([]models.User, error)
}

func (m *mockUserRepo) UserExists(ctx context.Context, username string) (bool, error) {
	return m.UserExistsFunc(ctx, username)
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u models.User) error {
	return m.CreateUserFunc(ctx, u)
}

func (m *mockUserRepo) FindByLogin(ctx context.Context, login string) (models.User, error) {
	return m.FindByLoginFunc(ctx, login)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (models.User, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *mockUserRepo) ActiveUsers(ctx context.Context, since time.Time) ([]models.User, error) {
	return m.ActiveUsersFunc(ctx, since)
}

type mockTokenRepo struct {
	CreateTokenFunc            func(ctx context.Context, userID, token string) error
	UserIDByTokenFunc          func(ctx context.Context, token string) (string, error)
	DeleteTokenFunc            func(ctx context.Context, userID, token string) error
	ConsumeOAuthCredentialFunc func(ctx context.Context, token, secret string) (string, error)
	SavePushTokenFunc          func(ctx context.Context, userID string, t models.PushToken) error
}

func (m *mockTokenRepo) CreateToken(ctx context.Context, userID, token string) error {
	return m.CreateTokenFunc(ctx, userID, token)
}

func (m *mockTokenRepo) UserIDByToken(ctx context.Context, token string) (string, error) {
	return m.UserIDByTokenFunc(ctx, token)
}

func (m *mockTokenRepo) DeleteToken(ctx context.Context, userID, token string) error {
	return m.DeleteTokenFunc(ctx, userID, token)
}

func (m *mockTokenRepo) ConsumeOAuthCredential(ctx context.Context, token, secret string) (string, error) {
	return m.ConsumeOAuthCredentialFunc(ctx, token, secret)
}

func (m *mockTokenRepo) SavePushToken(ctx context.Context, userID string, t models.PushToken) error {
	return m.SavePushTokenFunc(ctx, userID, t)
}

type mockCatalogRepo struct {
	CustomEmojisFunc func(ctx context.Context, since time.Time) ([]models.Emoji, error)
}

func (m *mockCatalogRepo) CustomEmojis(ctx context.Context, since time.Time) ([]models.Emoji, error) {
	return m.CustomEmojisFunc(ctx, since)
}
