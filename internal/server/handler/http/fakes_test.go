package http

import (
	"context"
	"time"

	"github.com/atinyakov/GophChat/internal/models"
	"github.com/atinyakov/GophChat/internal/service"
)

// fakeAuthService implements AuthService for testing. Unset functions fail
// the credentials they are given.
type fakeAuthService struct {
	registerFn  func(ctx context.Context, username, email, password, language string) (models.User, error)
	passwordFn  func(ctx context.Context, login, password string) (service.LoginResult, error)
	resumeFn    func(ctx context.Context, token string) (service.LoginResult, error)
	oauthFn     func(ctx context.Context, creds models.OAuthCredentials) (service.LoginResult, error)
	logoutFn    func(ctx context.Context, userID, token string) error
	pushTokenFn func(ctx context.Context, userID string, t models.PushToken) error

	// tokens maps a valid login token to its user id.
	tokens map[string]string
}

func (f *fakeAuthService) Register(ctx context.Context, username, email, password, language string) (models.User, error) {
	return f.registerFn(ctx, username, email, password, language)
}

func (f *fakeAuthService) LoginWithPassword(ctx context.Context, login, password string) (service.LoginResult, error) {
	if f.passwordFn == nil {
		return service.LoginResult{}, service.ErrInvalidCredentials
	}
	return f.passwordFn(ctx, login, password)
}

func (f *fakeAuthService) Resume(ctx context.Context, token string) (service.LoginResult, error) {
	if f.resumeFn == nil {
		return service.LoginResult{}, service.ErrInvalidCredentials
	}
	return f.resumeFn(ctx, token)
}

func (f *fakeAuthService) LoginOAuth(ctx context.Context, creds models.OAuthCredentials) (service.LoginResult, error) {
	if f.oauthFn == nil {
		return service.LoginResult{}, service.ErrInvalidCredentials
	}
	return f.oauthFn(ctx, creds)
}

func (f *fakeAuthService) Logout(ctx context.Context, userID, token string) error {
	if f.logoutFn == nil {
		delete(f.tokens, token)
		return nil
	}
	return f.logoutFn(ctx, userID, token)
}

func (f *fakeAuthService) Authenticate(_ context.Context, userID, token string) error {
	if owner, ok := f.tokens[token]; ok && owner == userID {
		return nil
	}
	return service.ErrUnauthorized
}

func (f *fakeAuthService) RegisterPushToken(ctx context.Context, userID string, t models.PushToken) error {
	if f.pushTokenFn == nil {
		return nil
	}
	return f.pushTokenFn(ctx, userID, t)
}

type fakeCatalogService struct {
	since time.Time
	err   error
}

func (f *fakeCatalogService) Permissions(context.Context) ([]models.Permission, error) {
	return []models.Permission{{ID: "create-c", Roles: []string{"user"}}}, f.err
}

func (f *fakeCatalogService) Emojis(_ context.Context, since time.Time) ([]models.Emoji, error) {
	f.since = since
	return []models.Emoji{{ID: "e1", Name: "party", Aliases: []string{"tada"}, Extension: "gif"}}, f.err
}

func (f *fakeCatalogService) Roles(context.Context) ([]models.Role, error) {
	return []models.Role{{ID: "user", Name: "user", Scope: "Users"}}, f.err
}

func (f *fakeCatalogService) Commands(context.Context) ([]models.SlashCommand, error) {
	return []models.SlashCommand{{Command: "me"}}, f.err
}

func (f *fakeCatalogService) Presence(context.Context) ([]models.Presence, error) {
	return []models.Presence{{ID: "u1", Username: "alice", Status: "online"}}, f.err
}
