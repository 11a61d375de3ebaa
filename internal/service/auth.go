// Package service holds the business logic of the development chat server,
// delegating persistence to repositories.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/GophChat/internal/models"
	"github.com/atinyakov/GophChat/internal/repository"
)

// UserRepository defines the user persistence required by the services.
type UserRepository interface {
	UserExists(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, u models.User) error
	FindByLogin(ctx context.Context, login string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

// TokenRepository defines the token persistence required by AuthService.
type TokenRepository interface {
	CreateToken(ctx context.Context, userID, token string) error
	UserIDByToken(ctx context.Context, token string) (string, error)
	DeleteToken(ctx context.Context, userID, token string) error
	ConsumeOAuthCredential(ctx context.Context, token, secret string) (string, error)
	SavePushToken(ctx context.Context, userID string, t models.PushToken) error
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	UserID    string
	AuthToken string
	Me        models.User
}

// AuthService registers users and issues, checks and revokes login tokens.
type AuthService struct {
	users  UserRepository
	tokens TokenRepository
	// cost is the bcrypt cost of new password hashes.
	cost int
}

// NewAuthService constructs an AuthService on the given repositories.
func NewAuthService(users UserRepository, tokens TokenRepository) *AuthService {
	return &AuthService{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Register creates a user with a hashed password.
func (s *AuthService) Register(ctx context.Context, username, email, password, language string) (models.User, error) {
	exists, err := s.users.UserExists(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Language:     language,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return models.User{}, ErrUserExists
		}
		return models.User{}, err
	}
	u.PasswordHash = nil
	return u, nil
}

// LoginWithPassword checks login (username or email) and password and
// issues a new token.
func (s *AuthService) LoginWithPassword(ctx context.Context, login, password string) (LoginResult, error) {
	u, err := s.users.FindByLogin(ctx, login)
	if errors.Is(err, repository.ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

// Resume logs in again with a token issued earlier. The token stays the same.
func (s *AuthService) Resume(ctx context.Context, token string) (LoginResult, error) {
	userID, err := s.tokens.UserIDByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	u, err := s.findUser(ctx, userID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{UserID: u.ID, AuthToken: token, Me: u}, nil
}

// LoginOAuth exchanges one-time OAuth credentials for a new token.
func (s *AuthService) LoginOAuth(ctx context.Context, creds models.OAuthCredentials) (LoginResult, error) {
	userID, err := s.tokens.ConsumeOAuthCredential(ctx, creds.CredentialToken, creds.CredentialSecret)
	if errors.Is(err, repository.ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	u, err := s.findUser(ctx, userID)
	if err != nil {
		return LoginResult{}, err
	}
	return s.issue(ctx, u)
}

// Logout revokes token.
func (s *AuthService) Logout(ctx context.Context, userID, token string) error {
	return s.tokens.DeleteToken(ctx, userID, token)
}

// Authenticate checks that token was issued to userID.
func (s *AuthService) Authenticate(ctx context.Context, userID, token string) error {
	owner, err := s.tokens.UserIDByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUnauthorized
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrUnauthorized
	}
	return nil
}

// RegisterPushToken stores the device push token of userID.
func (s *AuthService) RegisterPushToken(ctx context.Context, userID string, t models.PushToken) error {
	return s.tokens.SavePushToken(ctx, userID, t)
}

func (s *AuthService) findUser(ctx context.Context, id string) (models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		// the token outlived its user
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	u.PasswordHash = nil
	return u, nil
}

func (s *AuthService) issue(ctx context.Context, u models.User) (LoginResult, error) {
	token := rand.Text()
	if err := s.tokens.CreateToken(ctx, u.ID, token); err != nil {
		return LoginResult{}, err
	}
	u.PasswordHash = nil
	return LoginResult{UserID: u.ID, AuthToken: token, Me: u}, nil
}
