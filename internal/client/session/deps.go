package session

import (
	"context"

	"github.com/atinyakov/GophChat/internal/models"
)

// RemoteAuthClient is the chat server API used by the orchestrator.
type RemoteAuthClient interface {
	Login(ctx context.Context, server string, creds models.Credentials) (models.Session, error)
	Logout(ctx context.Context, server string) error

	GetPermissions(ctx context.Context, server string) error
	GetCustomEmojis(ctx context.Context, server string) error
	GetRoles(ctx context.Context, server string) error
	GetSlashCommands(ctx context.Context, server string) error
	RegisterPushToken(ctx context.Context, server string) error
	GetUserPresence(ctx context.Context, server string) error
}

// CredentialStore keeps tokens on the device.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store is the local record store.
type Store interface {
	SaveSession(s models.Session) error
	ActivateServer(server string) error
	Server(url string) (models.ServerIdentity, error)
	DeleteServer(url string) error
}

// Locale switches the display language.
type Locale interface {
	SetLocale(tag string) error
}

// Emitter receives the orchestrator's output events. Emit is called from
// several goroutines and must not block.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(ev Event) { f(ev) }
