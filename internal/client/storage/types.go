// Package storage keeps authentication tokens on the device, partitioned by
// server.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("credential not found")

// TokenKey holds the auth token of the most recent login.
const TokenKey = "reactnativemeteor_usertoken"

// CurrentServerKey holds the URL of the selected server.
const CurrentServerKey = "currentServer"

// ServerTokenKey returns the per-server key holding the user ID of the
// session on server.
func ServerTokenKey(server string) string {
	return TokenKey + "-" + server
}

// CredentialStore is a persistent key-value store for credentials. There are
// no transactions spanning multiple keys.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
