package session

import (
	"errors"
	"fmt"
)

var (
	// ErrStopped is returned once Run has returned.
	ErrStopped = errors.New("session orchestrator stopped")
	// ErrSuperseded is the result of a login replaced by a newer request.
	ErrSuperseded = errors.New("login superseded by a newer request")
	// ErrNoServer is returned when no server is selected.
	ErrNoServer = errors.New("no server selected")
)

// AuthError is a failed primary login.
type AuthError struct {
	Server string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login to %s failed: %v", e.Server, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransientFetchError is a failed post-login fetch. It is logged and
// otherwise ignored.
type TransientFetchError struct {
	Fetch string
	Err   error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Fetch, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// PersistenceConflict is a failed write to the local store.
type PersistenceConflict struct {
	Op  string
	Err error
}

func (e *PersistenceConflict) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceConflict) Unwrap() error { return e.Err }

// LogoutRemoteError is a failed server-side logout. Local cleanup still
// happens.
type LogoutRemoteError struct {
	Server string
	Err    error
}

func (e *LogoutRemoteError) Error() string {
	return fmt.Sprintf("logout from %s: %v", e.Server, e.Err)
}

func (e *LogoutRemoteError) Unwrap() error { return e.Err }
