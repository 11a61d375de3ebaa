package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches a StatusError carrying 401 or 403.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoSession is returned by authenticated calls for a server the
	// client has not logged in to.
	ErrNoSession = errors.New("no session for server")
)

// StatusError is a non-2xx reply.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}
