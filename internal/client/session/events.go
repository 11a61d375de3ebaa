package session

import "github.com/atinyakov/GophChat/internal/models"

// Event is an input or output of the Orchestrator.
type Event interface {
	isEvent()
}

// LoginRequested starts a login against the current server. A newer request
// cancels one still in flight. Result, if set, receives nil once the
// credentials were accepted or the *AuthError otherwise; it should be
// buffered.
type LoginRequested struct {
	Credentials models.Credentials
	Result      chan<- error
}

// LoginSucceeded starts the post-login task for Session.
type LoginSucceeded struct {
	Session models.Session
}

// ServerSwitchRequested selects another server and cancels the running
// post-login task.
type ServerSwitchRequested struct {
	Server string
	Adding bool
}

// LogoutRequested logs out of the current server.
type LogoutRequested struct{}

// UserUpdated carries a changed user record.
type UserUpdated struct {
	User models.User
}

// AppInitRequested restarts the application from stored credentials.
type AppInitRequested struct{}

// Connected is emitted once per login, after the session was persisted.
type Connected struct{}

// AppTarget is a top-level screen of the application.
type AppTarget string

const (
	AppOutside     AppTarget = "outside"
	AppInside      AppTarget = "inside"
	AppSetUsername AppTarget = "setUsername"
	AppLogout      AppTarget = "logout"
)

// AppStateChanged routes the application to Target.
type AppStateChanged struct {
	Target AppTarget
}

// LoginFailed reports a rejected login. Err is an *AuthError.
type LoginFailed struct {
	Err error
}

// OpenLogoutWebFlow asks the UI to show URL in the embedded browser.
type OpenLogoutWebFlow struct {
	URL string
}

// ServerAddFinished is emitted when a login made while adding Server
// completed.
type ServerAddFinished struct {
	Server string
}

func (LoginRequested) isEvent()        {}
func (LoginSucceeded) isEvent()        {}
func (ServerSwitchRequested) isEvent() {}
func (LogoutRequested) isEvent()       {}
func (UserUpdated) isEvent()           {}
func (AppInitRequested) isEvent()      {}
func (Connected) isEvent()             {}
func (AppStateChanged) isEvent()       {}
func (LoginFailed) isEvent()           {}
func (OpenLogoutWebFlow) isEvent()     {}
func (ServerAddFinished) isEvent()     {}

// loginFinished reports the outcome of a remote login back to the loop.
type loginFinished struct {
	seq     uint64
	owner   uint64
	attempt string
	session models.Session
	err     error
	result  chan<- error
}

// taskFinished reports that a post-login task and all its fetches ended.
type taskFinished struct {
	id          uint64
	addFinished string
	// activated is set when the task stored its session as the active one.
	activated bool
}

func (loginFinished) isEvent() {}
func (taskFinished) isEvent()  {}

// Phase is the state of the most recent login attempt.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseAuthenticating
	PhaseAuthenticated
	PhaseFailed
	PhasePersisting
	PhaseSideEffectsRunning
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseFailed:
		return "failed"
	case PhasePersisting:
		return "persisting"
	case PhaseSideEffectsRunning:
		return "side-effects-running"
	case PhaseReady:
		return "ready"
	}
	return "unknown"
}
