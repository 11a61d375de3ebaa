// Package session drives the client's login lifecycle: authentication,
// persistence of the session, post-login fetches, server switches and
// logout.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/GophChat/internal/client/oauth"
	"github.com/atinyakov/GophChat/internal/client/remote"
	"github.com/atinyakov/GophChat/internal/client/storage"
	"github.com/atinyakov/GophChat/internal/logger"
	"github.com/atinyakov/GophChat/internal/models"
)

const defaultEventBuffer = 64

// Deps are the collaborators of an Orchestrator. All fields but Log are
// required.
type Deps struct {
	Remote      RemoteAuthClient
	Credentials CredentialStore
	Store       Store
	Locale      Locale
	Emitter     Emitter
	// Provider is the OAuth provider used to log out.
	Provider string
	Log      *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithServer sets the initially selected server.
func WithServer(url string) Option {
	return func(o *Orchestrator) { o.server = url }
}

// WithEventBuffer sets the capacity of the event queue.
func WithEventBuffer(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.events = make(chan Event, n)
		}
	}
}

// Orchestrator serializes all session events on one goroutine. Network and
// persistence work runs in background goroutines that report back through
// internal events.
type Orchestrator struct {
	deps Deps
	init *Initializer
	log  *zap.Logger

	events   chan Event
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// phase belongs to the attempt numbered phaseOwner; writes from older
	// attempts are dropped.
	phaseMu    sync.Mutex
	phase      Phase
	phaseOwner uint64

	mu     sync.RWMutex
	server string
	adding bool

	// owned by the loop
	runCtx      context.Context
	loginSeq    uint64
	loginCancel context.CancelFunc
	phaseSeq    uint64
	taskSeq     uint64
	task        *successTask
}

// New creates an Orchestrator. Run must be called to process events.
func New(deps Deps, opts ...Option) *Orchestrator {
	log := logger.OrNop(deps.Log)
	o := &Orchestrator{
		deps:   deps,
		init:   NewInitializer(deps.Remote, log),
		log:    log,
		events: make(chan Event, defaultEventBuffer),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes events until ctx is cancelled. Background work is cancelled
// and waited for before Run returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.runCtx = ctx
	defer o.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-o.events:
			o.handle(ev)
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.stopOnce.Do(func() { close(o.done) })
	if o.loginCancel != nil {
		o.loginCancel()
	}
	if o.task != nil {
		o.task.cancel()
	}
	o.wg.Wait()
}

// Dispatch queues ev.
func (o *Orchestrator) Dispatch(ctx context.Context, ev Event) error {
	select {
	case <-o.done:
		return ErrStopped
	default:
	}
	select {
	case o.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrStopped
	}
}

// Login dispatches a LoginRequested and waits for the credentials to be
// accepted or rejected.
func (o *Orchestrator) Login(ctx context.Context, creds models.Credentials) error {
	result := make(chan error, 1)
	if err := o.Dispatch(ctx, LoginRequested{Credentials: creds, Result: result}); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrStopped
	}
}

// LoginOAuth logs in with credentials obtained from an OAuth redirect.
func (o *Orchestrator) LoginOAuth(ctx context.Context, creds models.OAuthCredentials) error {
	return o.Login(ctx, models.Credentials{OAuth: &creds})
}

// Phase returns the state of the most recent login attempt.
func (o *Orchestrator) Phase() Phase {
	o.phaseMu.Lock()
	defer o.phaseMu.Unlock()
	return o.phase
}

// Server returns the selected server.
func (o *Orchestrator) Server() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.server
}

func (o *Orchestrator) selection() (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.server, o.adding
}

// claimPhase starts a new attempt and returns its number. Loop only.
func (o *Orchestrator) claimPhase(p Phase) uint64 {
	o.phaseSeq++
	o.phaseMu.Lock()
	defer o.phaseMu.Unlock()
	o.phaseOwner = o.phaseSeq
	o.phase = p
	return o.phaseSeq
}

func (o *Orchestrator) setPhase(owner uint64, p Phase) {
	o.phaseMu.Lock()
	defer o.phaseMu.Unlock()
	if owner == o.phaseOwner {
		o.phase = p
	}
}

// taskPhase records p unless t was cancelled.
func (o *Orchestrator) taskPhase(t *successTask, p Phase) {
	t.commit(func() { o.setPhase(t.owner, p) })
}

// post is used by background goroutines to hand results to the loop.
func (o *Orchestrator) post(ev Event) {
	select {
	case o.events <- ev:
	case <-o.done:
	}
}

func (o *Orchestrator) goBackground(fn func()) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		fn()
	}()
}

func (o *Orchestrator) handle(ev Event) {
	switch ev := ev.(type) {
	case LoginRequested:
		o.handleLoginRequested(ev)
	case loginFinished:
		o.handleLoginFinished(ev)
	case LoginSucceeded:
		o.startSuccessTask(ev.Session, o.claimPhase(PhaseAuthenticated))
	case taskFinished:
		o.handleTaskFinished(ev)
	case ServerSwitchRequested:
		o.handleServerSwitch(ev)
	case LogoutRequested:
		o.handleLogout()
	case UserUpdated:
		o.handleUserUpdated(ev)
	case AppInitRequested:
		o.handleAppInit()
	default:
		o.log.Warn("ignoring unexpected event", zap.Any("event", ev))
	}
}

func (o *Orchestrator) handleLoginRequested(ev LoginRequested) {
	if o.loginCancel != nil {
		o.loginCancel()
	}
	o.loginSeq++
	seq := o.loginSeq
	ctx, cancel := context.WithCancel(o.runCtx)
	o.loginCancel = cancel

	server := o.Server()
	attempt := uuid.NewString()
	owner := o.claimPhase(PhaseAuthenticating)
	o.log.Debug("login requested", zap.String("server", server), zap.String("attempt", attempt))

	o.goBackground(func() {
		var (
			s   models.Session
			err error
		)
		if server == "" {
			err = ErrNoServer
		} else {
			s, err = o.deps.Remote.Login(ctx, server, ev.Credentials)
		}
		if err == nil && s.Server == "" {
			s.Server = server
		}
		o.post(loginFinished{seq: seq, owner: owner, attempt: attempt, session: s, err: err, result: ev.Result})
	})
}

func reply(ch chan<- error, err error) {
	if ch == nil {
		return
	}
	select {
	case ch <- err:
	default:
	}
}

func (o *Orchestrator) handleLoginFinished(ev loginFinished) {
	log := o.log.With(zap.String("attempt", ev.attempt))
	if ev.seq != o.loginSeq {
		log.Debug("discarding superseded login")
		reply(ev.result, ErrSuperseded)
		return
	}
	if o.loginCancel != nil {
		o.loginCancel()
		o.loginCancel = nil
	}

	if ev.err != nil {
		authErr := &AuthError{Server: o.Server(), Err: ev.err}
		o.setPhase(ev.owner, PhaseFailed)
		log.Info("login failed", zap.Error(authErr))
		o.deps.Emitter.Emit(LoginFailed{Err: authErr})
		reply(ev.result, authErr)
		return
	}

	log.Info("login succeeded", zap.String("server", ev.session.Server), zap.String("user_id", ev.session.UserID))
	reply(ev.result, nil)
	o.startSuccessTask(ev.session, o.claimPhase(PhaseAuthenticated))
}

func (o *Orchestrator) startSuccessTask(s models.Session, owner uint64) {
	if o.task != nil {
		o.task.cancel()
	}
	server, adding := o.selection()
	if s.Server == "" {
		s.Server = server
	}
	if s.Server != server {
		adding = false
	}

	o.taskSeq++
	t := newSuccessTask(o.runCtx, o.taskSeq, owner)
	o.task = t

	o.goBackground(func() {
		res := o.runSuccessTask(t, s, adding)
		o.post(taskFinished{id: t.id, addFinished: res.added, activated: res.activated})
	})
}

type taskResult struct {
	added     string
	activated bool
}

// runSuccessTask performs the post-login steps.
func (o *Orchestrator) runSuccessTask(t *successTask, s models.Session, adding bool) (res taskResult) {
	log := o.log.With(zap.String("server", s.Server), zap.String("user_id", s.UserID))
	// Persistence must not be interrupted half way, only the fetches and
	// the final emission observe the task's cancellation.
	ctx := context.WithoutCancel(t.ctx)

	o.taskPhase(t, PhasePersisting)
	if err := o.deps.Credentials.Set(ctx, storage.TokenKey, s.AuthToken); err != nil {
		log.Error("failed to store auth token", zap.Error(err))
		return res
	}

	group := o.init.Start(remote.WithApply(t.ctx, t.commit), s.Server)
	defer group.Wait()

	if s.Language != "" {
		if err := o.deps.Locale.SetLocale(s.Language); err != nil {
			log.Warn("failed to set locale", zap.String("language", s.Language), zap.Error(err))
		}
	}

	// A cancelled task still stores its session, but never as the active one.
	s.Active = t.live()
	if err := o.deps.Store.SaveSession(s); err != nil {
		log.Warn("session not persisted", zap.Error(&PersistenceConflict{Op: "save session", Err: err}))
	} else {
		res.activated = s.Active
	}

	if err := o.deps.Credentials.Set(ctx, storage.ServerTokenKey(s.Server), s.UserID); err != nil {
		log.Error("failed to store user id", zap.Error(err))
		return res
	}

	o.taskPhase(t, PhaseSideEffectsRunning)
	committed := t.commit(func() {
		o.deps.Emitter.Emit(Connected{})
		switch {
		case s.Username == "":
			o.deps.Emitter.Emit(AppStateChanged{Target: AppSetUsername})
		case adding:
			o.deps.Emitter.Emit(ServerAddFinished{Server: s.Server})
			o.deps.Emitter.Emit(AppStateChanged{Target: AppInside})
			res.added = s.Server
		default:
			o.deps.Emitter.Emit(AppStateChanged{Target: AppInside})
		}
		o.setPhase(t.owner, PhaseReady)
	})
	if !committed {
		log.Info("post-login task cancelled before routing")
	}
	return res
}

func (o *Orchestrator) handleTaskFinished(ev taskFinished) {
	current := o.task != nil && o.task.id == ev.id
	if current {
		o.task = nil
	}
	if !current && ev.activated {
		// The task was cancelled after deciding to activate its session.
		server := o.Server()
		if err := o.deps.Store.ActivateServer(server); err != nil {
			o.log.Warn("failed to restore active session", zap.String("server", server),
				zap.Error(&PersistenceConflict{Op: "activate server", Err: err}))
		}
	}
	if ev.addFinished == "" {
		return
	}
	o.mu.Lock()
	if o.server == ev.addFinished {
		o.adding = false
	}
	o.mu.Unlock()
}

func (o *Orchestrator) handleServerSwitch(ev ServerSwitchRequested) {
	if o.task != nil {
		o.task.cancel()
		o.task = nil
	}

	o.mu.Lock()
	o.server = ev.Server
	o.adding = ev.Adding
	o.mu.Unlock()

	log := o.log.With(zap.String("server", ev.Server))
	log.Info("server selected", zap.Bool("adding", ev.Adding))

	if err := o.deps.Credentials.Set(o.runCtx, storage.CurrentServerKey, ev.Server); err != nil {
		log.Warn("failed to remember selected server", zap.Error(err))
	}
	if err := o.deps.Store.ActivateServer(ev.Server); err != nil {
		log.Warn("failed to activate server sessions", zap.Error(&PersistenceConflict{Op: "activate server", Err: err}))
	}
}

func (o *Orchestrator) handleLogout() {
	server := o.Server()
	if server == "" {
		o.log.Warn("logout requested without a selected server")
		return
	}
	ctx := o.runCtx
	o.goBackground(func() { o.logout(ctx, server) })
}

func (o *Orchestrator) logout(ctx context.Context, server string) {
	log := o.log.With(zap.String("server", server))

	srv, err := o.deps.Store.Server(server)
	if err != nil {
		log.Warn("logout skipped: server unknown", zap.Error(err))
		return
	}
	svc, ok := srv.Services[o.deps.Provider]
	if !ok {
		log.Warn("logout skipped: provider not configured", zap.String("provider", o.deps.Provider))
		return
	}

	if err := o.deps.Remote.Logout(ctx, server); err != nil {
		log.Warn("server logout failed", zap.Error(&LogoutRemoteError{Server: server, Err: err}))
	}

	if err := o.deps.Store.DeleteServer(server); err != nil {
		log.Warn("failed to delete server", zap.Error(&PersistenceConflict{Op: "delete server", Err: err}))
	}
	for _, key := range []string{storage.TokenKey, storage.ServerTokenKey(server)} {
		if err := o.deps.Credentials.Delete(context.WithoutCancel(ctx), key); err != nil {
			log.Warn("failed to delete credential", zap.String("key", key), zap.Error(err))
		}
	}

	logoutURL, err := oauth.LogoutURL(server, o.deps.Provider, svc)
	if err != nil {
		log.Error("failed to build logout url", zap.Error(err))
		return
	}
	o.deps.Emitter.Emit(AppStateChanged{Target: AppLogout})
	o.deps.Emitter.Emit(OpenLogoutWebFlow{URL: logoutURL})
}

func (o *Orchestrator) handleUserUpdated(ev UserUpdated) {
	if ev.User.Language == "" {
		return
	}
	if err := o.deps.Locale.SetLocale(ev.User.Language); err != nil {
		o.log.Warn("failed to set locale", zap.String("language", ev.User.Language), zap.Error(err))
	}
}

func (o *Orchestrator) handleAppInit() {
	server := o.Server()
	ctx := o.runCtx
	o.goBackground(func() {
		if server == "" {
			o.deps.Emitter.Emit(AppStateChanged{Target: AppOutside})
			return
		}
		token, err := o.resumeToken(ctx, server)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				o.log.Warn("failed to read stored credentials", zap.Error(err))
			}
			o.deps.Emitter.Emit(AppStateChanged{Target: AppOutside})
			return
		}
		if err := o.Login(ctx, models.Credentials{Resume: token}); err != nil {
			if !errors.Is(err, ErrSuperseded) && !errors.Is(err, ErrStopped) && ctx.Err() == nil {
				o.deps.Emitter.Emit(AppStateChanged{Target: AppOutside})
			}
		}
	})
}

// resumeToken returns the stored token if server had a session on this
// device.
func (o *Orchestrator) resumeToken(ctx context.Context, server string) (string, error) {
	if _, err := o.deps.Credentials.Get(ctx, storage.ServerTokenKey(server)); err != nil {
		return "", err
	}
	return o.deps.Credentials.Get(ctx, storage.TokenKey)
}
