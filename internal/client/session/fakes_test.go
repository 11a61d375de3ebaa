package session

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophChat/internal/client/database"
	"github.com/atinyakov/GophChat/internal/client/storage"
	"github.com/atinyakov/GophChat/internal/models"
)

const (
	serverA = "https://a.example"
	serverB = "https://b.example"
)

// fakeRemote is a RemoteAuthClient whose behaviour is set through function
// fields. Unset fields succeed.
type fakeRemote struct {
	loginFn  func(ctx context.Context, server string, creds models.Credentials) (models.Session, error)
	logoutFn func(ctx context.Context, server string) error
	fetchFn  func(ctx context.Context, server, name string) error

	mu     sync.Mutex
	logins []models.Credentials
	calls  []string
}

func (r *fakeRemote) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *fakeRemote) Login(ctx context.Context, server string, creds models.Credentials) (models.Session, error) {
	r.mu.Lock()
	r.logins = append(r.logins, creds)
	r.mu.Unlock()
	if r.loginFn != nil {
		return r.loginFn(ctx, server, creds)
	}
	return models.Session{Server: server, UserID: "u1", AuthToken: "t1", Username: "alice"}, nil
}

func (r *fakeRemote) Logout(ctx context.Context, server string) error {
	r.record("logout " + server)
	if r.logoutFn != nil {
		return r.logoutFn(ctx, server)
	}
	return nil
}

func (r *fakeRemote) fetch(ctx context.Context, server, name string) error {
	r.record(name + " " + server)
	if r.fetchFn != nil {
		return r.fetchFn(ctx, server, name)
	}
	return nil
}

func (r *fakeRemote) GetPermissions(ctx context.Context, server string) error {
	return r.fetch(ctx, server, "permissions")
}

func (r *fakeRemote) GetCustomEmojis(ctx context.Context, server string) error {
	return r.fetch(ctx, server, "custom-emojis")
}

func (r *fakeRemote) GetRoles(ctx context.Context, server string) error {
	return r.fetch(ctx, server, "roles")
}

func (r *fakeRemote) GetSlashCommands(ctx context.Context, server string) error {
	return r.fetch(ctx, server, "slash-commands")
}

func (r *fakeRemote) RegisterPushToken(ctx context.Context, server string) error {
	return r.fetch(ctx, server, "push-token")
}

func (r *fakeRemote) GetUserPresence(ctx context.Context, server string) error {
	return r.fetch(ctx, server, "user-presence")
}

func (r *fakeRemote) loginCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logins)
}

// memCredentials is an in-memory CredentialStore.
type memCredentials struct {
	mu     sync.Mutex
	values map[string]string
	setErr map[string]error
}

func newMemCredentials() *memCredentials {
	return &memCredentials{values: map[string]string{}, setErr: map[string]error{}}
}

func (m *memCredentials) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (m *memCredentials) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.setErr[key]; err != nil {
		return err
	}
	m.values[key] = value
	return nil
}

func (m *memCredentials) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memCredentials) value(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

// hookedStore wraps the real database and lets tests intercept session
// writes.
type hookedStore struct {
	*database.DB
	beforeSave func(models.Session) error
}

func (s *hookedStore) SaveSession(sess models.Session) error {
	if s.beforeSave != nil {
		if err := s.beforeSave(sess); err != nil {
			return err
		}
	}
	return s.DB.SaveSession(sess)
}

type fakeLocale struct {
	onSet func(tag string)

	mu   sync.Mutex
	tags []string
}

func (l *fakeLocale) SetLocale(tag string) error {
	if l.onSet != nil {
		l.onSet(tag)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tags = append(l.tags, tag)
	return nil
}

func (l *fakeLocale) last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tags) == 0 {
		return ""
	}
	return l.tags[len(l.tags)-1]
}

// recorder collects emitted events. trace, when set, receives a marker for
// every event so tests can check ordering against other collaborators.
type recorder struct {
	mu     sync.Mutex
	events []Event
	trace  *trace
}

func (r *recorder) Emit(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if r.trace != nil {
		r.trace.add(reflect.TypeOf(ev).Name())
	}
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) count(ev Event) int {
	n := 0
	for _, e := range r.all() {
		if reflect.TypeOf(e) == reflect.TypeOf(ev) {
			n++
		}
	}
	return n
}

func (r *recorder) has(ev Event) bool {
	for _, e := range r.all() {
		if reflect.DeepEqual(e, ev) {
			return true
		}
	}
	return false
}

type trace struct {
	mu    sync.Mutex
	steps []string
}

func (t *trace) add(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, step)
}

func (t *trace) index(step string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.steps {
		if s == step {
			return i
		}
	}
	return -1
}

type harness struct {
	o      *Orchestrator
	remote *fakeRemote
	creds  *memCredentials
	store  *hookedStore
	locale *fakeLocale
	events *recorder
	trace  *trace
}

func newHarness(t *testing.T, remote *fakeRemote, opts ...Option) *harness {
	t.Helper()
	db, err := database.Open("", true, nil)
	require.NoError(t, err)

	tr := &trace{}
	h := &harness{
		remote: remote,
		creds:  newMemCredentials(),
		store:  &hookedStore{DB: db},
		locale: &fakeLocale{},
		events: &recorder{trace: tr},
		trace:  tr,
	}
	if len(opts) == 0 {
		opts = []Option{WithServer(serverA)}
	}
	h.o = New(Deps{
		Remote:      remote,
		Credentials: h.creds,
		Store:       h.store,
		Locale:      h.locale,
		Emitter:     h.events,
		Provider:    "edinnova",
	}, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.o.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = db.Close()
	})
	return h
}

func (h *harness) dispatch(t *testing.T, ev Event) {
	t.Helper()
	require.NoError(t, h.o.Dispatch(context.Background(), ev))
}

func (h *harness) countActive(t *testing.T) int {
	t.Helper()
	var active []models.Session
	require.NoError(t, h.store.Query(&active, nil))
	n := 0
	for _, s := range active {
		if s.Active {
			n++
		}
	}
	return n
}

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond
