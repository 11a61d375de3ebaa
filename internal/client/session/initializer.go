package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/GophChat/internal/logger"
)

type fetch struct {
	name string
	call func(ctx context.Context, server string) error
}

// Initializer runs the post-login fetches.
type Initializer struct {
	fetches []fetch
	log     *zap.Logger
}

// NewInitializer creates an Initializer fetching from remote.
func NewInitializer(remote RemoteAuthClient, log *zap.Logger) *Initializer {
	return &Initializer{
		fetches: []fetch{
			{"permissions", remote.GetPermissions},
			{"custom-emojis", remote.GetCustomEmojis},
			{"roles", remote.GetRoles},
			{"slash-commands", remote.GetSlashCommands},
			{"push-token", remote.RegisterPushToken},
			{"user-presence", remote.GetUserPresence},
		},
		log: logger.OrNop(log),
	}
}

// Group is a running set of fetches sharing one cancellable context.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Start launches every fetch for server concurrently. Cancelling ctx or the
// returned Group stops them; results arriving afterwards are discarded.
func (i *Initializer) Start(ctx context.Context, server string) *Group {
	gctx, cancel := context.WithCancel(ctx)
	g := &Group{ctx: gctx, cancel: cancel}
	log := i.log.With(zap.String("server", server))

	for _, f := range i.fetches {
		g.wg.Add(1)
		go func(f fetch) {
			defer g.wg.Done()
			err := f.call(gctx, server)
			if gctx.Err() != nil {
				log.Debug("fetch result discarded", zap.String("fetch", f.name))
				return
			}
			if err != nil {
				log.Warn("fetch failed", zap.Error(&TransientFetchError{Fetch: f.name, Err: err}))
				return
			}
			log.Debug("fetch applied", zap.String("fetch", f.name))
		}(f)
	}
	return g
}

// Cancel stops the group.
func (g *Group) Cancel() {
	g.cancel()
}

// Wait blocks until every fetch returned and releases the group's context.
func (g *Group) Wait() {
	g.wg.Wait()
	g.cancel()
}
