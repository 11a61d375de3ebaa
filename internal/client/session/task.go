package session

import (
	"context"
	"sync"
)

// successTask is the handle of one post-login task. cancel and commit are
// mutually exclusive, so an emission guarded by commit either happens
// completely before a cancellation or not at all.
type successTask struct {
	id    uint64
	owner uint64
	ctx   context.Context

	stop context.CancelFunc

	mu        sync.Mutex
	cancelled bool
}

func newSuccessTask(parent context.Context, id, owner uint64) *successTask {
	ctx, stop := context.WithCancel(parent)
	return &successTask{id: id, owner: owner, ctx: ctx, stop: stop}
}

func (t *successTask) cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
	t.stop()
}

// commit runs fn unless the task was cancelled and reports whether it did.
func (t *successTask) commit(fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled || t.ctx.Err() != nil {
		return false
	}
	fn()
	return true
}

func (t *successTask) live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.cancelled && t.ctx.Err() == nil
}
