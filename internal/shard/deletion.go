package shard

import (
	"context"
	"sync"
	"sync/atomic"
)

// PendingDeletion is the registry's request to drop a shard's storage. The
// storage may be removed only once Approve has been called, which the
// searcher does after publishing a view that no longer references the shard.
type PendingDeletion struct {
	shard    *Shard
	approved atomic.Bool
	once     sync.Once
	done     chan struct{}
}

// NewPendingDeletion creates an unapproved deletion for sh.
func NewPendingDeletion(sh *Shard) *PendingDeletion {
	return &PendingDeletion{shard: sh, done: make(chan struct{})}
}

// Shard returns the shard being deleted.
func (d *PendingDeletion) Shard() *Shard {
	return d.shard
}

// Approve marks the deletion approved and wakes all waiters. Idempotent.
func (d *PendingDeletion) Approve() {
	d.once.Do(func() {
		d.approved.Store(true)
		close(d.done)
	})
}

// Approved reports whether Approve has been called.
func (d *PendingDeletion) Approved() bool {
	return d.approved.Load()
}

// Done is closed on approval.
func (d *PendingDeletion) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the deletion is approved or ctx ends.
func (d *PendingDeletion) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
