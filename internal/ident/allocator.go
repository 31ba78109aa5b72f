// Package ident issues globally unique case identifiers. The allocator
// is an explicit, injectable component: tests instantiate independent
// allocators against their own stores.
package ident

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CounterStore persists the allocator counter and exposes the highest
// case number already in use, so a restarted allocator can verify its
// checkpoint against reality.
type CounterStore interface {
	// LoadCounter returns the checkpointed next-to-issue value, or 0 if
	// no checkpoint exists.
	LoadCounter(ctx context.Context) (int64, error)
	// SaveCounter checkpoints the next-to-issue value.
	SaveCounter(ctx context.Context, next int64) error
	// MaxCaseNum returns the highest case number present in the store,
	// or 0 for an empty store.
	MaxCaseNum(ctx context.Context) (int64, error)
}

// ErrCounterBehind is returned when the persisted counter would reissue
// an id already in use. Issuing a colliding id breaks the uniqueness
// invariant for the whole corpus, so this is fatal, not a warning.
var ErrCounterBehind = eris.New("ident: persisted counter behind max case id in use")

// Allocator hands out monotonically increasing case numbers. Next is
// safe for concurrent use by generation workers.
type Allocator struct {
	mu    sync.Mutex
	next  int64
	store CounterStore
}

// New creates an allocator backed by the given store. Call Restore
// before the first Next.
func New(store CounterStore) *Allocator {
	return &Allocator{store: store}
}

// Restore initializes the counter from the checkpoint, cross-checking
// it against the ids actually present. A checkpoint that lags the true
// maximum fails with ErrCounterBehind rather than silently colliding.
func (a *Allocator) Restore(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	persisted, err := a.store.LoadCounter(ctx)
	if err != nil {
		return eris.Wrap(err, "ident: load counter")
	}
	maxInUse, err := a.store.MaxCaseNum(ctx)
	if err != nil {
		return eris.Wrap(err, "ident: scan max case id")
	}

	if persisted > 0 && persisted <= maxInUse {
		return eris.Wrapf(ErrCounterBehind, "counter=%d max_in_use=%d", persisted, maxInUse)
	}

	a.next = maxInUse + 1
	if persisted > a.next {
		a.next = persisted
	}

	zap.L().Debug("ident: allocator restored",
		zap.Int64("next", a.next),
		zap.Int64("max_in_use", maxInUse),
	)
	return nil
}

// Next returns the next unique case number. No two calls ever return
// the same value.
func (a *Allocator) Next() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.next
	a.next++
	return n
}

// Peek returns the value the next call to Next would issue.
func (a *Allocator) Peek() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// Checkpoint persists the counter so a restarted process resumes
// without reissuing consumed ids.
func (a *Allocator) Checkpoint(ctx context.Context) error {
	a.mu.Lock()
	next := a.next
	a.mu.Unlock()
	if err := a.store.SaveCounter(ctx, next); err != nil {
		return eris.Wrap(err, "ident: save counter")
	}
	return nil
}
