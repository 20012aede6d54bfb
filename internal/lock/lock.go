/**
 * @description
 * This package implements the in-process lock coordinator used by the transfer
 * path. It maintains a keyed table of per-benefit exclusive locks so that two
 * transfers sharing a benefit never interleave their critical sections, while
 * transfers over disjoint pairs proceed in parallel.
 *
 * Locks are always acquired in ascending identifier order regardless of which
 * side is the source, which makes opposite-direction transfers over the same
 * pair deadlock-free. Acquisition waits are bounded: when the configured wait
 * expires the caller gets a retryable LOCK_TIMEOUT rejection instead of
 * blocking forever.
 *
 * @dependencies
 * - github.com/google/uuid: Benefit identifiers used as lock keys.
 * - internal/domain: The rejection taxonomy for timeout reporting.
 */

package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beneficio/benefit-service/internal/domain"
)

// DefaultWait bounds lock acquisition when no explicit wait is configured.
const DefaultWait = 5 * time.Second

// entry is a single keyed lock. The buffered channel acts as a mutex that can
// be waited on together with a timer and a context.
type entry struct {
	ch   chan struct{}
	refs int
}

// Coordinator hands out exclusive per-identifier holds. The zero value is not
// usable; construct with NewCoordinator.
type Coordinator struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	wait    time.Duration
}

// NewCoordinator returns a coordinator whose acquisitions wait at most the
// given duration. A zero or negative wait means block until the lock frees or
// the context is done.
func NewCoordinator(wait time.Duration) *Coordinator {
	return &Coordinator{
		entries: make(map[uuid.UUID]*entry),
		wait:    wait,
	}
}

// WithLock runs fn while holding the exclusive lock for id.
func (c *Coordinator) WithLock(ctx context.Context, id uuid.UUID, fn func() error) error {
	if err := c.acquire(ctx, id); err != nil {
		return err
	}
	defer c.release(id)

	return fn()
}

// WithLocks runs fn while holding the exclusive locks for both identifiers.
// The locks are taken in ascending identifier order, never in argument order,
// and both are released when fn returns, on success or failure.
func (c *Coordinator) WithLocks(ctx context.Context, a, b uuid.UUID, fn func() error) error {
	if a == b {
		return c.WithLock(ctx, a, fn)
	}

	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}

	if err := c.acquire(ctx, first); err != nil {
		return err
	}
	defer c.release(first)

	if err := c.acquire(ctx, second); err != nil {
		return err
	}
	defer c.release(second)

	return fn()
}

func (c *Coordinator) acquire(ctx context.Context, id uuid.UUID) error {
	e := c.retain(id)

	var timeout <-chan time.Time
	if c.wait > 0 {
		timer := time.NewTimer(c.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	case <-timeout:
		c.forget(id)
		return domain.NewRejection(domain.RejectionLockTimeout,
			"timed out after %s waiting for lock on benefit %s", c.wait, id)
	}
}

func (c *Coordinator) release(id uuid.UUID) {
	c.mu.Lock()
	e := c.entries[id]
	c.mu.Unlock()

	<-e.ch
	c.forget(id)
}

// retain returns the lock entry for id, creating it on first use and bumping
// its refcount so concurrent waiters share one entry.
func (c *Coordinator) retain(id uuid.UUID) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		c.entries[id] = e
	}
	e.refs++

	return e
}

// forget drops one reference to the lock entry for id, removing it from the
// table once nobody holds or waits on it. Keeps the table from growing with
// every identifier ever locked.
func (c *Coordinator) forget(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(c.entries, id)
	}
}
