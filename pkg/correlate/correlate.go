// Package correlate matches replies delivered over a message bus to the
// requests waiting on them.
package correlate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrUnknownID is returned when awaiting an id that was never registered.
	ErrUnknownID = errors.New("unknown correlation id")
	// ErrDuplicateID is returned when registering an id that is already
	// pending.
	ErrDuplicateID = errors.New("correlation id already registered")
)

// Waiter tracks pending correlation ids. It is safe to use from multiple
// goroutines and stops waking waiters once its context is cancelled.
type Waiter struct {
	sync.Mutex
	sync.Cond
	ctx context.Context

	pending map[string]*reply
}

type reply struct {
	done    bool
	payload []byte
}

// NewWaiter returns a waiter tied to the lifetime of ctx. Cancelling ctx
// releases every blocked Await.
// Calling NewWaiter spawns a goroutine to handle cancellation.
func NewWaiter(ctx context.Context) *Waiter {
	w := Waiter{
		ctx:     ctx,
		pending: make(map[string]*reply),
	}
	// the waiter's mutex also serves as the sync.Cond locker
	w.L = &w

	go func() {
		<-ctx.Done()
		w.Lock()
		defer w.Unlock()
		w.Broadcast()
	}()
	return &w
}

// Register starts tracking id. It must be called before the request is
// published so a fast reply is not lost.
func (w *Waiter) Register(id string) error {
	w.Lock()
	defer w.Unlock()
	if _, ok := w.pending[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	w.pending[id] = &reply{}
	return nil
}

// Resolve delivers the reply for id, waking its waiter. It reports false
// when nothing is waiting on id.
func (w *Waiter) Resolve(id string, payload []byte) bool {
	w.Lock()
	defer w.Unlock()
	r, ok := w.pending[id]
	if !ok || r.done {
		return false
	}
	r.done = true
	r.payload = payload
	w.Broadcast()
	return true
}

// Forget stops tracking id without waiting on it.
func (w *Waiter) Forget(id string) {
	w.Lock()
	defer w.Unlock()
	delete(w.pending, id)
}

// Pending returns the number of ids registered and not yet awaited.
func (w *Waiter) Pending() int {
	w.Lock()
	defer w.Unlock()
	return len(w.pending)
}

// Await blocks until the reply for id arrives, ctx is done, or timeout
// elapses. A zero timeout waits on ctx alone. The id is forgotten when Await
// returns.
func (w *Waiter) Await(ctx context.Context, id string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, func() {
		w.Lock()
		defer w.Unlock()
		w.Broadcast()
	})
	defer stop()

	w.Lock()
	defer w.Unlock()
	r, ok := w.pending[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	defer delete(w.pending, id)

	for !r.done {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("awaiting reply to %s: %w", id, err)
		}
		if err := w.ctx.Err(); err != nil {
			return nil, fmt.Errorf("awaiting reply to %s: %w", id, err)
		}
		w.Wait()
	}
	return r.payload, nil
}
