package detector

import (
	"context"
	"sync"
)

// Starter is implemented by detectors whose model loads asynchronously.
type Starter interface {
	Start(ctx context.Context) error
}

// Initializer loads a model at most once in the background and exposes the
// outcome as a readiness gate. A failed load is reported once and never
// retried.
type Initializer struct {
	once  sync.Once
	done  chan struct{}
	mu    sync.RWMutex
	ready bool
	err   error
}

// NewInitializer creates an Initializer that has not started yet.
func NewInitializer() *Initializer {
	return &Initializer{done: make(chan struct{})}
}

// Start begins loading s in a new goroutine. Calls after the first are
// ignored, so concurrent callers cannot trigger a second load.
func (i *Initializer) Start(ctx context.Context, s Starter) {
	i.once.Do(func() {
		go func() {
			err := s.Start(ctx)
			i.mu.Lock()
			i.ready = err == nil
			i.err = err
			i.mu.Unlock()
			close(i.done)
		}()
	})
}

// Done is closed once loading finished, successfully or not.
func (i *Initializer) Done() <-chan struct{} {
	return i.done
}

// Ready reports whether the model loaded successfully.
func (i *Initializer) Ready() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ready
}

// Err returns the load failure, if any.
func (i *Initializer) Err() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.err
}

// Wait blocks until loading finished or ctx is cancelled.
func (i *Initializer) Wait(ctx context.Context) error {
	select {
	case <-i.done:
		return i.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
