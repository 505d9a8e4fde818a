// Package lifecycle ties background work to the lifetime of one screen.
package lifecycle

import (
	"context"
	"sync"
)

// Scope owns the background tasks of a screen and serializes delivery of
// their results. Once Close returns, no posted callback runs again.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool

	// deliver serializes Post callbacks.
	deliver sync.Mutex
}

// NewScope creates a scope whose context is derived from parent.
func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

// Context is cancelled when the scope closes.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Go runs fn on a background goroutine. It is a no-op after Close.
func (s *Scope) Go(fn func(ctx context.Context)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// Post delivers fn on the scope's owner side. Deliveries never overlap and
// are dropped once the scope is closed. It reports whether fn ran.
// fn may call Go but must not call Post or Close.
func (s *Scope) Post(fn func()) bool {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if s.Closed() {
		return false
	}
	fn()
	return true
}

// Close cancels the scope context and blocks until any delivery in progress
// has finished. Tasks still running are not waited for; use Wait for that.
func (s *Scope) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	s.deliver.Lock()
	s.deliver.Unlock()
}

// Closed reports whether Close has been called.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Wait blocks until every task started with Go has returned.
func (s *Scope) Wait() {
	s.wg.Wait()
}
