// Package latch provides a resettable signal that any number of goroutines can wait on.
package latch

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/atomic"
)

// ErrClosed is returned by Wait when the latch was closed while the caller was waiting.
var ErrClosed = errors.New("latch closed")

// token is one generation of the latch. Set closes its channel, Reset swaps in a fresh token.
type token struct {
	ch   chan struct{}
	once sync.Once
}

func newToken() *token {
	return &token{ch: make(chan struct{})}
}

func (t *token) set() {
	t.once.Do(func() { close(t.ch) })
}

func (t *token) isSet() bool {
	select {
	case <-t.ch:
		return true
	default:
		return false
	}
}

// Latch is a manual-reset event.
//
// Set releases every current and future waiter until the next effective Reset.
// Reset only has an effect while the latch is set, so goroutines already waiting
// on an unset latch always observe the next Set.
type Latch struct {
	tok *atomic.Pointer[token]

	closed    chan struct{}
	closeOnce sync.Once
}

// New returns an unset latch.
func New() *Latch {
	return &Latch{
		tok:    atomic.NewPointer(newToken()),
		closed: make(chan struct{}),
	}
}

// Set transitions the latch to set. It is idempotent.
func (l *Latch) Set() {
	l.tok.Load().set()
}

// Reset transitions the latch back to unset if it is currently set.
// Resetting an unset latch is a no-op.
func (l *Latch) Reset() {
	for {
		t := l.tok.Load()
		if !t.isSet() {
			return
		}
		if l.tok.CompareAndSwap(t, newToken()) {
			return
		}
	}
}

// IsSet reports whether the latch is currently set.
func (l *Latch) IsSet() bool {
	return l.tok.Load().isSet()
}

// Done returns a channel that is closed when the current generation of the latch is set.
// The channel is a snapshot: after a Reset, callers must call Done again.
func (l *Latch) Done() <-chan struct{} {
	return l.tok.Load().ch
}

// Wait blocks until the latch is set, ctx is done, or the latch is closed.
// If the latch is already set it returns immediately.
func (l *Latch) Wait(ctx context.Context) error {
	t := l.tok.Load()
	if t.isSet() {
		return nil
	}
	select {
	case <-t.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closed:
		return ErrClosed
	}
}

// Close releases all outstanding waiters with ErrClosed.
func (l *Latch) Close() {
	l.closeOnce.Do(func() { close(l.closed) })
}
