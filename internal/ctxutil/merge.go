// Package ctxutil composes cancellation scopes.
package ctxutil

import (
	"context"
	"time"
)

// Merge returns a context that is done as soon as either a or b is done.
// Values and deadline are inherited from a only.
// The returned cancel func must be called to release the link to b.
func Merge(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(a)
	stop := context.AfterFunc(b, func() {
		cancel(context.Cause(b))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}

// Sleep waits for d or until ctx is done, reporting whether the full duration elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
