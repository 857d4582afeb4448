package cancel

import (
	"context"
	"time"
)

// ContextCanceler wraps context.Context for cancellation signaling.
//
// Done performs a non-blocking select on ctx.Done(). Use it when the loop is
// already driven by a context, for example one derived from signal.NotifyContext.
type ContextCanceler struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewContext creates a ContextCanceler from a parent context. Cancelling the
// parent also cancels the returned canceler.
func NewContext(parent context.Context) *ContextCanceler {
	ctx, cancel := context.WithCancel(parent)
	return &ContextCanceler{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Done returns true if the context has been cancelled.
func (c *ContextCanceler) Done() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// Wait pauses for up to d, returning true early if the context is cancelled.
func (c *ContextCanceler) Wait(d time.Duration) bool {
	return sleep(c.ctx.Done(), d)
}

// Cancel triggers cancellation of the context.
func (c *ContextCanceler) Cancel() {
	c.cancel()
}

// Context returns the underlying context.Context.
func (c *ContextCanceler) Context() context.Context {
	return c.ctx
}
