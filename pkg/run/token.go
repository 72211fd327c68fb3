// Package run holds the cancellation token and run-lease guard shared by the
// harvest and mutation engines.
package run

import "context"

// Token is an explicit cancellation handle for one run. Cancel may be called
// from any goroutine; the running engine observes it at loop boundaries and
// while waiting.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewToken derives a token from parent. Cancelling parent also cancels the token.
func NewToken(parent context.Context) *Token {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

// Cancel requests the run to stop. It is idempotent.
func (t *Token) Cancel() {
	t.cancel()
}

// Cancelled reports whether Cancel was called or the parent context ended
func (t *Token) Cancelled() bool {
	return t.ctx.Err() != nil
}

// Context is done once the token is cancelled. Waits select on it so a stop
// wakes a sleeping run.
func (t *Token) Context() context.Context {
	return t.ctx
}
