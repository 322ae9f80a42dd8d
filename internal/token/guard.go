package token

import (
	"context"

	"github.com/congo-pay/feetoken/internal/event"
	"github.com/congo-pay/feetoken/internal/tokenerr"
)

// heldKey marks a context whose call chain already holds a token's lock.
type heldKey struct {
	token *Token
}

func (t *Token) holding(ctx context.Context) bool {
	return ctx.Value(heldKey{t}) != nil
}

// lock serializes an operation on the token. A call nested inside another
// operation of the same token (detected through ctx) runs under the lock the
// outer call holds; guarded operations refuse to nest at all.
func (t *Token) lock(ctx context.Context, guarded bool) (context.Context, func(), error) {
	if t.holding(ctx) {
		if guarded {
			return nil, nil, tokenerr.ErrReentrantCall
		}
		return ctx, func() {}, nil
	}
	t.mu.Lock()
	return context.WithValue(ctx, heldKey{t}, struct{}{}), t.mu.Unlock, nil
}

func (t *Token) rlock(ctx context.Context) func() {
	if t.holding(ctx) {
		return func() {}
	}
	t.mu.RLock()
	return t.mu.RUnlock
}

// run executes op under the token lock and publishes its records once it
// succeeded. Records are published before the lock is released so sinks see
// them in commit order. Failed operations publish nothing.
func (t *Token) run(ctx context.Context, guarded bool, op func(ctx context.Context) ([]event.Record, error)) error {
	lctx, unlock, err := t.lock(ctx, guarded)
	if err != nil {
		return err
	}
	defer unlock()
	records, err := op(lctx)
	if err != nil {
		return err
	}
	t.publish(ctx, records)
	return nil
}

func (t *Token) publish(ctx context.Context, records []event.Record) {
	if t.sink == nil || len(records) == 0 {
		return
	}
	if err := t.sink.Publish(ctx, records...); err != nil {
		t.logger.Warn("publish token events", "count", len(records), "error", err)
	}
}
