package tenant

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// bindingKey is a private type to prevent collisions with other context keys.
type bindingKey struct{}

// binding is the value stored in a bound context. released flips when the
// Bind call that created it returns, so a context retained past its unit of
// work (a leaked goroutine, a cached closure) reads as unbound.
type binding struct {
	tenant   *Tenant
	released atomic.Bool
}

func liveBinding(ctx context.Context) *binding {
	if ctx == nil {
		return nil
	}
	b, ok := ctx.Value(bindingKey{}).(*binding)
	if !ok || b == nil || b.released.Load() {
		return nil
	}
	return b
}

// Bind runs body with t bound as the current tenant of the context passed to it.
// The binding is released on every exit path of body: normal return, error and
// panic (the panic is re-raised after release). A context that is already done
// is rejected without running body. Binding a context that is already bound to
// a different tenant returns ErrRebind; nesting the same tenant is allowed.
func Bind(ctx context.Context, t *Tenant, body func(ctx context.Context) error) error {
	if t == nil || body == nil || t.Slug == "" {
		return ErrInvalidBinding
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if prev := liveBinding(ctx); prev != nil && prev.tenant.ID != t.ID {
		return ErrRebind
	}

	b := &binding{tenant: t.Clone()}
	defer b.released.Store(true)

	return body(context.WithValue(ctx, bindingKey{}, b))
}

// Current returns the identity bound to ctx, or ErrUnboundContext.
func Current(ctx context.Context) (Identity, error) {
	b := liveBinding(ctx)
	if b == nil {
		return Identity{}, ErrUnboundContext
	}
	return b.tenant.Identity(), nil
}

// MustCurrent panics with ErrUnboundContext when nothing is bound.
// Use it only below code paths that are guaranteed to run inside Bind.
func MustCurrent(ctx context.Context) Identity {
	id, err := Current(ctx)
	if err != nil {
		panic(err)
	}
	return id
}

// Bound reports whether ctx carries a live binding.
func Bound(ctx context.Context) bool {
	return liveBinding(ctx) != nil
}

// FromContext returns a copy of the full tenant row bound to ctx.
func FromContext(ctx context.Context) (*Tenant, bool) {
	b := liveBinding(ctx)
	if b == nil {
		return nil, false
	}
	return b.tenant.Clone(), true
}

// LoggerExtractor adds the bound tenant slug to log records.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, err := Current(ctx); err == nil {
			return slog.String("tenant", id.Slug), true
		}
		return slog.Attr{}, false
	}
}
