package engine

import "context"

// Limiter bounds how many invocations run at once across every adapter that
// shares it. A zero max disables limiting entirely.
//
// Slots are granted in arrival order. A slot is held from just before the
// wrapped stream starts producing until the stream is fully drained or the
// consumer abandons it by cancelling the context; either way the slot is
// released exactly once.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter creates a limiter with the given maximum. max <= 0 disables
// limiting and Wrap becomes an identity wrapper.
func NewLimiter(max int) *Limiter {
	if max <= 0 {
		return &Limiter{}
	}
	return &Limiter{slots: make(chan struct{}, max)}
}

// Wrap returns an adapter whose invocations count against the limiter.
// Wrapping several adapters with one limiter yields a global bound.
func (l *Limiter) Wrap(a Adapter) Adapter {
	if l == nil || l.slots == nil {
		return a
	}
	return &limitedAdapter{inner: a, slots: l.slots}
}

type limitedAdapter struct {
	inner Adapter
	slots chan struct{}
}

func (a *limitedAdapter) ID() string                  { return a.inner.ID() }
func (a *limitedAdapter) Capabilities() CapabilitySet { return a.inner.Capabilities() }

// Invoke blocks until a slot is free, then starts the wrapped invocation.
func (a *limitedAdapter) Invoke(ctx context.Context, p *Params) (<-chan Event, error) {
	select {
	case a.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	inner, err := a.inner.Invoke(ctx, p)
	if err != nil {
		<-a.slots
		return nil, err
	}

	out := make(chan Event)
	go func() {
		defer func() { <-a.slots }()
		defer close(out)
		for ev := range inner {
			select {
			case out <- ev:
			case <-ctx.Done():
				// Consumer abandoned the stream. Drain the producer so it
				// can observe cancellation and shut down, then free the
				// slot via the deferred release.
				for range inner {
				}
				return
			}
		}
	}()
	return out, nil
}
