package bridge

import (
	"context"
	"log/slog"
	"sync"
)

// Loader starts loading a bridge. Load returns immediately; the result arrives
// through the Pending. A pending load cannot be cancelled.
type Loader interface {
	Load(ctx context.Context) *Pending
}

// LoaderFunc adapts a blocking constructor to Loader; it runs on its own goroutine.
type LoaderFunc func(ctx context.Context) (Bridge, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context) *Pending {
	p := NewPending()
	go func() {
		b, err := f(ctx)
		p.Resolve(b, err)
	}()
	return p
}

// Pending is the handle of an in-flight bridge load. Continuations run in
// registration order once the load completes: Then on success, Catch on failure.
type Pending struct {
	mu   sync.Mutex
	done chan struct{}
	// settled is set once the result is known; resolved only after every
	// queued continuation ran.
	settled  bool
	resolved bool
	bridge   Bridge
	err      error
	onLoad   []func(Bridge)
	onError  []func(error)
}

// NewPending returns an unresolved Pending.
func NewPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Resolve completes the load. Only the first call has an effect. Continuations
// attached while Resolve drains the queue, including from inside a
// continuation, are queued behind the ones already waiting.
func (p *Pending) Resolve(b Bridge, err error) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled = true
	p.bridge, p.err = b, err
	p.mu.Unlock()

	defer close(p.done)
	for {
		p.mu.Lock()
		onLoad, onError := p.onLoad, p.onError
		p.onLoad, p.onError = nil, nil
		if len(onLoad) == 0 && len(onError) == 0 {
			p.resolved = true
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		if err != nil {
			for _, fn := range onError {
				fn(err)
			}
			continue
		}
		for _, fn := range onLoad {
			fn(b)
		}
	}
}

// Then attaches a continuation that runs after a successful load.
func (p *Pending) Then(fn func(Bridge)) *Pending {
	p.mu.Lock()
	if !p.resolved {
		p.onLoad = append(p.onLoad, fn)
		p.mu.Unlock()
		return p
	}
	b, err := p.bridge, p.err
	p.mu.Unlock()

	if err == nil {
		fn(b)
	}
	return p
}

// Catch attaches a continuation that runs if the load fails.
func (p *Pending) Catch(fn func(error)) *Pending {
	p.mu.Lock()
	if !p.resolved {
		p.onError = append(p.onError, fn)
		p.mu.Unlock()
		return p
	}
	err := p.err
	p.mu.Unlock()

	if err != nil {
		fn(err)
	}
	return p
}

// Wait blocks until the load completes and its continuations ran, or ctx is done. A ctx expiry abandons the
// wait, not the load.
func (p *Pending) Wait(ctx context.Context) (Bridge, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.bridge, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Attach loads a bridge and registers one handler for the published and change
// events. Load failures are logged rather than dropped.
func Attach(ctx context.Context, loader Loader, handler Handler, logger *slog.Logger) *Pending {
	if logger == nil {
		logger = slog.Default()
	}
	return loader.Load(ctx).
		Then(func(b Bridge) {
			b.On(ReloadEvents, handler)
		}).
		Catch(func(err error) {
			logger.Error("Failed to load live-preview bridge", slog.String("error", err.Error()))
		})
}
