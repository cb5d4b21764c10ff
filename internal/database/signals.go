package database

import (
	"context"
	"sync"
	"time"
)

// Broadcaster fans signals out to registered observers.
type Broadcaster struct {
	mu        sync.Mutex
	next      int
	observers map[int]func(Signal)
}

// Observe registers fn and returns an idempotent detach function.
func (b *Broadcaster) Observe(fn func(Signal)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.observers == nil {
		b.observers = make(map[int]func(Signal))
	}
	id := b.next
	b.next++
	b.observers[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.observers, id)
	}
}

// Emit delivers s to every observer registered at the time of the call.
func (b *Broadcaster) Emit(s Signal) {
	b.mu.Lock()
	fns := make([]func(Signal), 0, len(b.observers))
	for _, fn := range b.observers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Health converts health check outcomes into edge-triggered signals: a failure
// after success emits SignalClosed, a success after failure emits
// SignalReconnected. Repeated outcomes in the same direction are silent.
// A new Health starts in the healthy state.
type Health struct {
	Broadcaster

	mu        sync.Mutex
	unhealthy bool
}

// Report records one health check outcome.
func (h *Health) Report(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case err != nil && !h.unhealthy:
		h.unhealthy = true
		h.Emit(SignalClosed)
	case err == nil && h.unhealthy:
		h.unhealthy = false
		h.Emit(SignalReconnected)
	}
}

// Healthy reports the last recorded direction.
func (h *Health) Healthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.unhealthy
}

// Pinger drives a Health from a periodic ping, for drivers whose client
// exposes no topology events of its own.
type Pinger struct {
	health   *Health
	ping     func(context.Context) error
	interval time.Duration
	timeout  time.Duration

	once   sync.Once
	cancel context.CancelFunc
}

// NewPinger creates a Pinger that reports ping outcomes to health every
// interval, bounding each ping by timeout.
func NewPinger(health *Health, ping func(context.Context) error, interval, timeout time.Duration) *Pinger {
	return &Pinger{
		health:   health,
		ping:     ping,
		interval: interval,
		timeout:  timeout,
	}
}

// Start launches the ping loop. Subsequent calls are no-ops.
func (p *Pinger) Start() {
	p.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		go p.run(ctx)
	})
}

// Stop cancels the ping loop without waiting for it to exit.
func (p *Pinger) Stop() {
	p.once.Do(func() {})
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pinger) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, p.timeout)
			err := p.ping(pingCtx)
			cancel()
			if ctx.Err() != nil {
				return
			}
			p.health.Report(err)
		}
	}
}
