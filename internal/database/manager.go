package database

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JaimeStill/form-intake/internal/fault"
	"github.com/jonboulle/clockwork"
)

// State is the connection state observed by the Manager.
type State int

const (
	Disconnected State = iota
	Connected
	ReconnectPending
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case ReconnectPending:
		return "reconnect_pending"
	default:
		return "disconnected"
	}
}

const closeTimeout = 5 * time.Second

type handle struct {
	conn   Conn
	detach func()
}

// Manager owns the single shared document-store connection.
//
// Readers (Handle, Collection) load the installed handle atomically and
// never block. Connect, Disconnect, signal handling and the reconnect
// timer are serialized by mu and always replace the handle in one step.
type Manager struct {
	driver Driver
	clock  clockwork.Clock
	logger *slog.Logger

	current atomic.Pointer[handle]

	mu     sync.Mutex
	state  State
	window time.Duration
	timer  clockwork.Timer
	epoch  uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the clock that schedules reconnect timeouts.
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// New creates a Manager that opens connections through driver.
func New(driver Driver, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		driver: driver,
		clock:  clockwork.NewRealClock(),
		logger: logger.With("system", "database", "driver", driver.Name()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect installs a connection built from cfg. It succeeds immediately
// without contacting the driver when a connection is already installed.
func (m *Manager) Connect(ctx context.Context, cfg *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Load() != nil {
		return nil
	}

	target, err := m.driver.Target(cfg)
	if err != nil {
		return fault.DB(err)
	}

	conn, err := m.driver.Connect(ctx, target, cfg)
	if err != nil {
		m.logger.Error("connect failed", "error", err)
		return fault.DB(err)
	}

	h := &handle{conn: conn}
	h.detach = conn.Observe(func(s Signal) {
		m.signal(h, s)
	})

	m.window = cfg.ReconnectWindow()
	m.state = Connected
	m.current.Store(h)

	m.logger.Info("connected", "reconnect_window", m.window)
	return nil
}

// Disconnect detaches observers, closes and clears the installed
// connection. It is a no-op when nothing is installed. Close failures
// are logged.
func (m *Manager) Disconnect(ctx context.Context) {
	m.mu.Lock()
	h := m.current.Load()
	if h == nil {
		m.mu.Unlock()
		return
	}
	m.teardown(h)
	m.mu.Unlock()

	if err := h.conn.Close(ctx); err != nil {
		m.logger.Warn("close failed", "error", err)
	}
	m.logger.Info("disconnected")
}

// Handle returns the installed connection, or nil.
func (m *Manager) Handle() Conn {
	if h := m.current.Load(); h != nil {
		return h.conn
	}
	return nil
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Collection resolves name against the installed connection.
func (m *Manager) Collection(ctx context.Context, name string) (Collection, error) {
	h := m.current.Load()
	if h == nil {
		return nil, fault.DBNotAvailable()
	}
	if name == "" {
		return nil, fault.DBCollectionNotFound(name)
	}

	c, err := h.conn.Collection(ctx, name)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return nil, fault.DBCollectionNotFound(name)
		}
		return nil, fault.DB(err)
	}
	if c == nil {
		return nil, fault.DBCollectionNotFound(name)
	}
	return c, nil
}

func (m *Manager) signal(h *handle, s Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Load() != h {
		return
	}

	switch s {
	case SignalClosed:
		if m.state != Connected {
			return
		}
		m.state = ReconnectPending
		m.epoch++
		epoch := m.epoch
		m.timer = m.clock.AfterFunc(m.window, func() {
			m.expire(h, epoch)
		})
		m.logger.Warn("connection closed, awaiting reconnect", "window", m.window)

	case SignalReconnected:
		if m.state != ReconnectPending {
			return
		}
		m.stopTimer()
		m.state = Connected
		m.logger.Info("connection re-established")
	}
}

func (m *Manager) expire(h *handle, epoch uint64) {
	m.mu.Lock()
	if m.current.Load() != h || m.state != ReconnectPending || m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	m.teardown(h)
	m.mu.Unlock()

	m.logger.Error("reconnect window elapsed, connection discarded", "window", m.window)

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := h.conn.Close(ctx); err != nil {
		m.logger.Warn("close failed", "error", err)
	}
}

// teardown must be called with mu held.
func (m *Manager) teardown(h *handle) {
	m.stopTimer()
	if h.detach != nil {
		h.detach()
	}
	m.current.Store(nil)
	m.state = Disconnected
}

func (m *Manager) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.epoch++
}
