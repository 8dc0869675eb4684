package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/apache/age-viewer/backend/internal/graph"
)

// Manager tracks the live database connection of each browser session.
type Manager struct {
	mu          sync.Mutex
	entries     map[string]*entry
	idleTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
	onChange    func(active int)
}

type entry struct {
	client   graph.Client
	info     graph.ConnectionInfo
	lastUsed time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithActiveGauge reports the number of sessions after every change.
func WithActiveGauge(fn func(active int)) Option {
	return func(m *Manager) { m.onChange = fn }
}

// NewManager creates a registry that closes connections idle for longer
// than idleTimeout. A zero timeout disables sweeping.
func NewManager(logger *slog.Logger, idleTimeout time.Duration, opts ...Option) *Manager {
	m := &Manager{
		entries:     make(map[string]*entry),
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Attach binds client to the session, closing whatever it held before.
func (m *Manager) Attach(ctx context.Context, id string, client graph.Client, info graph.ConnectionInfo) {
	m.mu.Lock()
	prev := m.entries[id]
	m.entries[id] = &entry{client: client, info: info, lastUsed: m.now()}
	m.report(len(m.entries))
	m.mu.Unlock()

	if prev != nil && prev.client != client {
		m.closeClient(ctx, id, prev.client)
	}
}

// Lookup returns the session's client and refreshes its idle timer.
func (m *Manager) Lookup(id string) (graph.Client, graph.ConnectionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, graph.ConnectionInfo{}, false
	}
	e.lastUsed = m.now()
	return e.client, e.info, true
}

// Detach removes the session and returns its client without closing it.
func (m *Manager) Detach(id string) (graph.Client, bool) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
		m.report(len(m.entries))
	}
	m.mu.Unlock()

	if !ok {
		return nil, false
	}
	return e.client, true
}

// Len returns the number of sessions holding a connection.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep closes connections idle since before now minus the timeout and
// returns how many were closed.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	if m.idleTimeout <= 0 {
		return 0
	}

	expired := make(map[string]graph.Client)
	m.mu.Lock()
	for id, e := range m.entries {
		if now.Sub(e.lastUsed) > m.idleTimeout {
			expired[id] = e.client
			delete(m.entries, id)
		}
	}
	if len(expired) > 0 {
		m.report(len(m.entries))
	}
	m.mu.Unlock()

	for id, client := range expired {
		m.logger.Info("closing idle connection", "session", id)
		m.closeClient(ctx, id, client)
	}
	return len(expired)
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.idleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx, m.now())
		}
	}
}

// CloseAll closes every connection, used on shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	entries := m.entries
	m.entries = make(map[string]*entry)
	m.report(0)
	m.mu.Unlock()

	for id, e := range entries {
		m.closeClient(ctx, id, e.client)
	}
}

func (m *Manager) closeClient(ctx context.Context, id string, client graph.Client) {
	if client == nil {
		return
	}
	if err := client.Close(ctx); err != nil {
		m.logger.Warn("closing connection failed", "session", id, "error", err)
	}
}

// report publishes the session count. Callers hold m.mu so updates reach
// the gauge in the order the map changed.
func (m *Manager) report(active int) {
	if m.onChange != nil {
		m.onChange(active)
	}
}
