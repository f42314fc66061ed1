package authsession

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/havenstay/authsession/identity"
	"github.com/havenstay/authsession/session"
)

// Manager owns the in-memory session and serializes every change to it.
// It is safe for concurrent use after [Builder.Build].
type Manager struct {
	config   Config
	store    *session.Store
	identity identity.Service
	notifier notifier
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time

	startOnce sync.Once
	ready     chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once

	flights flightTable

	// persistMu orders memory updates with their store writes so the
	// persisted copy follows the same sequence as the in-memory session.
	persistMu sync.Mutex

	mu           sync.Mutex
	session      *Session
	generation   uint64
	initializing bool
	inFlight     int
	expiry       *time.Timer
	listeners    map[uint64]func(State)
	nextListener uint64
}

// Start restores the persisted session in the background. It is
// idempotent; the restore outlives ctx cancellation so a cancelled caller
// cannot leave the manager loading forever. [Manager.Ready] is closed once
// loading for initialization has been cleared.
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.restore(context.WithoutCancel(ctx))
	})
}

// Ready is closed when initialization has settled.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

func (m *Manager) restore(ctx context.Context) {
	defer close(m.ready)

	sess, err := m.store.Load(ctx)
	switch {
	case err == nil:
		m.metrics.Inc(MetricSessionRestored)
		m.logger.Debug("session restored", "user_id", sess.User.ID)
	case errors.Is(err, session.ErrNoRecord):
	case errors.Is(err, session.ErrExpiredRecord):
		m.metrics.Inc(MetricSessionDiscardedExpired)
	case errors.Is(err, session.ErrCorruptRecord):
		m.metrics.Inc(MetricSessionDiscardedCorrupt)
	default:
		m.logger.Warn("session restore failed", "error", err)
	}

	if sess != nil && sess.Validate(m.now()) != nil {
		sess = nil
	}

	m.update(func() bool {
		if sess != nil {
			m.setSessionLocked(sess)
		}
		m.initializing = false
		return true
	})
}

// awaitReady starts the manager if needed and blocks until initialization
// settles.
func (m *Manager) awaitReady(ctx context.Context) error {
	m.Start(ctx)
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a snapshot of the session and loading flag.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Session returns a copy of the current session, or nil.
func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Clone()
}

// Loading reports whether initialization or any operation is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadingLocked()
}

// IsAuthenticated is derived from the current session on every call.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && m.session.User != nil
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs outside the manager's lock, on the goroutine that made the
// change. The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// MetricsSnapshot returns a copy of the manager's metrics.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// Metrics exposes the live metrics set for exporters.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// DroppedNotifications reports notifications the async dispatcher
// discarded.
func (m *Manager) DroppedNotifications() uint64 {
	return m.notifier.Dropped()
}

// Close stops the expiry timer and flushes pending notifications. Later
// operations return [ErrClosed]. The in-memory and persisted session are
// left as they are.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.mu.Lock()
		if m.expiry != nil {
			m.expiry.Stop()
			m.expiry = nil
		}
		m.mu.Unlock()
		m.notifier.Close()
	})
}

func (m *Manager) loadingLocked() bool {
	return m.initializing || m.inFlight > 0
}

func (m *Manager) snapshotLocked() State {
	return State{Session: m.session.Clone(), Loading: m.loadingLocked()}
}

// update applies fn under the lock and, when fn reports a change, fans the
// resulting snapshot out to listeners.
func (m *Manager) update(fn func() bool) {
	m.mu.Lock()
	if !fn() {
		m.mu.Unlock()
		return
	}
	state := m.snapshotLocked()
	listeners := make([]func(State), 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}

func (m *Manager) beginLoading() {
	m.update(func() bool { m.inFlight++; return true })
}

func (m *Manager) endLoading() {
	m.update(func() bool { m.inFlight--; return true })
}

func (m *Manager) accessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.Token
}

// setSessionLocked replaces the current session and re-arms the expiry
// timer. sess must not be shared with callers.
func (m *Manager) setSessionLocked(sess *Session) {
	m.session = sess
	m.generation++
	m.armExpiryLocked()
}

func (m *Manager) armExpiryLocked() {
	if m.expiry != nil {
		m.expiry.Stop()
		m.expiry = nil
	}
	if m.session == nil || !m.config.Session.ExpireOnDeadline || m.closed.Load() {
		return
	}

	gen := m.generation
	delay := m.session.Deadline().Sub(m.now())
	if delay < 0 {
		delay = 0
	}
	m.expiry = time.AfterFunc(delay, func() { m.expire(gen) })
}

// replaceSession installs sess in memory and persists it. Store writes
// ignore cancellation of ctx so the record never trails memory.
func (m *Manager) replaceSession(ctx context.Context, sess *Session) {
	ctx = context.WithoutCancel(ctx)
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	owned := sess.Clone()
	m.update(func() bool { m.setSessionLocked(owned); return true })
	m.store.Save(ctx, owned)
}

// mutateSession applies fn to a copy of the current user and persists the
// result. It is a no-op when signed out.
func (m *Manager) mutateSession(ctx context.Context, fn func(*User)) {
	ctx = context.WithoutCancel(ctx)
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	var next *Session
	m.update(func() bool {
		if m.session == nil || m.session.User == nil {
			return false
		}
		next = m.session.Clone()
		fn(next.User)
		m.session = next
		return true
	})
	if next != nil {
		m.store.Save(ctx, next.Clone())
	}
}

// clearSession drops the session from memory and store, even when ctx is
// already done.
func (m *Manager) clearSession(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.update(func() bool { m.setSessionLocked(nil); return true })
	m.store.Clear(ctx)
}

// expire runs from the expiry timer. It only clears the session that armed
// it; a session replaced in the meantime is left alone.
func (m *Manager) expire(gen uint64) {
	m.persistMu.Lock()

	expired := false
	m.update(func() bool {
		if m.generation != gen || m.session == nil {
			return false
		}
		m.setSessionLocked(nil)
		expired = true
		return true
	})
	if !expired {
		m.persistMu.Unlock()
		return
	}

	ctx := context.Background()
	m.store.Clear(ctx)
	m.persistMu.Unlock()

	m.metrics.Inc(MetricSessionExpired)
	m.logger.Info("session expired")
	m.notifier.Emit(ctx, sessionExpiredMessage.notification("", SeverityDestructive, m.now()))
}
