package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_bullion/internal/cart"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const defaultWriteTimeout = 3 * time.Second

type entry struct {
	store    *cart.Store
	lastSeen time.Time
}

// Manager hands out one cart per session and mirrors every change into a Store.
type Manager struct {
	backend      Store
	log          logrus.FieldLogger
	writeTimeout time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	sfg     singleflight.Group
	now     func() time.Time
}

type ManagerOption func(*Manager)

func WithWriteTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.writeTimeout = d
		}
	}
}

func NewManager(backend Store, log logrus.FieldLogger, opts ...ManagerOption) *Manager {
	m := &Manager{
		backend:      backend,
		log:          log,
		writeTimeout: defaultWriteTimeout,
		entries:      make(map[string]*entry),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cart returns the cart bound to sessionID, loading it from the backend on first use.
// A failed load returns ErrCartUnavailable and caches nothing, so the persisted cart
// is never overwritten by an empty one.
func (m *Manager) Cart(ctx context.Context, sessionID string) (*cart.Store, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	if s, ok := m.cached(sessionID); ok {
		return s, nil
	}

	// the load is shared by every waiter, so it must not die with the first caller
	v, err, _ := m.sfg.Do(sessionID, func() (interface{}, error) {
		if s, ok := m.cached(sessionID); ok {
			return s, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.writeTimeout)
		defer cancel()

		lines, err := m.backend.Load(loadCtx, sessionID)
		if err != nil {
			m.log.WithError(err).WithField("session_id", sessionID).Warn("cart load failed")
			return nil, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
		}

		s := cart.NewStore(cart.OnChange(m.persistHook(sessionID)))
		s.Restore(lines)

		m.mu.Lock()
		m.entries[sessionID] = &entry{store: s, lastSeen: m.now()}
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*cart.Store), nil
}

func (m *Manager) cached(sessionID string) (*cart.Store, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return nil, false
	}
	e.lastSeen = m.now()
	return e.store, true
}

func (m *Manager) persistHook(sessionID string) cart.ChangeHook {
	return func(snap cart.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), m.writeTimeout)
		defer cancel()

		log := m.log.WithField("session_id", sessionID)
		if snap.Cleared {
			if err := m.backend.Delete(ctx, sessionID); err != nil {
				log.WithError(err).Error("failed to delete persisted cart")
			}
			return
		}
		if err := m.backend.Save(ctx, sessionID, snap.Lines); err != nil {
			log.WithError(err).Error("failed to persist cart")
		}
	}
}

// Evict drops carts idle for longer than maxIdle from memory. Persisted state is untouched.
func (m *Manager) Evict(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, e := range m.entries {
		if e.lastSeen.Before(cutoff) {
			delete(m.entries, id)
			evicted++
		}
	}
	return evicted
}

// Forget drops the in-memory cart of one session so the next access reloads it.
func (m *Manager) Forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
}

// Active reports how many carts are held in memory.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manager) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]*entry)
	m.mu.Unlock()
	return m.backend.Close()
}
