package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// StoreOptions bound what a SessionStore keeps around.
type StoreOptions struct {
	// IdleTTL evicts sessions unused for longer than this; 0 keeps them forever.
	IdleTTL time.Duration
	// MenuMaxAge lets new sessions share one menu snapshot younger than this
	// instead of fetching their own; 0 fetches for every new session.
	MenuMaxAge time.Duration
}

type storeEntry struct {
	session  *Session
	lastUsed atomic.Int64 // unix nanos
}

// SessionStore keeps live sessions by key (chat ID, session ID).
type SessionStore[K comparable] struct {
	deps Deps
	opts StoreOptions
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[K]*storeEntry

	menuMu  sync.Mutex
	menu    *Menu
	menuErr error
	menuAt  time.Time
}

func NewSessionStore[K comparable](deps Deps, opts StoreOptions) *SessionStore[K] {
	return &SessionStore[K]{
		deps:     deps,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[K]*storeEntry),
	}
}

// Get returns the session for key and marks it as used.
func (st *SessionStore[K]) Get(key K) (*Session, bool) {
	st.mu.RLock()
	e, ok := st.sessions[key]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e.lastUsed.Store(st.now().UnixNano())
	return e.session, true
}

// GetOrCreate returns the session for key, creating and initializing it on first use.
func (st *SessionStore[K]) GetOrCreate(ctx context.Context, key K) *Session {
	if s, ok := st.Get(key); ok {
		return s
	}
	st.mu.Lock()
	if e, ok := st.sessions[key]; ok {
		st.mu.Unlock()
		e.lastUsed.Store(st.now().UnixNano())
		return e.session
	}
	s := NewSession(st.deps)
	s.ID = fmt.Sprint(key)
	e := &storeEntry{session: s}
	e.lastUsed.Store(st.now().UnixNano())
	st.sessions[key] = e
	st.mu.Unlock()

	if st.opts.MenuMaxAge > 0 {
		_ = s.applyMenu(st.sharedMenu(ctx))
	} else {
		_ = s.Init(ctx)
	}
	return s
}

// sharedMenu returns the store-wide snapshot, refreshing it once it is older
// than MenuMaxAge. A failed refresh keeps the last good menu alongside the error.
func (st *SessionStore[K]) sharedMenu(ctx context.Context) (*Menu, error) {
	st.menuMu.Lock()
	defer st.menuMu.Unlock()
	if !st.menuAt.IsZero() && st.now().Sub(st.menuAt) < st.opts.MenuMaxAge {
		return st.menu, st.menuErr
	}
	menu, err := st.deps.Menu.LoadMenu(ctx)
	if err != nil {
		log.Printf("session store: menu load: %v", err)
	} else {
		st.menu = menu
	}
	st.menuErr = err
	st.menuAt = st.now()
	return st.menu, st.menuErr
}

func (st *SessionStore[K]) Delete(key K) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, key)
}

func (st *SessionStore[K]) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep evicts sessions idle for longer than IdleTTL and returns how many
// went. Sessions with a submission in flight are kept.
func (st *SessionStore[K]) Sweep() int {
	if st.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.opts.IdleTTL).UnixNano()

	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for key, e := range st.sessions {
		if e.lastUsed.Load() >= cutoff || e.session.State() == StateSubmitting {
			continue
		}
		delete(st.sessions, key)
		n++
	}
	return n
}

// RunJanitor sweeps every interval until ctx is done.
func (st *SessionStore[K]) RunJanitor(ctx context.Context, interval time.Duration) {
	if st.opts.IdleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				log.Printf("session store: evicted %d idle sessions", n)
			}
		}
	}
}
