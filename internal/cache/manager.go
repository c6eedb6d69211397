// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

// Package cache holds computed recommendation sets per user and decides
// when to serve, refresh, or recompute them.
//
// Each user entry moves through a small state machine: absent, computing,
// fresh, stale. Concurrent requests for the same user share a single
// in-flight computation, stale data is served while a refresh runs in the
// background, and after a total upstream failure the previous set keeps
// being served under a retry backoff. Entries are evicted least recently
// used once the capacity ceiling is reached.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nextup/nextup/internal/metrics"
	"github.com/nextup/nextup/internal/recommend"
)

// Computer produces a fresh recommendation set for a user.
// *recommend.Engine satisfies this.
type Computer interface {
	Compute(ctx context.Context, userID string) (*recommend.RecommendationSet, error)
}

// State is the lifecycle position of a user's cache entry.
type State int

const (
	// StateAbsent means no entry exists for the user.
	StateAbsent State = iota
	// StateComputing means a computation is in flight and no set exists yet.
	StateComputing
	// StateFresh means the stored set is within its validity window.
	StateFresh
	// StateStale means the stored set is past its validity window.
	StateStale
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateComputing:
		return "computing"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Config holds cache behavior parameters.
type Config struct {
	// MaxEntries is the user entry ceiling before LRU eviction.
	MaxEntries int

	// RetryBackoff is how long to wait before re-contacting a fully
	// failed upstream for the same user.
	RetryBackoff time.Duration

	// ComputeTimeout bounds a single background computation.
	ComputeTimeout time.Duration

	// RefreshAheadWindow triggers background recompute for entries whose
	// validity expires within this window.
	RefreshAheadWindow time.Duration
}

// DefaultConfig returns the standard cache parameters.
func DefaultConfig() Config {
	return Config{
		MaxEntries:         5000,
		RetryBackoff:       30 * time.Second,
		ComputeTimeout:     15 * time.Second,
		RefreshAheadWindow: 5 * time.Minute,
	}
}

// flight is one in-progress computation. Waiters block on done; the
// outcome fields are written exactly once before done closes.
type flight struct {
	done chan struct{}
	set  *recommend.RecommendationSet
	err  error
}

// entry is one user's cache slot. The doubly-linked pointers maintain LRU
// order between the manager's sentinels; all fields are guarded by the
// manager mutex.
type entry struct {
	key        string
	set        *recommend.RecommendationSet
	inflight   *flight
	retryAt    time.Time
	lastAccess time.Time
	prev, next *entry
}

// Manager is the per-user recommendation cache.
type Manager struct {
	mu       sync.Mutex
	entries  map[string]*entry
	head     *entry // head.next is most recently used
	tail     *entry // tail.prev is least recently used
	computer Computer
	cfg      Config
	logger   zerolog.Logger

	// now is the clock; replaced in tests.
	now func() time.Time
}

// NewManager creates a cache manager over the given computer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewManager(computer Computer, cfg Config, logger zerolog.Logger) *Manager {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 5000
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 30 * time.Second
	}
	if cfg.ComputeTimeout <= 0 {
		cfg.ComputeTimeout = 15 * time.Second
	}

	m := &Manager{
		entries:  make(map[string]*entry, cfg.MaxEntries),
		head:     &entry{},
		tail:     &entry{},
		computer: computer,
		cfg:      cfg,
		logger:   logger.With().Str("component", "cache").Logger(),
		now:      time.Now,
	}
	m.head.next = m.tail
	m.tail.prev = m.head
	return m
}

// Get returns the user's recommendation set, computing it as needed.
//
// Fresh data is served directly. Stale data is served immediately while a
// background refresh runs. With force set, the call blocks on a
// computation, joining one already in flight rather than starting a
// second. After a total upstream failure the previous set is served
// marked stale; ErrUpstreamUnavailable surfaces only when no previous set
// exists.
func (m *Manager) Get(ctx context.Context, userID string, force bool) (*recommend.RecommendationSet, error) {
	m.mu.Lock()
	now := m.now()

	e, exists := m.entries[userID]
	if !exists {
		e = m.insertLocked(userID)
		metrics.CacheMisses.Inc()
	}
	e.lastAccess = now
	m.moveToFront(e)

	// Fresh and not forced: the fast path.
	if !force && e.set != nil && now.Before(e.set.ValidUntil) {
		set := serveCopy(e.set, false)
		m.mu.Unlock()
		metrics.CacheHits.WithLabelValues("fresh").Inc()
		return set, nil
	}

	var fl *flight
	joined := false
	switch {
	case e.inflight != nil:
		fl = e.inflight
		joined = true
	case !force && e.set != nil && now.Before(e.retryAt):
		// Stale but the upstream recently hard-failed: serve stale
		// without poking it again until the backoff passes.
		set := serveCopy(e.set, true)
		m.mu.Unlock()
		metrics.CacheHits.WithLabelValues("stale").Inc()
		metrics.StaleServes.Inc()
		return set, nil
	case !force && e.set == nil && now.Before(e.retryAt):
		// Nothing to fall back on and the upstream is in backoff:
		// fail fast instead of hammering it.
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: upstream in retry backoff", recommend.ErrUpstreamUnavailable)
	default:
		fl = m.startFlightLocked(e)
	}

	if !force && e.set != nil {
		// Stale-while-revalidate: the caller gets the old set now, the
		// flight replaces it in the background.
		set := serveCopy(e.set, true)
		m.mu.Unlock()
		metrics.CacheHits.WithLabelValues("stale").Inc()
		metrics.StaleServes.Inc()
		return set, nil
	}
	m.mu.Unlock()

	if joined {
		metrics.SingleFlightShared.Inc()
	}

	select {
	case <-fl.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if fl.err != nil {
		return m.fallback(userID, fl.err)
	}
	return serveCopy(fl.set, false), nil
}

// fallback serves the previous set after a failed computation, or maps
// the failure to the user-visible unavailability error.
func (m *Manager) fallback(userID string, computeErr error) (*recommend.RecommendationSet, error) {
	m.mu.Lock()
	if e, ok := m.entries[userID]; ok && e.set != nil {
		set := serveCopy(e.set, true)
		m.mu.Unlock()
		metrics.StaleServes.Inc()
		return set, nil
	}
	m.mu.Unlock()
	return nil, fmt.Errorf("%w: %s", recommend.ErrUpstreamUnavailable, computeErr)
}

// startFlightLocked begins a background computation for the entry.
// Must be called with mu held.
func (m *Manager) startFlightLocked(e *entry) *flight {
	fl := &flight{done: make(chan struct{})}
	e.inflight = fl
	go m.runFlight(e.key, fl)
	return fl
}

// runFlight executes one computation and publishes its outcome. It uses a
// detached context so request cancellation never kills a refresh other
// callers are waiting on.
func (m *Manager) runFlight(userID string, fl *flight) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ComputeTimeout)
	defer cancel()

	set, err := m.computer.Compute(ctx, userID)

	m.mu.Lock()
	now := m.now()
	if e, ok := m.entries[userID]; ok && e.inflight == fl {
		e.inflight = nil
		if err == nil {
			e.set = set
			e.retryAt = time.Time{}
		} else {
			e.retryAt = now.Add(m.cfg.RetryBackoff)
			m.logger.Warn().
				Err(err).
				Str("user_id", userID).
				Time("retry_at", e.retryAt).
				Msg("computation failed, backing off")
		}
	}
	fl.set = set
	fl.err = err
	m.mu.Unlock()

	close(fl.done)
}

// Explain builds the detail view for one recommendation in the user's
// current set. Returns ErrExplanationExpired when the user has no set and
// ErrNotFound when the ID is not in it.
func (m *Manager) Explain(userID, recID string) (recommend.Explanation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[userID]
	if !ok || e.set == nil {
		return recommend.Explanation{}, recommend.ErrExplanationExpired
	}
	r := e.set.Find(recID)
	if r == nil {
		return recommend.Explanation{}, recommend.ErrNotFound
	}
	return recommend.BuildExplanation(r, e.set.ComputedAt), nil
}

// Contains reports whether the recommendation ID is in the user's current set.
func (m *Manager) Contains(userID, recID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[userID]
	if !ok || e.set == nil {
		return false
	}
	return e.set.Find(recID) != nil
}

// Invalidate expires the user's current set so the next request
// recomputes. The set itself stays available as a stale fallback.
// Returns false when the user has no set.
func (m *Manager) Invalidate(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[userID]
	if !ok || e.set == nil {
		return false
	}
	expired := *e.set
	expired.ValidUntil = m.now()
	e.set = &expired
	e.retryAt = time.Time{}
	return true
}

// StateOf returns the entry state for a user.
func (m *Manager) StateOf(userID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[userID]
	switch {
	case !ok:
		return StateAbsent
	case e.set == nil:
		return StateComputing
	case m.now().Before(e.set.ValidUntil):
		return StateFresh
	default:
		return StateStale
	}
}

// RefreshAhead starts background recomputes for entries whose validity
// expires within the refresh-ahead window. Entries in backoff or already
// computing are skipped. Returns the number of refreshes started.
func (m *Manager) RefreshAhead() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	horizon := now.Add(m.cfg.RefreshAheadWindow)
	started := 0
	for e := m.head.next; e != m.tail; e = e.next {
		if e.inflight != nil || e.set == nil {
			continue
		}
		if e.set.ValidUntil.After(horizon) {
			continue
		}
		if now.Before(e.retryAt) {
			continue
		}
		m.startFlightLocked(e)
		started++
	}

	metrics.RefreshAheadRuns.Inc()
	if started > 0 {
		m.logger.Debug().Int("started", started).Msg("refresh-ahead sweep")
	}
	return started
}

// Len returns the number of cached user entries.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// serveCopy returns a caller-owned view of a stored set. The stored set
// is never mutated after computation; staleness is marked on the copy.
func serveCopy(set *recommend.RecommendationSet, stale bool) *recommend.RecommendationSet {
	out := *set
	out.Stale = stale
	return &out
}

// insertLocked creates a new entry and enforces the capacity ceiling.
// Must be called with mu held.
func (m *Manager) insertLocked(userID string) *entry {
	e := &entry{key: userID}
	m.addToFront(e)
	m.entries[userID] = e

	for len(m.entries) > m.cfg.MaxEntries {
		if !m.evictOldestLocked() {
			break
		}
	}

	metrics.CacheEntries.Set(float64(len(m.entries)))
	return e
}

// evictOldestLocked removes the least recently used entry that has no
// computation in flight. Returns false when nothing is evictable.
func (m *Manager) evictOldestLocked() bool {
	for e := m.tail.prev; e != m.head; e = e.prev {
		if e.inflight != nil {
			continue
		}
		m.removeEntry(e)
		metrics.CacheEvictions.Inc()
		metrics.CacheEntries.Set(float64(len(m.entries)))
		m.logger.Debug().Str("user_id", e.key).Msg("evicted cache entry")
		return true
	}
	return false
}

// addToFront links an entry as most recently used. Must hold mu.
func (m *Manager) addToFront(e *entry) {
	e.prev = m.head
	e.next = m.head.next
	m.head.next.prev = e
	m.head.next = e
}

// moveToFront relinks an existing entry as most recently used. Must hold mu.
func (m *Manager) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	m.addToFront(e)
}

// removeEntry unlinks an entry from the list and map. Must hold mu.
func (m *Manager) removeEntry(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(m.entries, e.key)
}
