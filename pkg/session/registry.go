// Package session implements the in-memory challenge registry used by the
// authentication protocol.
//
// The registry maps client key ids to single-use challenge tokens. Entries
// expire after a fixed TTL (checked lazily on access) and the table is
// capacity-bounded: when full, the least-recently-set entry is evicted.
//
// All operations run under a single mutex. Check-then-act sequences that the
// authentication protocol depends on (issue-or-replace, get-and-remove) are
// exposed as single atomic methods so that two concurrent requests for the
// same client can never both observe the same live token.
package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTTL is the default challenge lifetime.
	DefaultTTL = 600 * time.Second

	// DefaultMaxEntries is the default bound on the number of live challenges.
	DefaultMaxEntries = 1_000_000
)

type entry struct {
	clientID string
	token    string
	setAt    time.Time
	lruNode  *list.Element
}

// Registry is a time-bounded, size-bounded store of single-use challenge
// tokens keyed by client id. The zero value is not usable; construct with New.
type Registry struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*entry

	// lru orders entries by set time, most recent at the front. Eviction
	// removes from the back.
	lru *list.List

	// now is swapped out by tests to control expiry.
	now func() time.Time
}

// New creates a registry with the given challenge TTL and entry bound.
// Non-positive arguments fall back to the package defaults.
func New(ttl time.Duration, maxEntries int) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Registry{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
		lru:        list.New(),
		now:        time.Now,
	}
}

// Add issues a fresh random challenge token for clientID, replacing any
// existing one and resetting its TTL. If the registry is full, the
// least-recently-set entry is evicted first.
func (r *Registry) Add(clientID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	token := uuid.NewString()

	if existing, ok := r.entries[clientID]; ok {
		existing.token = token
		existing.setAt = r.now()
		r.lru.MoveToFront(existing.lruNode)
		return token
	}

	if len(r.entries) >= r.maxEntries {
		r.evictOldestLocked()
	}

	e := &entry{clientID: clientID, token: token, setAt: r.now()}
	e.lruNode = r.lru.PushFront(e)
	r.entries[clientID] = e
	return token
}

// Get returns the live challenge token for clientID, if any. Expired entries
// are removed on access and reported as absent. Get does not refresh the TTL.
func (r *Registry) Get(clientID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.liveLocked(clientID)
	if !ok {
		return "", false
	}
	return e.token, true
}

// Take atomically removes and returns the live challenge token for clientID.
// This is the consume side of the single-use contract: after Take, no other
// request can observe the token, so a signature can be verified against the
// returned value without racing a concurrent authentication attempt.
func (r *Registry) Take(clientID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.liveLocked(clientID)
	if !ok {
		return "", false
	}
	r.removeLocked(e)
	return e.token, true
}

// Consume removes clientID's challenge if present. Removing an absent entry
// is a no-op.
func (r *Registry) Consume(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[clientID]; ok {
		r.removeLocked(e)
	}
}

// Len returns the number of entries currently held, including entries that
// have expired but have not yet been touched.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// liveLocked returns the entry for clientID if it exists and has not expired.
// Expired entries are removed. Caller must hold mu.
func (r *Registry) liveLocked(clientID string) (*entry, bool) {
	e, ok := r.entries[clientID]
	if !ok {
		return nil, false
	}
	if r.now().Sub(e.setAt) > r.ttl {
		r.removeLocked(e)
		return nil, false
	}
	return e, true
}

func (r *Registry) removeLocked(e *entry) {
	r.lru.Remove(e.lruNode)
	delete(r.entries, e.clientID)
}

func (r *Registry) evictOldestLocked() {
	oldest := r.lru.Back()
	if oldest == nil {
		return
	}
	r.removeLocked(oldest.Value.(*entry))
}
