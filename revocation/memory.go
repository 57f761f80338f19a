// Package revocation provides authist.RevocationStore implementations for
// refresh token rotation.
package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps revoked token ids in process. Entries are dropped once
// their expiry passes. Suitable for a single instance.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
	sweeps  int
}

const sweepEvery = 128

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[string]time.Time{},
		now:     time.Now,
	}
}

// WithClock overrides time.Now, for tests.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	if now != nil {
		m.now = now
	}
	return m
}

// Consume implements authist.RevocationStore.
func (m *MemoryStore) Consume(_ context.Context, tokenID string, until time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.liveLocked(tokenID) {
		return false, nil
	}
	m.entries[tokenID] = until
	m.sweeps++
	if m.sweeps >= sweepEvery {
		m.sweepLocked()
	}
	return true, nil
}

// IsRevoked reports whether tokenID was consumed and has not expired yet.
func (m *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveLocked(tokenID), nil
}

func (m *MemoryStore) liveLocked(tokenID string) bool {
	until, ok := m.entries[tokenID]
	if !ok {
		return false
	}
	if !until.IsZero() && !m.now().Before(until) {
		delete(m.entries, tokenID)
		return false
	}
	return true
}

// Len reports the number of tracked ids.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep drops expired entries.
func (m *MemoryStore) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
}

func (m *MemoryStore) sweepLocked() {
	now := m.now()
	for id, until := range m.entries {
		if !until.IsZero() && !now.Before(until) {
			delete(m.entries, id)
		}
	}
	m.sweeps = 0
}
