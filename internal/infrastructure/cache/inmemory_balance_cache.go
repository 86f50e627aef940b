package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InMemoryBalanceCache implements the balance cache with a process-local map.
// Suitable for development and tests, or single-instance deployments where
// Redis is not configured.
type InMemoryBalanceCache struct {
	mu      sync.RWMutex
	entries map[balanceCacheKey]balanceCacheEntry
	ttl     time.Duration
}

type balanceCacheKey struct {
	clinicID  uuid.UUID
	patientID uuid.UUID
}

type balanceCacheEntry struct {
	balance   decimal.Decimal
	expiresAt time.Time
}

// NewInMemoryBalanceCache creates a new in-memory balance cache
func NewInMemoryBalanceCache(ttl time.Duration) *InMemoryBalanceCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &InMemoryBalanceCache{
		entries: make(map[balanceCacheKey]balanceCacheEntry),
		ttl:     ttl,
	}
}

// Get retrieves a cached balance. The second return is false on a miss or
// when the entry has expired.
func (c *InMemoryBalanceCache) Get(_ context.Context, clinicID, patientID uuid.UUID) (decimal.Decimal, bool, error) {
	key := balanceCacheKey{clinicID: clinicID, patientID: patientID}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return decimal.Zero, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return decimal.Zero, false, nil
	}
	return entry.balance, true, nil
}

// Set stores a balance with the configured TTL
func (c *InMemoryBalanceCache) Set(_ context.Context, clinicID, patientID uuid.UUID, balance decimal.Decimal) error {
	key := balanceCacheKey{clinicID: clinicID, patientID: patientID}

	c.mu.Lock()
	c.entries[key] = balanceCacheEntry{
		balance:   balance,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
	return nil
}

// Invalidate removes a patient's cached balance
func (c *InMemoryBalanceCache) Invalidate(_ context.Context, clinicID, patientID uuid.UUID) error {
	key := balanceCacheKey{clinicID: clinicID, patientID: patientID}

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len reports the number of live entries, expired ones included until read
func (c *InMemoryBalanceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
