package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/application/ports"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
)

var (
	_ ports.AvailabilityCache = (*MemoryAvailabilityCache)(nil)
	_ ports.OperationLocker   = (*MemoryOperationLocker)(nil)
)

type memoryEntry struct {
	value     decimal.Decimal
	expiresAt time.Time
}

// MemoryAvailabilityCache implementación en memoria para tests y despliegues
// sin Redis.
type MemoryAvailabilityCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryAvailabilityCache() *MemoryAvailabilityCache {
	return &MemoryAvailabilityCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryAvailabilityCache) Get(_ context.Context, b entity.Bucket) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[availabilityKey(b)]
	if !ok || time.Now().After(e.expiresAt) {
		delete(c.entries, availabilityKey(b))
		return decimal.Zero, false
	}
	return e.value, true
}

func (c *MemoryAvailabilityCache) Set(_ context.Context, b entity.Bucket, available decimal.Decimal, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[availabilityKey(b)] = memoryEntry{value: available, expiresAt: time.Now().Add(ttl)}
}

func (c *MemoryAvailabilityCache) Invalidate(_ context.Context, b entity.Bucket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, availabilityKey(b))
}

// MemoryOperationLocker lock en memoria con la misma semántica try-lock que la
// variante Redis.
type MemoryOperationLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time // key -> expiración
}

func NewMemoryOperationLocker() *MemoryOperationLocker {
	return &MemoryOperationLocker{locks: make(map[string]time.Time)}
}

func (l *MemoryOperationLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if exp, held := l.locks[key]; held && time.Now().Before(exp) {
		return nil, false, nil
	}
	l.locks[key] = time.Now().Add(ttl)
	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.locks, key)
	}
	return release, true, nil
}
