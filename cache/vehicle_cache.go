// Package cache stores the unique-vehicle lists the reconciliation engine
// derives costs from.
package cache

import (
	"context"
	"slices"
	"sync"

	"shipmentledger/models"
)

// VehicleCache maps a request id to its unique-vehicle list. Implementations
// treat lookup failures as misses.
type VehicleCache interface {
	Get(ctx context.Context, requestID int64) ([]models.VehicleAssignment, bool)
	Set(ctx context.Context, requestID int64, list []models.VehicleAssignment)
	Delete(ctx context.Context, requestID int64)
	Clear(ctx context.Context)
}

// InMemoryVehicleCache is a process-local VehicleCache without expiry.
type InMemoryVehicleCache struct {
	mu      sync.RWMutex
	entries map[int64][]models.VehicleAssignment
}

func NewInMemoryVehicleCache() *InMemoryVehicleCache {
	return &InMemoryVehicleCache{entries: make(map[int64][]models.VehicleAssignment)}
}

func (c *InMemoryVehicleCache) Get(_ context.Context, requestID int64) ([]models.VehicleAssignment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list, ok := c.entries[requestID]
	if !ok {
		return nil, false
	}
	return slices.Clone(list), true
}

func (c *InMemoryVehicleCache) Set(_ context.Context, requestID int64, list []models.VehicleAssignment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[requestID] = slices.Clone(list)
}

func (c *InMemoryVehicleCache) Delete(_ context.Context, requestID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, requestID)
}

func (c *InMemoryVehicleCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int64][]models.VehicleAssignment)
}

func (c *InMemoryVehicleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ VehicleCache = (*InMemoryVehicleCache)(nil)
