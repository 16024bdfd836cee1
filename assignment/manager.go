package assignment

import (
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"shipmentledger/charges"
	"shipmentledger/models"
)

// Manager owns the assignment list of one request. Each mutation swaps in a
// new list, so a snapshot handed out earlier never changes underneath its holder.
type Manager struct {
	mu           sync.RWMutex
	requestID    int64
	serviceNames []string
	list         []models.VehicleAssignment
}

func NewManager(requestID int64, vehicleCount int, serviceNames []string) *Manager {
	m := &Manager{
		requestID:    requestID,
		serviceNames: slices.Clone(serviceNames),
	}
	m.list = m.stamp(Initialize(vehicleCount, serviceNames))
	return m
}

// Snapshot returns the current list. Treat it as read-only.
func (m *Manager) Snapshot() []models.VehicleAssignment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.list)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.list)
}

func (m *Manager) ServiceNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.serviceNames)
}

// SetVehicleCount applies a change of the declared vehicle count.
func (m *Manager) SetVehicleCount(n int) []models.VehicleAssignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = m.stamp(Resize(m.list, n, m.serviceNames))
	return slices.Clone(m.list)
}

// SetServiceNames applies a change of the request's selected services.
func (m *Manager) SetServiceNames(serviceNames []string) []models.VehicleAssignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serviceNames = slices.Clone(serviceNames)
	m.list = SyncServices(m.list, m.serviceNames)
	return slices.Clone(m.list)
}

func (m *Manager) Update(vehicleIndex int, field Field, value string) ([]models.VehicleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := UpdateField(m.list, vehicleIndex, field, value)
	if err != nil {
		return nil, err
	}
	m.list = next
	return slices.Clone(next), nil
}

func (m *Manager) UpdateServiceCharge(vehicleIndex int, service, value string) ([]models.VehicleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := UpdateServiceCharge(m.list, vehicleIndex, service, value)
	if err != nil {
		return nil, err
	}
	m.list = next
	return slices.Clone(next), nil
}

// Replace adopts a list loaded or saved elsewhere, keeping the declared length.
func (m *Manager) Replace(list []models.VehicleAssignment) []models.VehicleAssignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.list)
	next := make([]models.VehicleAssignment, len(list))
	for i, v := range list {
		next[i] = v.Clone()
		next[i].VehicleIndex = i + 1
	}
	m.list = m.stamp(Resize(next, n, m.serviceNames))
	return slices.Clone(m.list)
}

// TotalVehicleCharges is the request's cost, counting each vehicle once.
func (m *Manager) TotalVehicleCharges() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return charges.VehicleCharges(m.list)
}

// stamp sets the request id on entries that lack one. Entries are copied, never edited in place.
func (m *Manager) stamp(list []models.VehicleAssignment) []models.VehicleAssignment {
	var out []models.VehicleAssignment
	for i, v := range list {
		if v.RequestID == m.requestID {
			continue
		}
		if out == nil {
			out = slices.Clone(list)
		}
		out[i].RequestID = m.requestID
	}
	if out == nil {
		return list
	}
	return out
}
