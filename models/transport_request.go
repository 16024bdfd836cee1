package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransportRequest is the shipment every assignment and transaction refers to.
// RequestedPrice is the revenue side of reconciliation.
type TransportRequest struct {
	ID             int64           `json:"id" db:"id"`
	RequestedPrice decimal.Decimal `json:"requested_price" db:"requested_price"`
	VehicleCount   int             `json:"vehicle_count" db:"vehicle_count"`
	ServiceNames   []string        `json:"service_names" db:"service_names"`
	FromLocation   string          `json:"from_location" db:"from_location"`
	ToLocation     string          `json:"to_location" db:"to_location"`
	Status         string          `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
