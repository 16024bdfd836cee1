package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the payment ledger entry for one (request, vehicle) pair.
// TotalPaid is cumulative across all of its payments.
type Transaction struct {
	ID              int64           `json:"id" db:"id"`
	RequestID       int64           `json:"request_id" db:"request_id"`
	VehicleNumber   string          `json:"vehicle_number" db:"vehicle_number"`
	VehicleID       int64           `json:"vehicle_id" db:"vehicle_id"`
	GRNumber        string          `json:"gr_number" db:"gr_number"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	TotalPaid       decimal.Decimal `json:"total_paid" db:"total_paid"`
	LastPaymentDate *time.Time      `json:"last_payment_date,omitempty" db:"last_payment_date"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty" db:"updated_at"`
}

// Balance is what is still owed on this vehicle.
func (t Transaction) Balance() decimal.Decimal {
	return t.TotalAmount.Sub(t.TotalPaid)
}

// Payment is one immutable entry in a transaction's history.
type Payment struct {
	ID            int64           `json:"id" db:"id"`
	TransactionID int64           `json:"transaction_id" db:"transaction_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Mode          string          `json:"mode" db:"mode"`
	Date          time.Time       `json:"date" db:"date"`
	Remarks       string          `json:"remarks,omitempty" db:"remarks"`
}

// PaymentInput records a payment against a vehicle. A new transaction owes the
// vehicle assignment's total charge; AmountOwed stands in when there is no
// assignment and is ignored once the transaction exists.
type PaymentInput struct {
	RequestID     int64           `json:"request_id" validate:"required,gt=0"`
	VehicleNumber string          `json:"vehicle_number" validate:"required"`
	VehicleID     int64           `json:"vehicle_id"`
	GRNumber      string          `json:"gr_number"`
	AmountOwed    decimal.Decimal `json:"amount_owed"`
	Amount        decimal.Decimal `json:"amount"`
	Mode          string          `json:"mode" validate:"required"`
	Date          time.Time       `json:"date"`
	Remarks       string          `json:"remarks,omitempty"`
}
