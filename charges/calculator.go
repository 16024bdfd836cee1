// Package charges computes per-vehicle charges and request-level financial figures.
// Everything here is pure and synchronous.
package charges

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Breakdown holds the addends of a vehicle's total charge.
type Breakdown struct {
	BaseCharge        decimal.Decimal
	AdditionalCharges decimal.Decimal
	ServiceCharges    ServiceCharges
}

// TotalCharge is base + additional + the sum of all service charges.
func TotalCharge(b Breakdown) decimal.Decimal {
	return b.BaseCharge.Add(b.AdditionalCharges).Add(b.ServiceCharges.Sum())
}

// Vehicle is anything carrying a vehicle number and a total charge.
type Vehicle interface {
	VehicleKey() string
	TotalCharge() decimal.Decimal
}

// NormalizeVehicleNumber is the deduplication key for a vehicle number.
func NormalizeVehicleNumber(number string) string {
	return strings.ToUpper(strings.Join(strings.Fields(number), ""))
}

// UniqueVehicles keeps the first record seen for each vehicle number, in encounter order.
// Records without a vehicle number are unassigned slots and are all kept.
func UniqueVehicles[T Vehicle](items []T) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		key := NormalizeVehicleNumber(item.VehicleKey())
		if key != "" {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, item)
	}
	return out
}

// VehicleCharges sums the total charge of each unique vehicle.
func VehicleCharges[T Vehicle](items []T) decimal.Decimal {
	total := decimal.Zero
	for _, item := range UniqueVehicles(items) {
		total = total.Add(item.TotalCharge())
	}
	return total
}

// PaymentStatus describes how much of the revenue has been collected.
type PaymentStatus string

const (
	FullyPaid     PaymentStatus = "FullyPaid"
	PartiallyPaid PaymentStatus = "PartiallyPaid"
	Unpaid        PaymentStatus = "Unpaid"
)

// StatusFor derives the payment status. Nothing paid is always Unpaid, even for zero revenue.
func StatusFor(revenue, totalPaid decimal.Decimal) PaymentStatus {
	switch {
	case !totalPaid.IsPositive():
		return Unpaid
	case totalPaid.GreaterThanOrEqual(revenue):
		return FullyPaid
	default:
		return PartiallyPaid
	}
}

// FinancialSummary is the reconciled view of one transport request.
type FinancialSummary struct {
	ServiceCharges       decimal.Decimal `json:"service_charges"`
	VehicleCharges       decimal.Decimal `json:"vehicle_charges"`
	ProfitLoss           decimal.Decimal `json:"profit_loss"`
	ProfitLossPercentage decimal.Decimal `json:"profit_loss_percentage"`
	TotalPaid            decimal.Decimal `json:"total_paid"`
	OutstandingAmount    decimal.Decimal `json:"outstanding_amount"`
	PaymentStatus        PaymentStatus   `json:"payment_status"`
}

// ComputeSummary combines revenue, cost and collections. The percentage is
// rounded to two places and is zero when there is no revenue.
func ComputeSummary(revenue, vehicleCharges, totalPaid decimal.Decimal) FinancialSummary {
	profit := revenue.Sub(vehicleCharges)

	pct := decimal.Zero
	if revenue.IsPositive() {
		pct = profit.Div(revenue).Mul(hundred).Round(2)
	}

	outstanding := revenue.Sub(totalPaid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	return FinancialSummary{
		ServiceCharges:       revenue,
		VehicleCharges:       vehicleCharges,
		ProfitLoss:           profit,
		ProfitLossPercentage: pct,
		TotalPaid:            totalPaid,
		OutstandingAmount:    outstanding,
		PaymentStatus:        StatusFor(revenue, totalPaid),
	}
}
