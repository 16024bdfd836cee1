package models

import (
	"github.com/shopspring/decimal"

	"shipmentledger/charges"
)

// ContainerDetails is optional cargo documentation carried alongside an assignment.
type ContainerDetails struct {
	ContainerNo        string `json:"container_no,omitempty"`
	Line               string `json:"line,omitempty"`
	SealNo             string `json:"seal_no,omitempty"`
	Seal1              string `json:"seal1,omitempty"`
	Seal2              string `json:"seal2,omitempty"`
	NumberOfContainers int    `json:"number_of_containers,omitempty"`
	TareWeight         string `json:"tare_weight,omitempty"`
	GrossWeight        string `json:"gross_weight,omitempty"`
	NetWeight          string `json:"net_weight,omitempty"`
	ContainerType      string `json:"container_type,omitempty"`
	ContainerSize      string `json:"container_size,omitempty"`
}

// VehicleAssignment is one vehicle committed to a transport request.
// Its total charge is always derived from the charge components, see TotalCharge.
type VehicleAssignment struct {
	ID           *int64 // nil until the first successful save
	RequestID    int64
	VehicleIndex int // 1-based position in the request's list

	VehicleNumber   string
	TransporterName string
	DriverName      string
	DriverContact   string
	LicenseNumber   string
	LicenseExpiry   string

	BaseCharge        decimal.Decimal
	AdditionalCharges decimal.Decimal
	ServiceCharges    charges.ServiceCharges

	Container ContainerDetails
}

// NewVehicleAssignment returns an empty assignment at the given position with
// every selected service charge set to zero.
func NewVehicleAssignment(vehicleIndex int, serviceNames []string) VehicleAssignment {
	return VehicleAssignment{
		VehicleIndex:   vehicleIndex,
		ServiceCharges: charges.NewServiceCharges(serviceNames),
	}
}

func (v VehicleAssignment) Breakdown() charges.Breakdown {
	return charges.Breakdown{
		BaseCharge:        v.BaseCharge,
		AdditionalCharges: v.AdditionalCharges,
		ServiceCharges:    v.ServiceCharges,
	}
}

// TotalCharge is base + additional + all service charges.
func (v VehicleAssignment) TotalCharge() decimal.Decimal {
	return charges.TotalCharge(v.Breakdown())
}

func (v VehicleAssignment) VehicleKey() string {
	return v.VehicleNumber
}

func (v VehicleAssignment) IsPersisted() bool {
	return v.ID != nil && *v.ID != 0
}

// Clone returns a copy that shares no mutable state with v.
func (v VehicleAssignment) Clone() VehicleAssignment {
	out := v
	if v.ID != nil {
		id := *v.ID
		out.ID = &id
	}
	out.ServiceCharges = v.ServiceCharges.Clone()
	return out
}
