package models

import (
	"bytes"
	"encoding/json"
	"time"

	"shipmentledger/charges"
)

// TextAmount is a charge as it travels on the wire. It accepts JSON strings,
// numbers and null, and always marshals back as a string.
type TextAmount string

func (a *TextAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = TextAmount(s)
		return nil
	}
	*a = TextAmount(b)
	return nil
}

func (a TextAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

// AssignmentRecord is the backend's shape of a vehicle assignment.
// ServiceCharges is a JSON object encoded as a string.
type AssignmentRecord struct {
	ID           *int64 `json:"id,omitempty" db:"id"`
	RequestID    int64  `json:"request_id" db:"request_id"`
	VehicleIndex int    `json:"vehicle_index" db:"vehicle_index"`

	VehicleNumber   string `json:"vehicle_number" db:"vehicle_number"`
	TransporterName string `json:"transporter_name" db:"transporter_name"`
	DriverName      string `json:"driver_name" db:"driver_name"`
	DriverContact   string `json:"driver_contact" db:"driver_contact"`
	LicenseNumber   string `json:"license_number" db:"license_number"`
	LicenseExpiry   string `json:"license_expiry" db:"license_expiry"`

	BaseCharge        TextAmount `json:"base_charge" db:"base_charge"`
	AdditionalCharges TextAmount `json:"additional_charges" db:"additional_charges"`
	ServiceCharges    string     `json:"service_charges" db:"service_charges"`
	TotalCharge       TextAmount `json:"total_charge" db:"total_charge"`

	ContainerDetails

	CreatedAt *time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// ToRecord renders the assignment in wire form with its derived total.
func (v VehicleAssignment) ToRecord() AssignmentRecord {
	rec := AssignmentRecord{
		RequestID:         v.RequestID,
		VehicleIndex:      v.VehicleIndex,
		VehicleNumber:     v.VehicleNumber,
		TransporterName:   v.TransporterName,
		DriverName:        v.DriverName,
		DriverContact:     v.DriverContact,
		LicenseNumber:     v.LicenseNumber,
		LicenseExpiry:     v.LicenseExpiry,
		BaseCharge:        TextAmount(v.BaseCharge.String()),
		AdditionalCharges: TextAmount(v.AdditionalCharges.String()),
		ServiceCharges:    v.ServiceCharges.Encode(),
		TotalCharge:       TextAmount(v.TotalCharge().String()),
		ContainerDetails:  v.Container,
	}
	if v.ID != nil {
		id := *v.ID
		rec.ID = &id
	}
	return rec
}

// AssignmentFromRecord parses a wire record once at the edge. It never fails:
// unreadable amounts become zero and a missing or malformed service charge
// mapping becomes the zero-initialized mapping for serviceNames.
func AssignmentFromRecord(rec AssignmentRecord, serviceNames []string) VehicleAssignment {
	v := VehicleAssignment{
		RequestID:         rec.RequestID,
		VehicleIndex:      rec.VehicleIndex,
		VehicleNumber:     rec.VehicleNumber,
		TransporterName:   rec.TransporterName,
		DriverName:        rec.DriverName,
		DriverContact:     rec.DriverContact,
		LicenseNumber:     rec.LicenseNumber,
		LicenseExpiry:     rec.LicenseExpiry,
		BaseCharge:        charges.ParseAmount(string(rec.BaseCharge)),
		AdditionalCharges: charges.ParseAmount(string(rec.AdditionalCharges)),
		ServiceCharges:    charges.ParseServiceCharges(rec.ServiceCharges, serviceNames),
		Container:         rec.ContainerDetails,
	}
	if rec.ID != nil && *rec.ID != 0 {
		id := *rec.ID
		v.ID = &id
	}
	return v
}
