// Package assignment keeps a request's per-vehicle assignment list consistent
// with its declared vehicle count and selected services. Every operation
// returns a new list; input lists are never modified.
package assignment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shipmentledger/charges"
	"shipmentledger/models"
)

var (
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrUnknownField       = errors.New("unknown assignment field")
)

// Field names an editable assignment field.
type Field string

const (
	FieldVehicleNumber      Field = "vehicle_number"
	FieldTransporterName    Field = "transporter_name"
	FieldDriverName         Field = "driver_name"
	FieldDriverContact      Field = "driver_contact"
	FieldLicenseNumber      Field = "license_number"
	FieldLicenseExpiry      Field = "license_expiry"
	FieldBaseCharge         Field = "base_charge"
	FieldAdditionalCharges  Field = "additional_charges"
	FieldServiceCharges     Field = "service_charges"
	FieldContainerNo        Field = "container_no"
	FieldLine               Field = "line"
	FieldSealNo             Field = "seal_no"
	FieldSeal1              Field = "seal1"
	FieldSeal2              Field = "seal2"
	FieldNumberOfContainers Field = "number_of_containers"
	FieldTareWeight         Field = "tare_weight"
	FieldGrossWeight        Field = "gross_weight"
	FieldNetWeight          Field = "net_weight"
	FieldContainerType      Field = "container_type"
	FieldContainerSize      Field = "container_size"
)

// Initialize returns count empty assignments numbered 1..count.
func Initialize(count int, serviceNames []string) []models.VehicleAssignment {
	if count < 0 {
		count = 0
	}
	list := make([]models.VehicleAssignment, count)
	for i := range list {
		list[i] = models.NewVehicleAssignment(i+1, serviceNames)
	}
	return list
}

// Resize grows or shrinks list to newCount. Kept entries are carried over
// untouched apart from their index; new entries are empty. When the length
// already matches, list itself is returned so in-progress edits survive.
func Resize(list []models.VehicleAssignment, newCount int, serviceNames []string) []models.VehicleAssignment {
	if newCount < 0 {
		newCount = 0
	}
	if newCount == len(list) {
		return list
	}

	out := make([]models.VehicleAssignment, newCount)
	for i := range out {
		if i < len(list) {
			out[i] = list[i]
			out[i].VehicleIndex = i + 1
			continue
		}
		out[i] = models.NewVehicleAssignment(i+1, serviceNames)
	}
	return out
}

// Modify replaces the assignment at vehicleIndex with a copy changed by fn.
func Modify(list []models.VehicleAssignment, vehicleIndex int, fn func(*models.VehicleAssignment) error) ([]models.VehicleAssignment, error) {
	pos := vehicleIndex - 1
	if pos < 0 || pos >= len(list) || list[pos].VehicleIndex != vehicleIndex {
		return nil, fmt.Errorf("vehicle %d: %w", vehicleIndex, ErrAssignmentNotFound)
	}

	v := list[pos].Clone()
	if err := fn(&v); err != nil {
		return nil, fmt.Errorf("vehicle %d: %w", vehicleIndex, err)
	}

	out := make([]models.VehicleAssignment, len(list))
	copy(out, list)
	out[pos] = v
	return out, nil
}

// UpdateField sets one field from its text form. Charge fields are parsed
// here, once; blank means zero. For FieldServiceCharges value is the
// string-encoded mapping. The total charge is derived, so it is current after
// any update.
func UpdateField(list []models.VehicleAssignment, vehicleIndex int, field Field, value string) ([]models.VehicleAssignment, error) {
	return Modify(list, vehicleIndex, func(v *models.VehicleAssignment) error {
		return setField(v, field, value)
	})
}

// UpdateServiceCharge sets the charge for a single service.
func UpdateServiceCharge(list []models.VehicleAssignment, vehicleIndex int, service, value string) ([]models.VehicleAssignment, error) {
	amount, err := charges.ParseAmountStrict(value)
	if err != nil {
		return nil, fmt.Errorf("vehicle %d %s: %w", vehicleIndex, service, err)
	}
	return Modify(list, vehicleIndex, func(v *models.VehicleAssignment) error {
		v.ServiceCharges = v.ServiceCharges.With(service, amount)
		return nil
	})
}

func setField(v *models.VehicleAssignment, field Field, value string) error {
	switch field {
	case FieldVehicleNumber:
		v.VehicleNumber = value
	case FieldTransporterName:
		v.TransporterName = value
	case FieldDriverName:
		v.DriverName = value
	case FieldDriverContact:
		v.DriverContact = value
	case FieldLicenseNumber:
		v.LicenseNumber = value
	case FieldLicenseExpiry:
		v.LicenseExpiry = value
	case FieldBaseCharge:
		d, err := charges.ParseAmountStrict(value)
		if err != nil {
			return err
		}
		v.BaseCharge = d
	case FieldAdditionalCharges:
		d, err := charges.ParseAmountStrict(value)
		if err != nil {
			return err
		}
		v.AdditionalCharges = d
	case FieldServiceCharges:
		v.ServiceCharges = charges.ParseServiceCharges(value, serviceNamesOf(v.ServiceCharges))
	case FieldContainerNo:
		v.Container.ContainerNo = value
	case FieldLine:
		v.Container.Line = value
	case FieldSealNo:
		v.Container.SealNo = value
	case FieldSeal1:
		v.Container.Seal1 = value
	case FieldSeal2:
		v.Container.Seal2 = value
	case FieldNumberOfContainers:
		n := 0
		if s := strings.TrimSpace(value); s != "" {
			var err error
			if n, err = strconv.Atoi(s); err != nil || n < 0 {
				return fmt.Errorf("number of containers %q is not a count", value)
			}
		}
		v.Container.NumberOfContainers = n
	case FieldTareWeight:
		v.Container.TareWeight = value
	case FieldGrossWeight:
		v.Container.GrossWeight = value
	case FieldNetWeight:
		v.Container.NetWeight = value
	case FieldContainerType:
		v.Container.ContainerType = value
	case FieldContainerSize:
		v.Container.ContainerSize = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// serviceNamesOf is nil for an empty mapping, which accepts any service.
func serviceNamesOf(sc charges.ServiceCharges) []string {
	if len(sc) == 0 {
		return nil
	}
	names := make([]string, 0, len(sc))
	for name := range sc {
		names = append(names, name)
	}
	return names
}

// SyncServices rebuilds every service charge mapping for a new service
// selection: kept services keep their amount, new ones start at zero and
// deselected ones are dropped.
func SyncServices(list []models.VehicleAssignment, serviceNames []string) []models.VehicleAssignment {
	out := make([]models.VehicleAssignment, len(list))
	for i, v := range list {
		sc := charges.NewServiceCharges(serviceNames)
		for name := range sc {
			if amount, ok := v.ServiceCharges[name]; ok {
				sc[name] = amount
			}
		}
		v = v.Clone()
		v.ServiceCharges = sc
		out[i] = v
	}
	return out
}
