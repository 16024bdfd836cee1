package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"shipmentledger/models"
)

const assignmentColumns = `id, request_id, vehicle_index, vehicle_number, transporter_name, driver_name,
	driver_contact, license_number, license_expiry, base_charge, additional_charges, service_charges,
	total_charge, container_no, line, seal_no, seal1, seal2, number_of_containers, tare_weight,
	gross_weight, net_weight, container_type, container_size, created_at, updated_at`

type PostgresAssignmentRepo struct {
	DB *sql.DB
}

func NewPostgresAssignmentRepo(db *sql.DB) *PostgresAssignmentRepo {
	return &PostgresAssignmentRepo{DB: db}
}

func (r *PostgresAssignmentRepo) TransporterDetails(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM vehicle_assignment
		WHERE request_id = $1
		ORDER BY vehicle_index, id
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.AssignmentRecord{}
	for rows.Next() {
		rec, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresAssignmentRepo) CreateAssignment(ctx context.Context, requestID int64, rec models.AssignmentRecord) (models.AssignmentRecord, error) {
	rec = canonical(rec)
	rec.RequestID = requestID
	now := time.Now().UTC()
	rec.CreatedAt = &now

	var id int64
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO vehicle_assignment(
			request_id,vehicle_index,vehicle_number,transporter_name,driver_name,driver_contact,
			license_number,license_expiry,base_charge,additional_charges,service_charges,total_charge,
			container_no,line,seal_no,seal1,seal2,number_of_containers,tare_weight,gross_weight,
			net_weight,container_type,container_size,created_at
		) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
		RETURNING id
	`, rec.RequestID, rec.VehicleIndex, rec.VehicleNumber, rec.TransporterName, rec.DriverName, rec.DriverContact,
		rec.LicenseNumber, rec.LicenseExpiry, string(rec.BaseCharge), string(rec.AdditionalCharges), rec.ServiceCharges,
		string(rec.TotalCharge), rec.ContainerNo, rec.Line, rec.SealNo, rec.Seal1, rec.Seal2, rec.NumberOfContainers,
		rec.TareWeight, rec.GrossWeight, rec.NetWeight, rec.ContainerType, rec.ContainerSize, now,
	).Scan(&id)
	if err != nil {
		return models.AssignmentRecord{}, fmt.Errorf("insert assignment for request %d: %w", requestID, err)
	}
	rec.ID = &id
	return rec, nil
}

func (r *PostgresAssignmentRepo) UpdateAssignment(ctx context.Context, assignmentID int64, rec models.AssignmentRecord) (models.AssignmentRecord, error) {
	rec = canonical(rec)
	now := time.Now().UTC()

	var createdAt time.Time
	err := r.DB.QueryRowContext(ctx, `
		UPDATE vehicle_assignment SET
			vehicle_index=$2, vehicle_number=$3, transporter_name=$4, driver_name=$5, driver_contact=$6,
			license_number=$7, license_expiry=$8, base_charge=$9, additional_charges=$10, service_charges=$11,
			total_charge=$12, container_no=$13, line=$14, seal_no=$15, seal1=$16, seal2=$17,
			number_of_containers=$18, tare_weight=$19, gross_weight=$20, net_weight=$21,
			container_type=$22, container_size=$23, updated_at=$24
		WHERE id = $1
		RETURNING request_id, created_at
	`, assignmentID, rec.VehicleIndex, rec.VehicleNumber, rec.TransporterName, rec.DriverName, rec.DriverContact,
		rec.LicenseNumber, rec.LicenseExpiry, string(rec.BaseCharge), string(rec.AdditionalCharges), rec.ServiceCharges,
		string(rec.TotalCharge), rec.ContainerNo, rec.Line, rec.SealNo, rec.Seal1, rec.Seal2, rec.NumberOfContainers,
		rec.TareWeight, rec.GrossWeight, rec.NetWeight, rec.ContainerType, rec.ContainerSize, now,
	).Scan(&rec.RequestID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AssignmentRecord{}, fmt.Errorf("assignment %d: %w", assignmentID, models.ErrNotFound)
	}
	if err != nil {
		return models.AssignmentRecord{}, fmt.Errorf("update assignment %d: %w", assignmentID, err)
	}
	rec.ID = &assignmentID
	rec.CreatedAt = &createdAt
	rec.UpdatedAt = &now
	return rec, nil
}

func scanAssignment(s rowScanner) (models.AssignmentRecord, error) {
	var (
		rec                     models.AssignmentRecord
		id                      int64
		base, additional, total decimal.Decimal
		serviceCharges          []byte
		createdAt               time.Time
		updatedAt               sql.NullTime
	)
	err := s.Scan(&id, &rec.RequestID, &rec.VehicleIndex, &rec.VehicleNumber, &rec.TransporterName,
		&rec.DriverName, &rec.DriverContact, &rec.LicenseNumber, &rec.LicenseExpiry,
		&base, &additional, &serviceCharges, &total,
		&rec.ContainerNo, &rec.Line, &rec.SealNo, &rec.Seal1, &rec.Seal2, &rec.NumberOfContainers,
		&rec.TareWeight, &rec.GrossWeight, &rec.NetWeight, &rec.ContainerType, &rec.ContainerSize,
		&createdAt, &updatedAt)
	if err != nil {
		return models.AssignmentRecord{}, err
	}
	rec.ID = &id
	rec.BaseCharge = models.TextAmount(base.String())
	rec.AdditionalCharges = models.TextAmount(additional.String())
	rec.TotalCharge = models.TextAmount(total.String())
	rec.ServiceCharges = string(serviceCharges)
	rec.CreatedAt = &createdAt
	if updatedAt.Valid {
		rec.UpdatedAt = &updatedAt.Time
	}
	return rec, nil
}
