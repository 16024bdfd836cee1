package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"shipmentledger/models"
)

const requestColumns = `id, requested_price, vehicle_count, service_names, from_location, to_location, status, created_at`

type PostgresRequestRepo struct {
	DB *sql.DB
}

func NewPostgresRequestRepo(db *sql.DB) *PostgresRequestRepo {
	return &PostgresRequestRepo{DB: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresRequestRepo) CreateRequest(ctx context.Context, req *models.TransportRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = "open"
	}
	if req.ServiceNames == nil {
		req.ServiceNames = []string{}
	}
	return r.DB.QueryRowContext(ctx, `
		INSERT INTO transport_request(requested_price,vehicle_count,service_names,from_location,to_location,status,created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, req.RequestedPrice, req.VehicleCount, pq.Array(req.ServiceNames), req.FromLocation, req.ToLocation, req.Status, req.CreatedAt).Scan(&req.ID)
}

func (r *PostgresRequestRepo) GetRequest(ctx context.Context, id int64) (models.TransportRequest, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM transport_request WHERE id = $1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TransportRequest{}, fmt.Errorf("request %d: %w", id, models.ErrNotFound)
	}
	return req, err
}

func (r *PostgresRequestRepo) ListRequests(ctx context.Context, ids []int64) ([]models.TransportRequest, error) {
	if len(ids) == 0 {
		return []models.TransportRequest{}, nil
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+requestColumns+` FROM transport_request WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TransportRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func scanRequest(s rowScanner) (models.TransportRequest, error) {
	var (
		req   models.TransportRequest
		names pq.StringArray
	)
	err := s.Scan(&req.ID, &req.RequestedPrice, &req.VehicleCount, &names,
		&req.FromLocation, &req.ToLocation, &req.Status, &req.CreatedAt)
	if err != nil {
		return models.TransportRequest{}, err
	}
	req.ServiceNames = []string(names)
	if req.ServiceNames == nil {
		req.ServiceNames = []string{}
	}
	return req, nil
}
