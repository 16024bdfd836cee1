package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shipmentledger/charges"
	"shipmentledger/models"
)

const transactionColumns = `id, request_id, vehicle_number, vehicle_id, gr_number, total_amount, total_paid,
	last_payment_date, created_at, updated_at`

type PostgresTransactionRepo struct {
	DB *sql.DB
}

func NewPostgresTransactionRepo(db *sql.DB) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{DB: db}
}

func (r *PostgresTransactionRepo) TransactionsByRequest(ctx context.Context, requestID int64) ([]models.Transaction, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+transactionColumns+` FROM vehicle_transaction WHERE request_id = $1 ORDER BY id`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *PostgresTransactionRepo) PaymentsByTransaction(ctx context.Context, transactionID int64) ([]models.Payment, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, transaction_id, amount, mode, date, remarks
		FROM payment
		WHERE transaction_id = $1
		ORDER BY date, id
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.Amount, &p.Mode, &p.Date, &p.Remarks); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePayment records one payment in a single database transaction. With a nil
// transactionID the (request, vehicle) transaction is created first, or reused
// if it already exists; the running total and last payment date move with
// every payment. A GR number is only written while the transaction has none.
func (r *PostgresTransactionRepo) SavePayment(ctx context.Context, transactionID *int64, in models.PaymentInput) (models.Transaction, error) {
	dbtx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Transaction{}, err
	}
	defer func() { _ = dbtx.Rollback() }()

	now := time.Now().UTC()
	var id int64
	if transactionID == nil {
		err = dbtx.QueryRowContext(ctx, `
			INSERT INTO vehicle_transaction(request_id,vehicle_number,vehicle_id,gr_number,total_amount,total_paid,created_at)
			VALUES($1,$2,$3,$4,$5,0,$6)
			ON CONFLICT (request_id, vehicle_number) DO UPDATE SET vehicle_id = vehicle_transaction.vehicle_id
			RETURNING id
		`, in.RequestID, charges.NormalizeVehicleNumber(in.VehicleNumber), in.VehicleID, in.GRNumber, in.AmountOwed, now).Scan(&id)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("open transaction: %w", err)
		}
	} else {
		id = *transactionID
	}

	row := dbtx.QueryRowContext(ctx, `
		UPDATE vehicle_transaction SET
			total_paid = total_paid + $2,
			last_payment_date = $3,
			gr_number = COALESCE(NULLIF(gr_number, ''), $4),
			updated_at = $5
		WHERE id = $1
		RETURNING `+transactionColumns,
		id, in.Amount, in.Date, in.GRNumber, now)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, fmt.Errorf("transaction %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}

	if _, err := dbtx.ExecContext(ctx, `
		INSERT INTO payment(transaction_id,amount,mode,date,remarks)
		VALUES($1,$2,$3,$4,$5)
	`, id, in.Amount, in.Mode, in.Date, in.Remarks); err != nil {
		return models.Transaction{}, fmt.Errorf("insert payment: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

func scanTransaction(s rowScanner) (models.Transaction, error) {
	var (
		tx          models.Transaction
		lastPayment sql.NullTime
		updatedAt   sql.NullTime
	)
	err := s.Scan(&tx.ID, &tx.RequestID, &tx.VehicleNumber, &tx.VehicleID, &tx.GRNumber,
		&tx.TotalAmount, &tx.TotalPaid, &lastPayment, &tx.CreatedAt, &updatedAt)
	if err != nil {
		return models.Transaction{}, err
	}
	if lastPayment.Valid {
		tx.LastPaymentDate = &lastPayment.Time
	}
	if updatedAt.Valid {
		tx.UpdatedAt = &updatedAt.Time
	}
	return tx, nil
}
