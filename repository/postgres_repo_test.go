package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipmentledger/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var created = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestPostgresRequestRepo_Get(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRequestRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transport_request WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "requested_price", "vehicle_count", "service_names", "from_location", "to_location", "status", "created_at"}).
			AddRow(int64(3), "5000.50", 2, "{loading,unloading}", "Pune", "Surat", "open", created))

	req, err := repo.GetRequest(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "5000.5", req.RequestedPrice.String())
	assert.Equal(t, []string{"loading", "unloading"}, req.ServiceNames)
	assert.Equal(t, "Surat", req.ToLocation)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transport_request WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetRequest(context.Background(), 4)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRequestRepo_CreateAndList(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRequestRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO transport_request")).
		WithArgs(decimal.NewFromInt(9000), 3, pq.Array([]string{}), "Pune", "Delhi", "open", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	req := &models.TransportRequest{RequestedPrice: decimal.NewFromInt(9000), VehicleCount: 3, FromLocation: "Pune", ToLocation: "Delhi"}
	require.NoError(t, repo.CreateRequest(context.Background(), req))
	assert.Equal(t, int64(11), req.ID)
	assert.Equal(t, "open", req.Status)

	list, err := repo.ListRequests(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1)")).
		WithArgs(pq.Array([]int64{11, 12})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "requested_price", "vehicle_count", "service_names", "from_location", "to_location", "status", "created_at"}).
			AddRow(int64(11), "9000", 3, "{}", "Pune", "Delhi", "open", created))
	list, err = repo.ListRequests(context.Background(), []int64{11, 12})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{}, list[0].ServiceNames)

	require.NoError(t, mock.ExpectationsWereMet())
}

var assignmentCols = []string{"id", "request_id", "vehicle_index", "vehicle_number", "transporter_name", "driver_name",
	"driver_contact", "license_number", "license_expiry", "base_charge", "additional_charges", "service_charges",
	"total_charge", "container_no", "line", "seal_no", "seal1", "seal2", "number_of_containers", "tare_weight",
	"gross_weight", "net_weight", "container_type", "container_size", "created_at", "updated_at"}

func TestPostgresAssignmentRepo_TransporterDetails(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresAssignmentRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicle_assignment")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(assignmentCols).
			AddRow(int64(5), int64(3), 1, "MH12AB1234", "Shree", "Ramesh", "9876543210", "LIC1", "2027-01-01",
				"1000", "0", []byte(`{"loading":"250"}`), "1250", "", "", "", "", "", 0, "", "", "", "", "", created, nil))

	recs, err := repo.TransporterDetails(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(5), *recs[0].ID)
	assert.Equal(t, models.TextAmount("1250"), recs[0].TotalCharge)
	assert.Equal(t, `{"loading":"250"}`, recs[0].ServiceCharges)
	assert.Nil(t, recs[0].UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAssignmentRepo_CreateDerivesTotal(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresAssignmentRepo(db)

	rec := models.AssignmentRecord{
		VehicleIndex:      1,
		VehicleNumber:     "MH12AB1234",
		BaseCharge:        "1000",
		AdditionalCharges: "",
		ServiceCharges:    `{"loading":250}`,
		TotalCharge:       "999",
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO vehicle_assignment")).
		WithArgs(int64(3), 1, "MH12AB1234", "", "", "", "", "", "1000", "0", `{"loading":"250"}`, "1250",
			"", "", "", "", "", 0, "", "", "", "", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))

	out, err := repo.CreateAssignment(context.Background(), 3, rec)
	require.NoError(t, err)
	assert.Equal(t, int64(41), *out.ID)
	assert.Equal(t, int64(3), out.RequestID)
	assert.Equal(t, models.TextAmount("1250"), out.TotalCharge)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAssignmentRepo_UpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresAssignmentRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE vehicle_assignment SET")).
		WillReturnRows(sqlmock.NewRows([]string{"request_id", "created_at"}))

	_, err := repo.UpdateAssignment(context.Background(), 99, models.AssignmentRecord{VehicleIndex: 1})
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

var transactionCols = []string{"id", "request_id", "vehicle_number", "vehicle_id", "gr_number", "total_amount",
	"total_paid", "last_payment_date", "created_at", "updated_at"}

func TestPostgresTransactionRepo_SavePaymentOpensTransaction(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresTransactionRepo(db)
	paidAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	in := models.PaymentInput{
		RequestID:     3,
		VehicleNumber: "mh12 ab 1234",
		VehicleID:     8,
		GRNumber:      "GR-3-8-000001",
		AmountOwed:    decimal.NewFromInt(1250),
		Amount:        decimal.NewFromInt(500),
		Mode:          "cash",
		Date:          paidAt,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO vehicle_transaction")).
		WithArgs(int64(3), "MH12AB1234", int64(8), "GR-3-8-000001", decimal.NewFromInt(1250), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE vehicle_transaction SET")).
		WithArgs(int64(12), decimal.NewFromInt(500), paidAt, "GR-3-8-000001", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(transactionCols).
			AddRow(int64(12), int64(3), "MH12AB1234", int64(8), "GR-3-8-000001", "1250", "500", paidAt, created, created))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payment")).
		WithArgs(int64(12), decimal.NewFromInt(500), "cash", paidAt, "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := repo.SavePayment(context.Background(), nil, in)
	require.NoError(t, err)
	assert.Equal(t, int64(12), tx.ID)
	assert.Equal(t, "750", tx.Balance().String())
	require.NotNil(t, tx.LastPaymentDate)
	assert.True(t, tx.LastPaymentDate.Equal(paidAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransactionRepo_SavePaymentUnknownTransaction(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresTransactionRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE vehicle_transaction SET")).
		WillReturnRows(sqlmock.NewRows(transactionCols))
	mock.ExpectRollback()

	id := int64(404)
	_, err := repo.SavePayment(context.Background(), &id, models.PaymentInput{RequestID: 3, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransactionRepo_Reads(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresTransactionRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicle_transaction WHERE request_id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(transactionCols).
			AddRow(int64(12), int64(3), "MH12AB1234", int64(8), "", "1250", "0", nil, created, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM payment")).
		WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "amount", "mode", "date", "remarks"}).
			AddRow(int64(1), int64(12), "200.75", "upi", created, "advance"))

	txs, err := repo.TransactionsByRequest(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Nil(t, txs[0].LastPaymentDate)
	assert.True(t, txs[0].TotalPaid.IsZero())

	payments, err := repo.PaymentsByTransaction(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "200.75", payments[0].Amount.String())
	assert.Equal(t, "advance", payments[0].Remarks)
	require.NoError(t, mock.ExpectationsWereMet())
}
