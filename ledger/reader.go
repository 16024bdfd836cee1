// Package ledger reads and records payments against a request's vehicles.
package ledger

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"shipmentledger/charges"
	"shipmentledger/logger"
	"shipmentledger/models"
	"shipmentledger/validation"
)

const DefaultTimeout = 10 * time.Second

// Source is the backend side of the payment ledger.
type Source interface {
	TransactionsByRequest(ctx context.Context, requestID int64) ([]models.Transaction, error)
	PaymentsByTransaction(ctx context.Context, transactionID int64) ([]models.Payment, error)
	// SavePayment appends to transactionID, or creates the transaction when it is nil.
	SavePayment(ctx context.Context, transactionID *int64, in models.PaymentInput) (models.Transaction, error)
}

// AssignmentSource lists a request's vehicle assignments. The reader uses it
// to seed the amount owed of a new transaction.
type AssignmentSource interface {
	TransporterDetails(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error)
}

// Reader derives payment figures for requests and caches payment histories
// per transaction until a payment is recorded against it.
type Reader struct {
	src         Source
	assignments AssignmentSource
	timeout     time.Duration
	logger      *zap.Logger
	validate    *validator.Validate
	now         func() time.Time

	mu      sync.RWMutex
	history map[int64][]models.Payment
	group   singleflight.Group
}

type Option func(*Reader)

func WithTimeout(d time.Duration) Option {
	return func(r *Reader) { r.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) { r.logger = logger.OrNop(l) }
}

// WithAssignments makes a new transaction owe its vehicle's total charge.
func WithAssignments(src AssignmentSource) Option {
	return func(r *Reader) { r.assignments = src }
}

// WithClock replaces time.Now, used for payment dates and GR numbers.
func WithClock(now func() time.Time) Option {
	return func(r *Reader) { r.now = now }
}

func NewReader(src Source, opts ...Option) *Reader {
	r := &Reader{
		src:      src,
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
		validate: validation.New(),
		now:      time.Now,
		history:  make(map[int64][]models.Payment),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// LoadTransactions returns the request's transactions or a *models.FetchError.
func (r *Reader) LoadTransactions(ctx context.Context, requestID int64) ([]models.Transaction, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	txs, err := r.src.TransactionsByRequest(ctx, requestID)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, &models.FetchError{Op: "transactions", ID: requestID, Err: err}
	}
	return txs, nil
}

// GetTransactionsForRequest never fails; a failed read yields no transactions.
func (r *Reader) GetTransactionsForRequest(ctx context.Context, requestID int64) []models.Transaction {
	txs, err := r.LoadTransactions(ctx, requestID)
	if err != nil {
		r.logger.Warn("transactions unavailable, treating request as unpaid",
			zap.Int64("request_id", requestID), zap.Error(err))
		return []models.Transaction{}
	}
	return txs
}

// GetTotalPaid sums the cumulative paid amount of every transaction on the request.
func (r *Reader) GetTotalPaid(ctx context.Context, requestID int64) decimal.Decimal {
	return TotalPaid(r.GetTransactionsForRequest(ctx, requestID))
}

// PaymentStatus is the request's status against the given revenue.
func (r *Reader) PaymentStatus(ctx context.Context, requestID int64, revenue decimal.Decimal) charges.PaymentStatus {
	return charges.StatusFor(revenue, r.GetTotalPaid(ctx, requestID))
}

// TotalPaid sums TotalPaid over txs.
func TotalPaid(txs []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.TotalPaid)
	}
	return total
}

// GetPaymentHistory returns a copy of the payments of one transaction,
// fetching them at most once while cached. Concurrent callers share a single
// fetch. Failures are logged, return an empty history and are not cached.
func (r *Reader) GetPaymentHistory(ctx context.Context, transactionID int64) []models.Payment {
	r.mu.RLock()
	cached, ok := r.history[transactionID]
	r.mu.RUnlock()
	if ok {
		return slices.Clone(cached)
	}

	ch := r.group.DoChan(strconv.FormatInt(transactionID, 10), func() (interface{}, error) {
		r.mu.RLock()
		cached, ok := r.history[transactionID]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		fetchCtx, cancel := r.withTimeout(context.WithoutCancel(ctx))
		defer cancel()

		payments, err := r.src.PaymentsByTransaction(fetchCtx, transactionID)
		if err == nil {
			err = fetchCtx.Err()
		}
		if err != nil {
			return nil, &models.FetchError{Op: "payments", ID: transactionID, Err: err}
		}
		if payments == nil {
			payments = []models.Payment{}
		}
		r.mu.Lock()
		r.history[transactionID] = payments
		r.mu.Unlock()
		return payments, nil
	})

	select {
	case <-ctx.Done():
		return []models.Payment{}
	case res := <-ch:
		if res.Err != nil {
			r.logger.Warn("payment history unavailable",
				zap.Int64("transaction_id", transactionID), zap.Error(res.Err))
			return []models.Payment{}
		}
		return slices.Clone(res.Val.([]models.Payment))
	}
}

// InvalidateHistory drops the cached history of one transaction.
func (r *Reader) InvalidateHistory(transactionID int64) {
	r.mu.Lock()
	delete(r.history, transactionID)
	r.mu.Unlock()
}

// RecordPayment appends a payment to the vehicle's transaction, creating the
// transaction when none exists yet. When transactionID is nil an existing
// transaction for the same request and vehicle is looked up first. A new
// transaction owes the vehicle assignment's total charge; in.AmountOwed is
// only used when no assignment is on record. A missing GR number is generated.
func (r *Reader) RecordPayment(ctx context.Context, transactionID *int64, in models.PaymentInput) (models.Transaction, error) {
	verr := &models.ValidationError{Messages: validation.Messages(r.validate.Struct(in))}
	if !in.Amount.IsPositive() {
		verr.Add("amount must be greater than 0")
	}
	if in.AmountOwed.IsNegative() {
		verr.Add("amount owed cannot be negative")
	}
	if err := verr.Err(); err != nil {
		return models.Transaction{}, err
	}

	now := r.now()
	if in.Date.IsZero() {
		in.Date = now
	}

	if transactionID == nil {
		if tx, ok := r.findTransaction(ctx, in.RequestID, in.VehicleNumber); ok {
			id := tx.ID
			transactionID = &id
		} else if v, ok := r.findAssignment(ctx, in.RequestID, in.VehicleNumber); ok {
			in.AmountOwed = v.TotalCharge()
			if in.VehicleID == 0 && v.ID != nil {
				in.VehicleID = *v.ID
			}
		}
	}
	// The backend only uses the fallback when the transaction has no GR number yet.
	if in.GRNumber == "" {
		in.GRNumber = GenerateGRNumber(in.RequestID, in.VehicleID, now)
	}

	saveCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tx, err := r.src.SavePayment(saveCtx, transactionID, in)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("record payment for request %d vehicle %s: %w", in.RequestID, in.VehicleNumber, err)
	}

	r.InvalidateHistory(tx.ID)
	r.logger.Info("payment recorded",
		zap.Int64("request_id", in.RequestID),
		zap.Int64("transaction_id", tx.ID),
		zap.String("vehicle_number", in.VehicleNumber),
		zap.String("amount", in.Amount.String()),
	)
	return tx, nil
}

func (r *Reader) findTransaction(ctx context.Context, requestID int64, vehicleNumber string) (models.Transaction, bool) {
	txs, err := r.LoadTransactions(ctx, requestID)
	if err != nil {
		r.logger.Warn("could not look up existing transaction", zap.Int64("request_id", requestID), zap.Error(err))
		return models.Transaction{}, false
	}
	key := charges.NormalizeVehicleNumber(vehicleNumber)
	for _, tx := range txs {
		if charges.NormalizeVehicleNumber(tx.VehicleNumber) == key {
			return tx, true
		}
	}
	return models.Transaction{}, false
}

// findAssignment returns the first assignment of the request carrying vehicleNumber.
func (r *Reader) findAssignment(ctx context.Context, requestID int64, vehicleNumber string) (models.VehicleAssignment, bool) {
	if r.assignments == nil {
		return models.VehicleAssignment{}, false
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	recs, err := r.assignments.TransporterDetails(ctx, requestID)
	if err != nil {
		r.logger.Warn("could not look up vehicle assignment, using the supplied amount owed",
			zap.Int64("request_id", requestID), zap.String("vehicle_number", vehicleNumber), zap.Error(err))
		return models.VehicleAssignment{}, false
	}
	key := charges.NormalizeVehicleNumber(vehicleNumber)
	for _, rec := range recs {
		if key != "" && charges.NormalizeVehicleNumber(rec.VehicleNumber) == key {
			return models.AssignmentFromRecord(rec, nil), true
		}
	}
	return models.VehicleAssignment{}, false
}

// GenerateGRNumber builds the fallback display reference GR-{request}-{vehicle}-{suffix},
// where suffix is the last six digits of the Unix time.
func GenerateGRNumber(requestID, vehicleID int64, at time.Time) string {
	return fmt.Sprintf("GR-%d-%d-%06d", requestID, vehicleID, at.Unix()%1000000)
}
