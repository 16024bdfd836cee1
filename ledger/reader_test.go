package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipmentledger/charges"
	"shipmentledger/models"
)

type fakeSource struct {
	mu           sync.Mutex
	txs          map[int64][]models.Transaction
	payments     map[int64][]models.Payment
	txErr        error
	paymentErr   error
	paymentCalls atomic.Int32
	paymentGate  chan struct{}

	savedID *int64
	savedIn models.PaymentInput
}

func (f *fakeSource) TransactionsByRequest(ctx context.Context, requestID int64) ([]models.Transaction, error) {
	if f.txErr != nil {
		return nil, f.txErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txs[requestID], nil
}

func (f *fakeSource) PaymentsByTransaction(ctx context.Context, transactionID int64) ([]models.Payment, error) {
	f.paymentCalls.Add(1)
	if f.paymentGate != nil {
		<-f.paymentGate
	}
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	return f.payments[transactionID], nil
}

func (f *fakeSource) SavePayment(ctx context.Context, transactionID *int64, in models.PaymentInput) (models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedID = transactionID
	f.savedIn = in
	id := int64(100)
	if transactionID != nil {
		id = *transactionID
	}
	return models.Transaction{ID: id, RequestID: in.RequestID, VehicleNumber: in.VehicleNumber, GRNumber: in.GRNumber, TotalPaid: in.Amount}, nil
}

type fakeAssignments struct {
	recs  map[int64][]models.AssignmentRecord
	err   error
	calls atomic.Int32
}

func (f *fakeAssignments) TransporterDetails(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.recs[requestID], nil
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestReader_GetTotalPaid(t *testing.T) {
	src := &fakeSource{txs: map[int64][]models.Transaction{
		1: {{ID: 1, TotalPaid: d(300)}, {ID: 2, TotalPaid: d(100)}},
	}}
	r := NewReader(src)

	assert.True(t, r.GetTotalPaid(context.Background(), 1).Equal(d(400)))
	assert.True(t, r.GetTotalPaid(context.Background(), 2).IsZero())
	assert.Equal(t, charges.PartiallyPaid, r.PaymentStatus(context.Background(), 1, d(1000)))
	assert.Equal(t, charges.FullyPaid, r.PaymentStatus(context.Background(), 1, d(400)))
}

func TestReader_FetchFailureIsUnpaid(t *testing.T) {
	r := NewReader(&fakeSource{txErr: errors.New("503")})

	assert.Empty(t, r.GetTransactionsForRequest(context.Background(), 1))
	assert.True(t, r.GetTotalPaid(context.Background(), 1).IsZero())

	_, err := r.LoadTransactions(context.Background(), 1)
	var fe *models.FetchError
	assert.ErrorAs(t, err, &fe)
}

func TestReader_PaymentHistoryIsCached(t *testing.T) {
	src := &fakeSource{payments: map[int64][]models.Payment{
		7: {{ID: 1, TransactionID: 7, Amount: d(50), Mode: "Cash"}},
	}}
	r := NewReader(src)

	first := r.GetPaymentHistory(context.Background(), 7)
	second := r.GetPaymentHistory(context.Background(), 7)

	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), src.paymentCalls.Load())

	first[0].Amount = d(999)
	assert.True(t, r.GetPaymentHistory(context.Background(), 7)[0].Amount.Equal(d(50)), "callers get a copy")

	r.InvalidateHistory(7)
	r.GetPaymentHistory(context.Background(), 7)
	assert.Equal(t, int32(2), src.paymentCalls.Load())
}

func TestReader_PaymentHistoryCoalescesConcurrentFetches(t *testing.T) {
	src := &fakeSource{
		payments:    map[int64][]models.Payment{7: {{ID: 1}}},
		paymentGate: make(chan struct{}),
	}
	r := NewReader(src)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, r.GetPaymentHistory(context.Background(), 7), 1)
		}()
	}
	require.Eventually(t, func() bool { return src.paymentCalls.Load() == 1 }, time.Second, time.Millisecond)
	close(src.paymentGate)
	wg.Wait()

	assert.Equal(t, int32(1), src.paymentCalls.Load())
}

func TestReader_PaymentHistoryFailureNotCached(t *testing.T) {
	src := &fakeSource{paymentErr: errors.New("boom")}
	r := NewReader(src)

	assert.Empty(t, r.GetPaymentHistory(context.Background(), 3))
	assert.Empty(t, r.GetPaymentHistory(context.Background(), 3))
	assert.Equal(t, int32(2), src.paymentCalls.Load())
}

func TestReader_RecordPayment(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("creates a transaction with a generated GR number", func(t *testing.T) {
		src := &fakeSource{}
		r := NewReader(src, WithClock(func() time.Time { return at }))

		tx, err := r.RecordPayment(context.Background(), nil, models.PaymentInput{
			RequestID: 12, VehicleNumber: "MH12AB1234", VehicleID: 4,
			AmountOwed: d(425), Amount: d(200), Mode: "Cash",
		})

		require.NoError(t, err)
		assert.Nil(t, src.savedID)
		assert.Equal(t, GenerateGRNumber(12, 4, at), src.savedIn.GRNumber)
		assert.Equal(t, at, src.savedIn.Date)
		assert.Equal(t, int64(100), tx.ID)
	})

	t.Run("appends to the vehicle's existing transaction", func(t *testing.T) {
		src := &fakeSource{txs: map[int64][]models.Transaction{
			12: {{ID: 55, VehicleNumber: "MH12 AB 1234", GRNumber: "GR-1"}},
		}}
		r := NewReader(src)
		r.history[55] = []models.Payment{{ID: 1}}

		tx, err := r.RecordPayment(context.Background(), nil, models.PaymentInput{
			RequestID: 12, VehicleNumber: "mh12ab1234", Amount: d(50), Mode: "UPI", GRNumber: "GR-1",
		})

		require.NoError(t, err)
		require.NotNil(t, src.savedID)
		assert.Equal(t, int64(55), *src.savedID)
		assert.Equal(t, int64(55), tx.ID)
		_, cached := r.history[55]
		assert.False(t, cached, "history dropped after a new payment")
	})

	t.Run("new transaction owes the assignment total", func(t *testing.T) {
		id := int64(7)
		src := &fakeSource{}
		assignments := &fakeAssignments{recs: map[int64][]models.AssignmentRecord{
			12: {
				{VehicleIndex: 1, VehicleNumber: "GJ05CD5678", BaseCharge: "900"},
				{ID: &id, VehicleIndex: 2, VehicleNumber: "MH12 AB 1234", BaseCharge: "3000", ServiceCharges: `{"loading":"500"}`},
			},
		}}
		r := NewReader(src, WithAssignments(assignments), WithClock(func() time.Time { return at }))

		_, err := r.RecordPayment(context.Background(), nil, models.PaymentInput{
			RequestID: 12, VehicleNumber: "mh12ab1234", AmountOwed: d(100), Amount: d(500), Mode: "Cash",
		})

		require.NoError(t, err)
		assert.True(t, src.savedIn.AmountOwed.Equal(d(3500)), src.savedIn.AmountOwed.String())
		assert.Equal(t, int64(7), src.savedIn.VehicleID)
		assert.Equal(t, GenerateGRNumber(12, 7, at), src.savedIn.GRNumber)
	})

	t.Run("supplied amount owed is used without an assignment", func(t *testing.T) {
		src := &fakeSource{}
		assignments := &fakeAssignments{err: errors.New("connection refused")}
		r := NewReader(src, WithAssignments(assignments))

		_, err := r.RecordPayment(context.Background(), nil, models.PaymentInput{
			RequestID: 12, VehicleNumber: "MH12AB1234", VehicleID: 4, AmountOwed: d(425), Amount: d(200), Mode: "Cash",
		})

		require.NoError(t, err)
		assert.True(t, src.savedIn.AmountOwed.Equal(d(425)))
		assert.Equal(t, int64(4), src.savedIn.VehicleID)
	})

	t.Run("existing transaction skips the assignment lookup", func(t *testing.T) {
		src := &fakeSource{txs: map[int64][]models.Transaction{12: {{ID: 55, VehicleNumber: "MH12AB1234"}}}}
		assignments := &fakeAssignments{}
		r := NewReader(src, WithAssignments(assignments))

		_, err := r.RecordPayment(context.Background(), nil, models.PaymentInput{
			RequestID: 12, VehicleNumber: "MH12AB1234", Amount: d(50), Mode: "UPI",
		})

		require.NoError(t, err)
		assert.Equal(t, int32(0), assignments.calls.Load())
	})

	t.Run("rejects invalid input without calling the backend", func(t *testing.T) {
		src := &fakeSource{}
		r := NewReader(src)

		_, err := r.RecordPayment(context.Background(), nil, models.PaymentInput{Amount: d(0)})

		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Messages, 4)
		assert.Nil(t, src.savedID)
		assert.Empty(t, src.savedIn.Mode)
	})
}

func TestGenerateGRNumber(t *testing.T) {
	at := time.Unix(1767225600, 0)
	assert.Equal(t, "GR-3-8-225600", GenerateGRNumber(3, 8, at))
}
