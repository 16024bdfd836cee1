// Package reconcile combines request revenue, vehicle costs and the payment
// ledger into financial summaries.
package reconcile

import (
	"context"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"shipmentledger/cache"
	"shipmentledger/charges"
	"shipmentledger/logger"
	"shipmentledger/models"
)

// VehicleLoader returns a request's assignment list or an error; *transporter.Store satisfies it.
type VehicleLoader interface {
	Load(ctx context.Context, requestID int64, serviceNames []string) ([]models.VehicleAssignment, error)
}

// PaymentTotals never fails; *ledger.Reader satisfies it.
type PaymentTotals interface {
	GetTotalPaid(ctx context.Context, requestID int64) decimal.Decimal
}

// Engine caches each request's unique-vehicle list so that building many
// summaries over the same requests fetches transporter details at most once
// per request. Concurrent misses for one request share a single fetch.
// The cache has no expiry: call Invalidate or Clear after writes.
type Engine struct {
	vehicles    VehicleLoader
	payments    PaymentTotals
	cache       cache.VehicleCache
	logger      *zap.Logger
	concurrency int

	mu    sync.Mutex
	group *singleflight.Group // replaced by Clear
	epoch uint64
	gens  map[int64]uint64
}

type Option func(*Engine)

func WithCache(c cache.VehicleCache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger.OrNop(l) }
}

// WithConcurrency bounds how many requests Report reconciles at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func NewEngine(vehicles VehicleLoader, payments PaymentTotals, opts ...Option) *Engine {
	e := &Engine{
		vehicles:    vehicles,
		payments:    payments,
		cache:       cache.NewInMemoryVehicleCache(),
		logger:      zap.NewNop(),
		concurrency: 4,
		group:       new(singleflight.Group),
		gens:        make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type generation struct{ epoch, gen uint64 }

func (e *Engine) generation(requestID int64) generation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return generation{epoch: e.epoch, gen: e.gens[requestID]}
}

func (e *Engine) flight() *singleflight.Group {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.group
}

// UniqueVehicles returns the request's vehicles, one per vehicle number,
// from the cache or a single shared fetch. Failed fetches are not cached.
func (e *Engine) UniqueVehicles(ctx context.Context, requestID int64, serviceNames []string) ([]models.VehicleAssignment, error) {
	if list, ok := e.cache.Get(ctx, requestID); ok {
		return list, nil
	}

	ch := e.flight().DoChan(strconv.FormatInt(requestID, 10), func() (interface{}, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if list, ok := e.cache.Get(fetchCtx, requestID); ok {
			return list, nil
		}

		before := e.generation(requestID)
		list, err := e.vehicles.Load(fetchCtx, requestID, serviceNames)
		if err != nil {
			return nil, err
		}
		unique := charges.UniqueVehicles(list)
		// an invalidation during the fetch means the result may already be stale
		if e.generation(requestID) == before {
			e.cache.Set(fetchCtx, requestID, unique)
			// Invalidate may have run between the check and the Set
			if e.generation(requestID) != before {
				e.cache.Delete(fetchCtx, requestID)
			}
		}
		return unique, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.VehicleAssignment), nil
	}
}

// GetFinancialSummary reconciles one request. It never fails: without
// transporter details the cost is taken as zero, so the whole revenue shows
// as profit, and without the ledger nothing counts as paid.
func (e *Engine) GetFinancialSummary(ctx context.Context, req models.TransportRequest) charges.FinancialSummary {
	summary, _ := e.summarize(ctx, req)
	return summary
}

func (e *Engine) summarize(ctx context.Context, req models.TransportRequest) (charges.FinancialSummary, int) {
	var (
		vehicleCharges = decimal.Zero
		totalPaid      = decimal.Zero
		vehicleCount   int
		g              errgroup.Group
	)

	g.Go(func() error {
		list, err := e.UniqueVehicles(ctx, req.ID, req.ServiceNames)
		if err != nil {
			e.logger.Warn("transporter details unavailable, treating vehicle cost as zero",
				zap.Int64("request_id", req.ID), zap.Error(err))
			return nil
		}
		vehicleCharges = charges.VehicleCharges(list)
		vehicleCount = len(list)
		return nil
	})
	g.Go(func() error {
		totalPaid = e.payments.GetTotalPaid(ctx, req.ID)
		return nil
	})
	_ = g.Wait()

	return charges.ComputeSummary(req.RequestedPrice, vehicleCharges, totalPaid), vehicleCount
}

// ReportRow is one line of a bulk financial report.
type ReportRow struct {
	RequestID    int64                    `json:"request_id"`
	FromLocation string                   `json:"from_location"`
	ToLocation   string                   `json:"to_location"`
	VehicleCount int                      `json:"vehicle_count"`
	Summary      charges.FinancialSummary `json:"summary"`
}

// Report reconciles many requests with bounded concurrency. Rows follow the
// order of reqs.
func (e *Engine) Report(ctx context.Context, reqs []models.TransportRequest) []ReportRow {
	rows := make([]ReportRow, len(reqs))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			summary, count := e.summarize(ctx, req)
			rows[i] = ReportRow{
				RequestID:    req.ID,
				FromLocation: req.FromLocation,
				ToLocation:   req.ToLocation,
				VehicleCount: count,
				Summary:      summary,
			}
			return nil
		})
	}
	_ = g.Wait()
	return rows
}

// Invalidate forgets the cached vehicles of one request, including a fetch
// that is still in flight.
func (e *Engine) Invalidate(requestID int64) {
	e.mu.Lock()
	e.gens[requestID]++
	group := e.group
	e.mu.Unlock()
	group.Forget(strconv.FormatInt(requestID, 10))
	e.cache.Delete(context.Background(), requestID)
}

// Clear forgets every cached request. Callers arriving afterwards never join
// a fetch that started before it.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.epoch++
	e.gens = make(map[int64]uint64)
	e.group = new(singleflight.Group)
	e.mu.Unlock()
	e.cache.Clear(context.Background())
}
