// Package transporter loads the per-vehicle transporter details of a request.
package transporter

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"shipmentledger/assignment"
	"shipmentledger/charges"
	"shipmentledger/logger"
	"shipmentledger/models"
)

const DefaultTimeout = 10 * time.Second

// Source is the backend read of a request's assignment records.
type Source interface {
	TransporterDetails(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error)
}

// Store fetches assignment lists. It keeps no cache; see reconcile.Engine for that.
type Store struct {
	src     Source
	timeout time.Duration
	logger  *zap.Logger
}

type Option func(*Store)

// WithTimeout bounds each fetch. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = logger.OrNop(l) }
}

func NewStore(src Source, opts ...Option) *Store {
	s := &Store{src: src, timeout: DefaultTimeout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches and parses the records of requestID, ordered by vehicle index
// and renumbered 1..n. Errors, including timeouts, are returned as *models.FetchError.
func (s *Store) Load(ctx context.Context, requestID int64, serviceNames []string) ([]models.VehicleAssignment, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	recs, err := s.src.TransporterDetails(ctx, requestID)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, &models.FetchError{Op: "transporter details", ID: requestID, Err: err}
	}

	list := make([]models.VehicleAssignment, 0, len(recs))
	for _, rec := range recs {
		v := models.AssignmentFromRecord(rec, serviceNames)
		if v.RequestID == 0 {
			v.RequestID = requestID
		}
		list = append(list, v)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return indexOrder(list[i].VehicleIndex) < indexOrder(list[j].VehicleIndex)
	})
	for i := range list {
		list[i].VehicleIndex = i + 1
	}
	return list, nil
}

// Fetch always returns a usable list: when the backend fails or has nothing
// for the request, it returns expectedCount empty assignments instead.
func (s *Store) Fetch(ctx context.Context, requestID int64, expectedCount int, serviceNames []string) []models.VehicleAssignment {
	list, err := s.Load(ctx, requestID, serviceNames)
	if err != nil {
		s.logger.Warn("transporter details unavailable, using empty assignments",
			zap.Int64("request_id", requestID),
			zap.Int("vehicle_count", expectedCount),
			zap.Error(err),
		)
		return s.empty(requestID, expectedCount, serviceNames)
	}
	if len(list) == 0 {
		return s.empty(requestID, expectedCount, serviceNames)
	}
	return list
}

// FetchUniqueByVehicleNumber is Fetch with one record per physical vehicle.
func (s *Store) FetchUniqueByVehicleNumber(ctx context.Context, requestID int64, expectedCount int, serviceNames []string) []models.VehicleAssignment {
	return UniqueByVehicleNumber(s.Fetch(ctx, requestID, expectedCount, serviceNames))
}

// UniqueByVehicleNumber keeps the first record for each vehicle number.
func UniqueByVehicleNumber(list []models.VehicleAssignment) []models.VehicleAssignment {
	return charges.UniqueVehicles(list)
}

func (s *Store) empty(requestID int64, count int, serviceNames []string) []models.VehicleAssignment {
	list := assignment.Initialize(count, serviceNames)
	for i := range list {
		list[i].RequestID = requestID
	}
	return list
}

// indexOrder sorts records without a usable index after the numbered ones.
func indexOrder(idx int) int {
	if idx <= 0 {
		return int(^uint(0) >> 1)
	}
	return idx
}
