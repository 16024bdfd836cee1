// Package submission saves all vehicle assignments of a request in one
// concurrent batch that tolerates individual failures.
package submission

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shipmentledger/charges"
	"shipmentledger/logger"
	"shipmentledger/models"
	"shipmentledger/validation"
)

const DefaultTimeout = 15 * time.Second

var errNoID = errors.New("backend confirmed the save without an id")

// Writer persists assignment records.
type Writer interface {
	CreateAssignment(ctx context.Context, requestID int64, rec models.AssignmentRecord) (models.AssignmentRecord, error)
	UpdateAssignment(ctx context.Context, assignmentID int64, rec models.AssignmentRecord) (models.AssignmentRecord, error)
}

// Invalidator is told which request changed after a batch saved anything.
type Invalidator interface {
	Invalidate(requestID int64)
}

type Orchestrator struct {
	writer      Writer
	timeout     time.Duration
	concurrency int
	logger      *zap.Logger
	validate    *validator.Validate
	invalidator Invalidator
}

type Option func(*Orchestrator)

func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithConcurrency caps in-flight saves. Zero or less sends the whole batch at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger.OrNop(l) }
}

func WithInvalidator(inv Invalidator) Option {
	return func(o *Orchestrator) { o.invalidator = inv }
}

func NewOrchestrator(w Writer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		writer:   w,
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
		validate: validation.New(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Failure identifies one vehicle whose save failed.
type Failure struct {
	VehicleIndex int    `json:"vehicle_index"`
	Error        string `json:"error"`
	err          error
}

// Err is the *models.WriteError behind the failure.
func (f Failure) Err() error { return f.err }

// Result of a batch. Updated is in the submitted order: saved entries carry
// their confirmed ids, failed ones are exactly as submitted.
type Result struct {
	Updated      []models.VehicleAssignment `json:"-"`
	SuccessCount int                        `json:"success_count"`
	FailureCount int                        `json:"failure_count"`
	Failures     []Failure                  `json:"failures,omitempty"`
}

// Complete reports whether every assignment was saved.
func (r Result) Complete() bool {
	return r.FailureCount == 0
}

func (r Result) FailedIndexes() []int {
	out := make([]int, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = f.VehicleIndex
	}
	return out
}

type requiredFields struct {
	TransporterName string `json:"transporter_name" validate:"notblank"`
	VehicleNumber   string `json:"vehicle_number" validate:"notblank"`
	DriverName      string `json:"driver_name" validate:"notblank"`
	DriverContact   string `json:"driver_contact" validate:"contact10"`
}

// Validate checks every assignment and reports all violations at once as a
// *models.ValidationError.
func (o *Orchestrator) Validate(list []models.VehicleAssignment) error {
	verr := &models.ValidationError{}
	for _, v := range list {
		msgs := validation.Messages(o.validate.Struct(requiredFields{
			TransporterName: v.TransporterName,
			VehicleNumber:   v.VehicleNumber,
			DriverName:      v.DriverName,
			DriverContact:   v.DriverContact,
		}))
		for _, msg := range msgs {
			verr.Add("Vehicle %d: %s", v.VehicleIndex, msg)
		}
	}
	return verr.Err()
}

type outcome struct {
	rec models.AssignmentRecord
	err error
}

// SubmitAll validates the batch, then creates unsaved assignments and updates
// saved ones concurrently. A validation failure aborts before any write and is
// the only error returned; individual write failures are reported in Result.
func (o *Orchestrator) SubmitAll(ctx context.Context, requestID int64, assignments []models.VehicleAssignment) (Result, error) {
	if err := o.Validate(assignments); err != nil {
		return Result{}, err
	}

	outcomes := make([]outcome, len(assignments))
	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, v := range assignments {
		g.Go(func() error {
			outcomes[i] = o.save(ctx, requestID, v)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Updated: make([]models.VehicleAssignment, len(assignments))}
	for i, v := range assignments {
		out := outcomes[i]
		if out.err == nil && out.rec.ID == nil {
			out.err = errNoID
		}
		if out.err != nil {
			werr := &models.WriteError{VehicleIndex: v.VehicleIndex, Err: out.err}
			res.Updated[i] = v.Clone()
			res.Failures = append(res.Failures, Failure{VehicleIndex: v.VehicleIndex, Error: werr.Error(), err: werr})
			res.FailureCount++
			continue
		}
		res.Updated[i] = o.merge(requestID, v, out.rec)
		res.SuccessCount++
	}

	if res.SuccessCount > 0 && o.invalidator != nil {
		o.invalidator.Invalidate(requestID)
	}

	if res.Complete() {
		o.logger.Info("assignments saved", zap.Int64("request_id", requestID), zap.Int("count", res.SuccessCount))
	} else {
		o.logger.Warn("assignments partially saved",
			zap.Int64("request_id", requestID),
			zap.Int("saved", res.SuccessCount),
			zap.Int("failed", res.FailureCount),
			zap.Ints("failed_vehicles", res.FailedIndexes()),
		)
	}
	return res, nil
}

func (o *Orchestrator) save(ctx context.Context, requestID int64, v models.VehicleAssignment) outcome {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	rec := v.ToRecord()
	rec.RequestID = requestID

	var (
		saved models.AssignmentRecord
		err   error
	)
	if v.IsPersisted() {
		saved, err = o.writer.UpdateAssignment(ctx, *v.ID, rec)
	} else {
		rec.ID = nil
		saved, err = o.writer.CreateAssignment(ctx, requestID, rec)
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return outcome{rec: saved, err: err}
}

// merge adopts the confirmed id. When the backend reports a different total
// its stored amounts win, so the derived total matches what was persisted.
func (o *Orchestrator) merge(requestID int64, v models.VehicleAssignment, saved models.AssignmentRecord) models.VehicleAssignment {
	out := v.Clone()
	id := *saved.ID
	out.ID = &id
	out.RequestID = requestID

	if saved.TotalCharge == "" {
		return out
	}
	confirmedTotal := charges.ParseAmount(string(saved.TotalCharge))
	if confirmedTotal.Equal(out.TotalCharge()) {
		return out
	}
	confirmed := models.AssignmentFromRecord(saved, nil)
	o.logger.Warn("backend total differs from submitted charges, adopting backend amounts",
		zap.Int64("request_id", requestID),
		zap.Int("vehicle_index", v.VehicleIndex),
		zap.String("submitted", out.TotalCharge().String()),
		zap.String("confirmed", confirmedTotal.String()),
	)
	out.BaseCharge = confirmed.BaseCharge
	out.AdditionalCharges = confirmed.AdditionalCharges
	if len(confirmed.ServiceCharges) > 0 {
		out.ServiceCharges = confirmed.ServiceCharges
	}
	return out
}
