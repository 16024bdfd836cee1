package submission

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

var errBackend = errors.New("backend unavailable")

type fakeWriter struct {
	mu      sync.Mutex
	failing map[int]bool // by vehicle index
	creates atomic.Int32
	updates atomic.Int32
	nextID  atomic.Int64
	base    string // backend-side base charge override
	block   bool
}

func (f *fakeWriter) CreateAssignment(ctx context.Context, requestID int64, rec models.AssignmentRecord) (models.AssignmentRecord, error) {
	f.creates.Add(1)
	return f.respond(ctx, rec, 0)
}

func (f *fakeWriter) UpdateAssignment(ctx context.Context, assignmentID int64, rec models.AssignmentRecord) (models.AssignmentRecord, error) {
	f.updates.Add(1)
	return f.respond(ctx, rec, assignmentID)
}

func (f *fakeWriter) respond(ctx context.Context, rec models.AssignmentRecord, id int64) (models.AssignmentRecord, error) {
	if f.block {
		<-ctx.Done()
		return models.AssignmentRecord{}, ctx.Err()
	}
	f.mu.Lock()
	fail := f.failing[rec.VehicleIndex]
	f.mu.Unlock()
	if fail {
		return models.AssignmentRecord{}, errBackend
	}
	if id == 0 {
		id = 100 + f.nextID.Add(1)
	}
	rec.ID = &id
	if f.base != "" {
		v := models.AssignmentFromRecord(rec, nil)
		v.BaseCharge = charges.ParseAmount(f.base)
		rec.BaseCharge = models.TextAmount(f.base)
		rec.TotalCharge = models.TextAmount(v.TotalCharge().String())
	}
	return rec, nil
}

type recordingInvalidator struct {
	ids []int64
}

func (r *recordingInvalidator) Invalidate(requestID int64) { r.ids = append(r.ids, requestID) }

func valid(idx int, number string) models.VehicleAssignment {
	v := models.NewVehicleAssignment(idx, []string{"loading"})
	v.VehicleNumber = number
	v.TransporterName = "Shree Logistics"
	v.DriverName = "Ramesh"
	v.DriverContact = "98765 43210"
	v.BaseCharge = decimal.NewFromInt(1000)
	v.ServiceCharges = v.ServiceCharges.With("loading", decimal.NewFromInt(50))
	return v
}

func TestSubmitAll_CreatesAndUpdates(t *testing.T) {
	w := &fakeWriter{}
	inv := &recordingInvalidator{}
	o := NewOrchestrator(w, WithInvalidator(inv))

	saved := valid(2, "GJ05CD5678")
	id := int64(7)
	saved.ID = &id
	list := []models.VehicleAssignment{valid(1, "MH12AB1234"), saved}

	res, err := o.SubmitAll(context.Background(), 42, list)
	require.NoError(t, err)

	assert.True(t, res.Complete())
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, int32(1), w.creates.Load())
	assert.Equal(t, int32(1), w.updates.Load())

	require.Len(t, res.Updated, 2)
	require.NotNil(t, res.Updated[0].ID)
	assert.Equal(t, int64(101), *res.Updated[0].ID)
	assert.Equal(t, int64(7), *res.Updated[1].ID)
	assert.Equal(t, int64(42), res.Updated[0].RequestID)
	assert.Equal(t, "1050", res.Updated[0].TotalCharge().String())
	assert.Equal(t, []int64{42}, inv.ids)

	assert.Nil(t, list[0].ID, "input list must not be mutated")
}

func TestSubmitAll_PartialFailureKeepsOriginal(t *testing.T) {
	w := &fakeWriter{failing: map[int]bool{2: true}}
	o := NewOrchestrator(w)

	list := []models.VehicleAssignment{valid(1, "A1"), valid(2, "B2"), valid(3, "C3")}
	res, err := o.SubmitAll(context.Background(), 5, list)
	require.NoError(t, err)

	assert.False(t, res.Complete())
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	assert.Equal(t, []int{2}, res.FailedIndexes())
	assert.ErrorIs(t, res.Failures[0].Err(), errBackend)
	assert.Contains(t, res.Failures[0].Error, "vehicle 2")

	require.Len(t, res.Updated, 3)
	assert.NotNil(t, res.Updated[0].ID)
	assert.Nil(t, res.Updated[1].ID)
	assert.Equal(t, "B2", res.Updated[1].VehicleNumber)
	assert.NotNil(t, res.Updated[2].ID)
	for i, v := range res.Updated {
		assert.Equal(t, i+1, v.VehicleIndex)
	}
}

func TestSubmitAll_ValidationStopsEveryWrite(t *testing.T) {
	w := &fakeWriter{}
	inv := &recordingInvalidator{}
	o := NewOrchestrator(w, WithInvalidator(inv))

	bad := valid(2, "B2")
	bad.DriverName = " "
	bad.DriverContact = "12345"
	list := []models.VehicleAssignment{valid(1, "A1"), bad}

	res, err := o.SubmitAll(context.Background(), 5, list)
	require.Error(t, err)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"Vehicle 2: driver name is required",
		"Vehicle 2: driver contact must be a 10 digit number",
	}, verr.Messages)
	assert.Empty(t, res.Updated)
	assert.Zero(t, w.creates.Load()+w.updates.Load())
	assert.Empty(t, inv.ids)
}

func TestValidate_ReportsEveryVehicle(t *testing.T) {
	o := NewOrchestrator(&fakeWriter{})
	list := []models.VehicleAssignment{
		models.NewVehicleAssignment(1, nil),
		valid(2, "B2"),
	}
	err := o.Validate(list)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"Vehicle 1: transporter name is required",
		"Vehicle 1: vehicle number is required",
		"Vehicle 1: driver name is required",
		"Vehicle 1: driver contact must be a 10 digit number",
	}, verr.Messages)

	assert.NoError(t, o.Validate([]models.VehicleAssignment{valid(1, "A1")}))
}

func TestSubmitAll_AllFailedDoesNotInvalidate(t *testing.T) {
	w := &fakeWriter{failing: map[int]bool{1: true}}
	inv := &recordingInvalidator{}
	o := NewOrchestrator(w, WithInvalidator(inv))

	res, err := o.SubmitAll(context.Background(), 9, []models.VehicleAssignment{valid(1, "A1")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailureCount)
	assert.Empty(t, inv.ids)
}

func TestSubmitAll_TimeoutIsAFailure(t *testing.T) {
	w := &fakeWriter{block: true}
	o := NewOrchestrator(w, WithTimeout(20*time.Millisecond), WithConcurrency(1))

	res, err := o.SubmitAll(context.Background(), 9, []models.VehicleAssignment{valid(1, "A1"), valid(2, "B2")})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FailureCount)
	assert.ErrorIs(t, res.Failures[0].Err(), context.DeadlineExceeded)
}

func TestSubmitAll_AdoptsBackendAmounts(t *testing.T) {
	w := &fakeWriter{base: "1150"}
	o := NewOrchestrator(w)

	res, err := o.SubmitAll(context.Background(), 3, []models.VehicleAssignment{valid(1, "A1")})
	require.NoError(t, err)
	require.True(t, res.Complete())

	got := res.Updated[0]
	assert.Equal(t, "1150", got.BaseCharge.String())
	assert.Equal(t, "1200", got.TotalCharge().String())
	assert.Equal(t, "50", got.ServiceCharges["loading"].String())
}
