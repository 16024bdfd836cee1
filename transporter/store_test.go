package transporter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipmentledger/models"
)

type sourceFunc func(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error)

func (f sourceFunc) TransporterDetails(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error) {
	return f(ctx, requestID)
}

var services = []string{"Transport"}

func records() []models.AssignmentRecord {
	return []models.AssignmentRecord{
		{VehicleIndex: 2, VehicleNumber: "MH12AB1234", BaseCharge: "500"},
		{VehicleIndex: 1, VehicleNumber: "MH12AB1234", BaseCharge: "300"},
		{VehicleIndex: 3, VehicleNumber: "GJ05CD5678", BaseCharge: "100", ServiceCharges: `{"Transport":"300"}`},
	}
}

func TestStore_Fetch(t *testing.T) {
	s := NewStore(sourceFunc(func(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error) {
		assert.Equal(t, int64(5), requestID)
		return records(), nil
	}))

	list := s.Fetch(context.Background(), 5, 3, services)

	require.Len(t, list, 3)
	assert.Equal(t, 1, list[0].VehicleIndex)
	assert.True(t, list[0].BaseCharge.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, int64(5), list[2].RequestID)
	assert.True(t, list[2].TotalCharge().Equal(decimal.NewFromInt(400)))
}

func TestStore_FetchUniqueByVehicleNumber(t *testing.T) {
	s := NewStore(sourceFunc(func(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error) {
		return records(), nil
	}))

	list := s.FetchUniqueByVehicleNumber(context.Background(), 5, 3, services)

	require.Len(t, list, 2)
	assert.True(t, list[0].TotalCharge().Equal(decimal.NewFromInt(300)), "first occurrence wins")
	assert.Equal(t, "GJ05CD5678", list[1].VehicleNumber)
}

func TestStore_FetchFallsBackOnError(t *testing.T) {
	s := NewStore(sourceFunc(func(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error) {
		return nil, errors.New("connection refused")
	}))

	list := s.Fetch(context.Background(), 9, 4, services)

	require.Len(t, list, 4)
	for i, v := range list {
		assert.Equal(t, i+1, v.VehicleIndex)
		assert.Equal(t, int64(9), v.RequestID)
		assert.True(t, v.TotalCharge().IsZero())
		assert.Nil(t, v.ID)
	}
}

func TestStore_FetchFallsBackOnEmpty(t *testing.T) {
	s := NewStore(sourceFunc(func(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error) {
		return nil, nil
	}))

	assert.Len(t, s.Fetch(context.Background(), 1, 2, services), 2)
}

func TestStore_TimeoutIsAFetchError(t *testing.T) {
	s := NewStore(sourceFunc(func(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), WithTimeout(10*time.Millisecond))

	_, err := s.Load(context.Background(), 3, services)
	var fe *models.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, int64(3), fe.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Len(t, s.Fetch(context.Background(), 3, 2, services), 2)
}
