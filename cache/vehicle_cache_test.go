package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipmentledger/models"
)

func TestInMemoryVehicleCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryVehicleCache()

	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)

	list := []models.VehicleAssignment{{VehicleIndex: 1, VehicleNumber: "A"}}
	c.Set(ctx, 1, list)
	list[0].VehicleNumber = "changed"

	got, ok := c.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, "A", got[0].VehicleNumber)

	c.Set(ctx, 2, nil)
	assert.Equal(t, 2, c.Len())

	c.Delete(ctx, 1)
	_, ok = c.Get(ctx, 1)
	assert.False(t, ok)

	c.Clear(ctx)
	assert.Equal(t, 0, c.Len())
}

func TestRedisVehicleCache_UnreachableIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	c := NewRedisVehicleCacheWithClient(client, "", 0, nil)
	ctx := context.Background()

	c.Set(ctx, 1, []models.VehicleAssignment{{VehicleIndex: 1}})
	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	c.Delete(ctx, 1)
	c.Clear(ctx)
	assert.Equal(t, "recon:vehicles:42", c.key(42))
}
