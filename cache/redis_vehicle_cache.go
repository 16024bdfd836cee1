package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shipmentledger/logger"
	"shipmentledger/models"
)

const defaultKeyPrefix = "recon:vehicles:"

// RedisVehicleCache shares unique-vehicle lists between server instances.
// Lists are stored in their wire form.
type RedisVehicleCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // zero keeps entries until invalidated
}

// NewRedisVehicleCache connects and pings Redis.
func NewRedisVehicleCache(cfg RedisConfig, l *zap.Logger) (*RedisVehicleCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisVehicleCacheWithClient(client, "", cfg.TTL, l), nil
}

func NewRedisVehicleCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration, l *zap.Logger) *RedisVehicleCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisVehicleCache{client: client, keyPrefix: keyPrefix, ttl: ttl, logger: logger.OrNop(l)}
}

func (c *RedisVehicleCache) key(requestID int64) string {
	return c.keyPrefix + strconv.FormatInt(requestID, 10)
}

func (c *RedisVehicleCache) Get(ctx context.Context, requestID int64) ([]models.VehicleAssignment, bool) {
	raw, err := c.client.Get(ctx, c.key(requestID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("vehicle cache read failed", zap.Int64("request_id", requestID), zap.Error(err))
		}
		return nil, false
	}

	var recs []models.AssignmentRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		c.logger.Warn("vehicle cache entry unreadable", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, false
	}
	list := make([]models.VehicleAssignment, len(recs))
	for i, rec := range recs {
		list[i] = models.AssignmentFromRecord(rec, nil)
	}
	return list, true
}

func (c *RedisVehicleCache) Set(ctx context.Context, requestID int64, list []models.VehicleAssignment) {
	recs := make([]models.AssignmentRecord, len(list))
	for i, v := range list {
		recs[i] = v.ToRecord()
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		c.logger.Warn("vehicle cache encode failed", zap.Int64("request_id", requestID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(requestID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("vehicle cache write failed", zap.Int64("request_id", requestID), zap.Error(err))
	}
}

func (c *RedisVehicleCache) Delete(ctx context.Context, requestID int64) {
	if err := c.client.Del(ctx, c.key(requestID)).Err(); err != nil {
		c.logger.Warn("vehicle cache delete failed", zap.Int64("request_id", requestID), zap.Error(err))
	}
}

// Clear removes every entry under the cache's key prefix.
func (c *RedisVehicleCache) Clear(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("vehicle cache scan failed", zap.Error(err))
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("vehicle cache clear failed", zap.Error(err))
	}
}

func (c *RedisVehicleCache) Close() error {
	return c.client.Close()
}

var _ VehicleCache = (*RedisVehicleCache)(nil)
