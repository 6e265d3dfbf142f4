package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/zumerkk/entas-sub001/models"
)

const (
	attributeSetCachePrefix  = "attrset:v:"
	attributeSetVersionKey   = "attrset:version"
	DefaultAttributeSetTTL   = 10 * time.Minute
	cacheVersionMaxRetries   = 3
	cacheBackgroundOpTimeout = 5 * time.Second
)

// AttributeSetCache caches attribute sets by id for variant validation and reads.
// Get also returns the cache version it looked under, hit or miss; a set loaded after a miss
// is stored with SetAsync under that version, so an Invalidate in between orphans the entry
// instead of publishing a stale set under the new version. Version 0 means unknown.
type AttributeSetCache interface {
	Get(ctx context.Context, id string) (*models.AttributeSet, int64, bool)
	SetAsync(set *models.AttributeSet, version int64)
	Invalidate(ctx context.Context)
}

// CacheManager is the Redis AttributeSetCache. Keys embed a version counter; bumping the
// counter invalidates every cached set at once.
type CacheManager struct {
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewCacheManager(client *redis.Client, ttl time.Duration, log *zap.Logger) *CacheManager {
	if ttl <= 0 {
		ttl = DefaultAttributeSetTTL
	}
	return &CacheManager{redis: client, ttl: ttl, log: log}
}

func (cm *CacheManager) Get(ctx context.Context, id string) (*models.AttributeSet, int64, bool) {
	version, err := cm.version(ctx)
	if err != nil {
		return nil, 0, false
	}

	data, err := cm.redis.Get(ctx, cm.key(version, id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			cm.log.Warn("attribute set cache read failed", zap.Error(err))
		}
		return nil, version, false
	}

	var set models.AttributeSet
	if err := json.Unmarshal(data, &set); err != nil {
		cm.log.Warn("failed to unmarshal cached attribute set", zap.Error(err), zap.String("attribute_set_id", id))
		return nil, version, false
	}
	return &set, version, true
}

// SetAsync stores set under version, the version Get reported before the set was read.
func (cm *CacheManager) SetAsync(set *models.AttributeSet, version int64) {
	if version <= 0 {
		return
	}
	cp := *set
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cacheBackgroundOpTimeout)
		defer cancel()

		data, err := json.Marshal(&cp)
		if err != nil {
			cm.log.Warn("failed to marshal attribute set for cache", zap.Error(err))
			return
		}
		if err := cm.redis.Set(ctx, cm.key(version, cp.ID.Hex()), data, cm.ttl).Err(); err != nil {
			cm.log.Warn("failed to cache attribute set", zap.Error(err), zap.String("attribute_set_id", cp.ID.Hex()))
		}
	}()
}

// Invalidate bumps the version. A failure is logged loudly since stale sets would then
// validate variants until the TTL expires.
func (cm *CacheManager) Invalidate(ctx context.Context) {
	v, err := cm.redis.Incr(ctx, attributeSetVersionKey).Result()
	if err != nil {
		cm.log.Error("failed to invalidate attribute set cache", zap.Error(err))
		return
	}
	cm.log.Debug("attribute set cache invalidated", zap.Int64("version", v))
}

func (cm *CacheManager) version(ctx context.Context) (int64, error) {
	for i := 0; i < cacheVersionMaxRetries; i++ {
		v, err := cm.redis.Get(ctx, attributeSetVersionKey).Int64()
		if err == nil && v > 0 {
			return v, nil
		}
		if err == redis.Nil {
			// SETNX so two instances starting together agree on the first version
			if ok, serr := cm.redis.SetNX(ctx, attributeSetVersionKey, 1, 0).Result(); serr == nil && ok {
				return 1, nil
			}
			continue
		}
		if i < cacheVersionMaxRetries-1 {
			time.Sleep(50 * time.Millisecond)
		}
	}
	return 0, fmt.Errorf("failed to get cache version after %d retries", cacheVersionMaxRetries)
}

func (cm *CacheManager) key(version int64, id string) string {
	return fmt.Sprintf("%s%d:%s", attributeSetCachePrefix, version, id)
}

// noopCache is used when Redis is not configured.
type noopCache struct{}

func (noopCache) Get(context.Context, string) (*models.AttributeSet, int64, bool) { return nil, 0, false }
func (noopCache) SetAsync(*models.AttributeSet, int64)                            {}
func (noopCache) Invalidate(context.Context)                                      {}
