package services

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bhiv/hr-platform/internal/models"
)

// MatchCache stores agent match responses. L1 is in process, L2 is redis when configured.
type MatchCache interface {
	Get(ctx context.Context, key string) (*models.MatchResponse, bool)
	Set(ctx context.Context, key string, value *models.MatchResponse)
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// defaultMatchCacheEntries bounds L1; redis keeps its own TTL.
const defaultMatchCacheEntries = 1000

type tieredMatchCache struct {
	l1         sync.Map
	rdb        *redis.Client
	ttl        time.Duration
	maxEntries int
	log        *zap.Logger
}

// NewMatchCache connects the redis tier when redisURL is set and reachable.
// A zero ttl disables caching.
func NewMatchCache(redisURL string, ttl time.Duration, log *zap.Logger) MatchCache {
	c := &tieredMatchCache{ttl: ttl, maxEntries: defaultMatchCacheEntries, log: log.Named("match_cache")}
	if ttl <= 0 || redisURL == "" {
		return c
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		c.log.Warn("⚠️  Invalid redis URL, L2 disabled", zap.Error(err))
		return c
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		c.log.Warn("⚠️  Redis unreachable, L2 disabled", zap.Error(err))
		_ = rdb.Close()
		return c
	}

	c.rdb = rdb
	c.log.Info("✅ Match cache L2 connected", zap.String("addr", opts.Addr))
	return c
}

// MatchCacheKey is deterministic for a job, limit and candidate set regardless of id order.
func MatchCacheKey(jobID int64, limit int, candidateIDs []int64) string {
	ids := append([]int64(nil), candidateIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}

	raw := fmt.Sprintf("%d|%d|%s", jobID, limit, strings.Join(parts, ","))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("match:%x", hash[:12])
}

func (c *tieredMatchCache) Get(ctx context.Context, key string) (*models.MatchResponse, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	if val, ok := c.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			var out models.MatchResponse
			if json.Unmarshal(entry.data, &out) == nil {
				return &out, true
			}
		}
		c.l1.Delete(key)
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var out models.MatchResponse
			if json.Unmarshal(data, &out) == nil {
				c.evictIfNeeded()
				c.l1.Store(key, &cacheEntry{data: data, expiresAt: time.Now().Add(c.ttl)})
				return &out, true
			}
		}
	}

	return nil, false
}

func (c *tieredMatchCache) Set(ctx context.Context, key string, value *models.MatchResponse) {
	if c.ttl <= 0 || value == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	c.evictIfNeeded()
	c.l1.Store(key, &cacheEntry{data: data, expiresAt: time.Now().Add(c.ttl)})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Debug("L2 set failed", zap.Error(err))
		}
	}
}

// evictIfNeeded makes room for one more L1 entry. Expired entries go first,
// then the ones closest to expiry.
func (c *tieredMatchCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count < c.maxEntries {
		return
	}

	now := time.Now()
	c.l1.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && !now.Before(entry.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return true
	})

	for count >= c.maxEntries {
		var oldestKey any
		var oldestAt time.Time
		c.l1.Range(func(key, val any) bool {
			entry, ok := val.(*cacheEntry)
			if ok && (oldestKey == nil || entry.expiresAt.Before(oldestAt)) {
				oldestKey = key
				oldestAt = entry.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

func (c *tieredMatchCache) l1Len() int {
	n := 0
	c.l1.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
