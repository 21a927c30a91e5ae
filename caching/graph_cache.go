package caching

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"graphbench/structs"

	"github.com/gomodule/redigo/redis"
	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"
)

// GraphCache keeps recently created or fetched graphs so run requests do
// not have to reload and decode them from the database.
type GraphCache interface {
	Get(id int64) (*structs.GraphRecord, bool)
	Set(g *structs.GraphRecord) error
	Close() error
}

// NewGraphCache returns a Redis backed cache when an address is configured
// and an in-memory cache otherwise.
func NewGraphCache(cfg structs.RedisConfig) GraphCache {
	if cfg.Address == "" {
		log.Infof("Redis not configured, using in-memory graph cache of %d entries", cfg.MemoryEntries)
		return NewMemoryCache(cfg.MemoryEntries, time.Duration(cfg.TTLSeconds)*time.Second)
	}
	log.Infof("Using Redis graph cache at %s, ttl=%ds", cfg.Address, cfg.TTLSeconds)
	return NewRedisCache(cfg)
}

func graphKey(id int64) string {
	return fmt.Sprintf("graph:%d", id)
}

// DefaultMemoryEntries bounds the in-memory cache when no size is configured.
const DefaultMemoryEntries = 64

// MemoryCache holds at most maxEntries graphs, evicting the least recently
// used one. With a positive ttl entries also expire.
type MemoryCache struct {
	graphs *expirable.LRU[int64, structs.GraphRecord]
}

func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	return &MemoryCache{graphs: expirable.NewLRU[int64, structs.GraphRecord](maxEntries, nil, ttl)}
}

func (mc *MemoryCache) Get(id int64) (*structs.GraphRecord, bool) {
	g, ok := mc.graphs.Get(id)
	if !ok {
		return nil, false
	}
	return &g, true
}

func (mc *MemoryCache) Set(g *structs.GraphRecord) error {
	if g == nil {
		return errors.New("nil graph record")
	}
	if mc.graphs.Add(g.ID, *g) {
		log.Debugf("Graph cache full, evicted least recently used entry for graph %d", g.ID)
	}
	return nil
}

func (mc *MemoryCache) Len() int {
	return mc.graphs.Len()
}

func (mc *MemoryCache) Close() error {
	mc.graphs.Purge()
	return nil
}

// RedisCache stores graph records as JSON under graph:<id> with a TTL.
type RedisCache struct {
	pool *redis.Pool
	ttl  int
}

func NewRedisCache(cfg structs.RedisConfig) *RedisCache {
	addr, password := cfg.Address, cfg.Password
	pool := &redis.Pool{
		MaxIdle:     cfg.MaxIdle,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			if password != "" {
				return redis.Dial("tcp", addr, redis.DialPassword(password))
			}
			return redis.Dial("tcp", addr)
		},
	}
	return newRedisCacheWithPool(pool, cfg.TTLSeconds)
}

func newRedisCacheWithPool(pool *redis.Pool, ttlSeconds int) *RedisCache {
	if ttlSeconds <= 0 {
		ttlSeconds = 3600
	}
	return &RedisCache{pool: pool, ttl: ttlSeconds}
}

// Get treats any Redis failure as a miss; the caller falls back to the database.
func (rc *RedisCache) Get(id int64) (*structs.GraphRecord, bool) {
	conn := rc.pool.Get()
	defer conn.Close()

	value, err := redis.Bytes(conn.Do("GET", graphKey(id)))
	if err != nil {
		if !errors.Is(err, redis.ErrNil) {
			log.Warnf("Redis GET %s failed: %v", graphKey(id), err)
		}
		return nil, false
	}

	var g structs.GraphRecord
	if err := json.Unmarshal(value, &g); err != nil {
		log.Errorf("Failed to parse cached graph %d: %v", id, err)
		return nil, false
	}
	return &g, true
}

func (rc *RedisCache) Set(g *structs.GraphRecord) error {
	if g == nil {
		return errors.New("nil graph record")
	}
	value, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode graph %d: %w", g.ID, err)
	}

	conn := rc.pool.Get()
	defer conn.Close()
	if _, err := conn.Do("SETEX", graphKey(g.ID), rc.ttl, value); err != nil {
		return fmt.Errorf("redis SETEX %s failed: %w", graphKey(g.ID), err)
	}
	return nil
}

func (rc *RedisCache) Close() error {
	return rc.pool.Close()
}
