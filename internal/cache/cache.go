package cache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/mlt/internal/cv"
)

// Cache stores computed fold schedules keyed by Key
type Cache interface {
	Get(ctx context.Context, key string) ([]cv.Split, bool, error)
	Set(ctx context.Context, key string, splits []cv.Split, ttl time.Duration) error
}

// Key fingerprints a schedule: splitter name, its encoded configuration and
// the time column it was computed over
func Key(splitter, fingerprint string, times []time.Time) string {
	h := xxhash.New()
	h.WriteString(splitter)
	h.WriteString("\x00")
	h.WriteString(fingerprint)
	h.WriteString("\x00")

	var buf [8]byte
	for _, t := range times {
		binary.LittleEndian.PutUint64(buf[:], uint64(t.UnixNano()))
		h.Write(buf[:])
	}
	return fmt.Sprintf("mlt:folds:%s:%016x", splitter, h.Sum64())
}

// GetOrCompute returns the cached schedule for key, computing and storing it
// on a miss. Cache errors are logged and fall through to compute.
func GetOrCompute(ctx context.Context, c Cache, key string, ttl time.Duration, compute func() ([]cv.Split, error)) ([]cv.Split, bool, error) {
	splits, ok, err := c.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Schedule cache read failed")
	}
	if ok {
		return splits, true, nil
	}

	splits, err = compute()
	if err != nil {
		return nil, false, err
	}
	if err := c.Set(ctx, key, splits, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Schedule cache write failed")
	}
	return splits, false, nil
}

type memory struct {
	mu sync.Mutex
	m  map[string]entry
}

type entry struct {
	splits []cv.Split
	exp    time.Time
}

// NewMemory returns a process-local cache
func NewMemory() Cache { return &memory{m: make(map[string]entry)} }

func (c *memory) Get(_ context.Context, key string) ([]cv.Split, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		return nil, false, nil
	}
	return e.splits, true, nil
}

func (c *memory) Set(_ context.Context, key string, splits []cv.Split, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{splits: append([]cv.Split(nil), splits...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
	return nil
}

// redisCache stores schedules as JSON
type redisCache struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedis wraps a redis client
func NewRedis(client *redis.Client) Cache {
	return &redisCache{client: client, timeout: 500 * time.Millisecond}
}

// NewAuto uses redis when addr is set, otherwise an in-memory cache
func NewAuto(addr string) Cache {
	if addr != "" {
		log.Info().Str("addr", addr).Msg("Using redis schedule cache")
		return NewRedis(redis.NewClient(&redis.Options{Addr: addr}))
	}
	return NewMemory()
}

func (r *redisCache) Get(ctx context.Context, key string) ([]cv.Split, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var splits []cv.Split
	if err := json.Unmarshal(payload, &splits); err != nil {
		return nil, false, fmt.Errorf("corrupt schedule %s: %w", key, err)
	}
	return splits, true, nil
}

func (r *redisCache) Set(ctx context.Context, key string, splits []cv.Split, ttl time.Duration) error {
	payload, err := json.Marshal(splits)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
