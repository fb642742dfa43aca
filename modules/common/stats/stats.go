package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Outcome of one generation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// ModeStats - 모드별 생성 결과 집계
type ModeStats struct {
	Success int64 `json:"success"`
	Error   int64 `json:"error"`
}

// Counter records generation outcomes per mode.
type Counter interface {
	Record(ctx context.Context, mode string, outcome Outcome) error
	Snapshot(ctx context.Context) (map[string]ModeStats, error)
}

// MemoryCounter keeps counts in process memory.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]ModeStats
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]ModeStats)}
}

func (c *MemoryCounter) Record(_ context.Context, mode string, outcome Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.counts[mode]
	switch outcome {
	case OutcomeSuccess:
		s.Success++
	case OutcomeError:
		s.Error++
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}
	c.counts[mode] = s
	return nil
}

func (c *MemoryCounter) Snapshot(_ context.Context) (map[string]ModeStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]ModeStats, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out, nil
}

// DefaultRedisKey - 통계 해시 키
const DefaultRedisKey = "photo-fusion:stats"

// RedisCounter keeps counts in one Redis hash, field "<mode>:<outcome>",
// so several server instances share them.
type RedisCounter struct {
	rdb *redis.Client
	key string
}

func NewRedisCounter(rdb *redis.Client, key string) *RedisCounter {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisCounter{rdb: rdb, key: key}
}

func (c *RedisCounter) Record(ctx context.Context, mode string, outcome Outcome) error {
	if outcome != OutcomeSuccess && outcome != OutcomeError {
		return fmt.Errorf("unknown outcome %q", outcome)
	}
	if err := c.rdb.HIncrBy(ctx, c.key, mode+":"+string(outcome), 1).Err(); err != nil {
		return fmt.Errorf("redis HINCRBY %s: %w", c.key, err)
	}
	return nil
}

func (c *RedisCounter) Snapshot(ctx context.Context) (map[string]ModeStats, error) {
	fields, err := c.rdb.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %s: %w", c.key, err)
	}
	return parseFields(fields), nil
}

func parseFields(fields map[string]string) map[string]ModeStats {
	out := make(map[string]ModeStats)
	for field, raw := range fields {
		mode, outcome, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		s := out[mode]
		switch Outcome(outcome) {
		case OutcomeSuccess:
			s.Success = n
		case OutcomeError:
			s.Error = n
		default:
			continue
		}
		out[mode] = s
	}
	return out
}
