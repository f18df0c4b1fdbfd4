package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"city-samadhan/types"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Guard admits one holder per key at a time. It keeps a repeated submit of
// the same draft from creating a second report.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryGuard is a Guard for a single process.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; busy {
		return nil, alreadySubmitting("report.MemoryGuard.Acquire")
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// release only deletes the key if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares the guard between service instances. A lock expires
// after ttl so a crashed holder cannot block a draft forever.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    logrus.FieldLogger
}

func NewRedisGuard(client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl, prefix: "submit-guard:", log: log}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	const op = "report.RedisGuard.Acquire"

	redisKey := g.prefix + key
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, redisKey, token, g.ttl).Result()
	if err != nil {
		return nil, types.E(types.KindInternal, op, fmt.Errorf("failed to set guard %s: %w", redisKey, err))
	}
	if !ok {
		return nil, alreadySubmitting(op)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, g.client, []string{redisKey}, token).Err(); err != nil {
				g.log.WithError(err).WithField("key", redisKey).Warn("Failed to release submit guard")
			}
		})
	}, nil
}
