package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/domain"
)

// TestRepository caches resolved tests in Redis and falls back to a loader on cache miss.
// A test is stored as JSON under: test:{testID}:resolved
// Cache read failures degrade to the loader instead of failing the request.
type TestRepository struct {
	client *redis.Client
	loader app.TestLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewTestRepository(client *redis.Client, loader app.TestLoader, ttl time.Duration) *TestRepository {
	return &TestRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *TestRepository) GetTest(ctx context.Context, testID string) (domain.Test, error) {
	if test, ok := r.cached(ctx, testID); ok {
		return test, nil
	}

	result, err, _ := r.sf.Do(testID, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if test, ok := r.cached(ctx, testID); ok {
			return test, nil
		}

		test, err := r.loader.LoadTest(ctx, testID)
		if err != nil {
			return domain.Test{}, err
		}

		// A zero expiration means "keep forever" to Redis, so a non-positive
		// ttl disables caching instead.
		if r.ttl <= 0 {
			return test, nil
		}
		if payload, err := json.Marshal(test); err == nil {
			_ = r.client.Set(ctx, r.key(testID), payload, r.ttlWithJitter()).Err()
		}
		return test, nil
	})
	if err != nil {
		return domain.Test{}, err
	}
	return result.(domain.Test), nil
}

// Invalidate deletes the cached copy of a test.
func (r *TestRepository) Invalidate(ctx context.Context, testID string) error {
	return r.client.Del(ctx, r.key(testID)).Err()
}

func (r *TestRepository) cached(ctx context.Context, testID string) (domain.Test, bool) {
	raw, err := r.client.Get(ctx, r.key(testID)).Bytes()
	if err != nil {
		// redis.Nil is a plain miss; anything else falls back to the loader too.
		return domain.Test{}, false
	}
	var test domain.Test
	if err := json.Unmarshal(raw, &test); err != nil {
		return domain.Test{}, false
	}
	return test, true
}

func (r *TestRepository) key(testID string) string {
	return "test:" + testID + ":resolved"
}

func (r *TestRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
