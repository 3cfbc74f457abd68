package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/domain"
)

// TestRepository caches resolved tests with TTL to avoid resolving the
// question list on every submission.
type TestRepository struct {
	loader app.TestLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedTest
}

type cachedTest struct {
	test      domain.Test
	expiresAt time.Time
}

func NewTestRepository(loader app.TestLoader, ttl time.Duration) *TestRepository {
	return &TestRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedTest),
	}
}

func (r *TestRepository) GetTest(ctx context.Context, testID string) (domain.Test, error) {
	if test, ok := r.lookup(testID); ok {
		return test, nil
	}

	result, err, _ := r.sf.Do(testID, func() (interface{}, error) {
		if test, ok := r.lookup(testID); ok {
			return test, nil
		}

		test, err := r.loader.LoadTest(ctx, testID)
		if err != nil {
			return domain.Test{}, err
		}

		r.mu.Lock()
		r.cache[testID] = cachedTest{
			test:      test,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return test, nil
	})
	if err != nil {
		return domain.Test{}, err
	}
	return result.(domain.Test), nil
}

// Invalidate drops a cached test so the next read reloads it.
func (r *TestRepository) Invalidate(_ context.Context, testID string) error {
	r.mu.Lock()
	delete(r.cache, testID)
	r.mu.Unlock()
	return nil
}

func (r *TestRepository) lookup(testID string) (domain.Test, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[testID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Test{}, false
	}
	return entry.test, true
}

// ttlWithJitter must be called with mu held.
func (r *TestRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
