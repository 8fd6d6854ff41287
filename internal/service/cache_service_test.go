package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

type memoryCacheRepo struct {
	data      map[string][]byte
	ttls      map[string]time.Duration
	getErr    error
	deleteErr error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.data, key)
		}
	}
	return nil
}

func TestCacheServiceRoundTripAndMetrics(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out map[string]int
	hit, err := cache.Get(ctx, "attendance:student:s1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "attendance:student:s1", map[string]int{"total": 3}, 0))
	assert.Equal(t, time.Minute, repo.ttls["attendance:student:s1"])

	hit, err = cache.Get(ctx, "attendance:student:s1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, out["total"])

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCacheServiceInvalidateMultiplePatterns(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil, true)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "attendance:subject:math", 1, 0))
	require.NoError(t, cache.Set(ctx, "monthly_stats:2024-02", 2, 0))
	require.NoError(t, cache.Set(ctx, "other", 3, 0))

	require.NoError(t, cache.Invalidate(ctx, attendanceCachePattern, monthlyStatsCachePattern))
	assert.Len(t, repo.data, 1)
	assert.Contains(t, repo.data, "other")

	repo.deleteErr = errors.New("redis down")
	assert.Error(t, cache.Invalidate(ctx, attendanceCachePattern))
}

func TestCacheServiceDisabledAndNil(t *testing.T) {
	ctx := context.Background()
	var nilCache *CacheService
	hit, err := nilCache.Get(ctx, "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, nilCache.Set(ctx, "k", 1, 0))
	assert.NoError(t, nilCache.Invalidate(ctx, "*"))

	repo := newMemoryCacheRepo()
	disabled := NewCacheService(repo, nil, 0, nil, false)
	require.NoError(t, disabled.Set(ctx, "k", 1, 0))
	assert.Empty(t, repo.data)
}

func TestCacheServiceBackendErrorIsReported(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("timeout")
	cache := NewCacheService(repo, nil, 0, nil, true)

	hit, err := cache.Get(context.Background(), "k", new(int))
	assert.False(t, hit)
	assert.Error(t, err)
}

func TestRememberLoadsOnceThenHits(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (*struct{ Total int }, error) {
		calls++
		return &struct{ Total int }{Total: 7}, nil
	}

	first, err := Remember(ctx, cache, "attendance:student:s9", 0, load)
	require.NoError(t, err)
	second, err := Remember(ctx, cache, "attendance:student:s9", 0, load)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 7, first.Total)
	assert.Equal(t, 7, second.Total)
	assert.Equal(t, time.Minute, repo.ttls["attendance:student:s9"])
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil, true)

	_, err := Remember(context.Background(), cache, "k", 0, func(context.Context) (int, error) {
		return 0, errors.New("db down")
	})
	require.Error(t, err)
	assert.Empty(t, repo.data)
}

func TestRememberWithoutCacheAlwaysLoads(t *testing.T) {
	var cache *CacheService
	calls := 0
	for i := 0; i < 2; i++ {
		v, err := Remember(context.Background(), cache, "k", 0, func(context.Context) (int, error) {
			calls++
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 2, calls)
}

func TestRememberSkipsWriteWhenInvalidatedDuringLoad(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()

	calls := 0
	load := func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			// a marking session commits while the report is being built
			require.NoError(t, cache.Invalidate(ctx, attendanceCachePattern))
		}
		return calls, nil
	}

	first, err := Remember(ctx, cache, "attendance:subject:Math", 0, load)
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Empty(t, repo.data)

	second, err := Remember(ctx, cache, "attendance:subject:Math", 0, load)
	require.NoError(t, err)
	assert.Equal(t, 2, second)
	assert.Contains(t, repo.data, "attendance:subject:Math")
}
