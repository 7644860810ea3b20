package redis

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pydaily/lessonbot/internal/domain/content"
	"github.com/pydaily/lessonbot/internal/infrastructure/persistence/memory"
	"github.com/pydaily/lessonbot/pkg/logger"
)

// fakeCache is an in-process stand-in for Cache.
type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
	fail   error
}

func newFakeCache() *fakeCache { return &fakeCache{values: map[string]string{}} }

func (f *fakeCache) GetString(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	v, ok := f.values[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCache) SetString(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.values[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return f.fail
}

func (f *fakeCache) DeleteByPattern(_ context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range f.values {
		if strings.HasPrefix(k, prefix) {
			delete(f.values, k)
		}
	}
	return f.fail
}

func (f *fakeCache) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return false, f.fail
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value
	return true, nil
}

func (f *fakeCache) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values[key] != value {
		return false, nil
	}
	delete(f.values, key)
	return true, nil
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "content:lesson:5", ContentKey(content.LessonKey(5)))
	assert.Equal(t, "content:motivation:2026-10-15",
		ContentKey(content.MotivationKey(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))))
	assert.Equal(t, "lock:cycle:morning", LockKey("cycle:morning"))
	assert.Equal(t, "localhost:6379", DefaultConfig().Addr())
}

func TestContentCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	durable := memory.NewContentStore()
	redis := newFakeCache()
	cc := NewContentCache(durable, redis, time.Hour, logger.Discard())

	require.NoError(t, durable.SaveArtifact(ctx, &content.Artifact{Key: content.LessonKey(2), Body: "L2", Topic: "Vars"}))

	got, err := cc.GetArtifact(ctx, content.LessonKey(2))
	require.NoError(t, err)
	assert.Equal(t, "L2", got.Body)
	assert.Contains(t, redis.values, "content:lesson:2", "durable hit is backfilled")

	// Served from Redis even after the durable row is gone.
	require.NoError(t, durable.DeleteArtifact(ctx, content.LessonKey(2)))
	got, err = cc.GetArtifact(ctx, content.LessonKey(2))
	require.NoError(t, err)
	assert.Equal(t, "Vars", got.Topic)

	_, err = cc.GetArtifact(ctx, content.QuizKey(3))
	assert.ErrorIs(t, err, content.ErrArtifactNotFound)
}

func TestContentCache_RedisFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	durable := memory.NewContentStore()
	redis := newFakeCache()
	redis.fail = errors.New("connection refused")
	cc := NewContentCache(durable, redis, time.Hour, logger.Discard())

	require.NoError(t, cc.SaveArtifact(ctx, &content.Artifact{Key: content.ReminderKey(1), Body: "R1"}))
	got, err := cc.GetArtifact(ctx, content.ReminderKey(1))
	require.NoError(t, err)
	assert.Equal(t, "R1", got.Body)
}

func TestContentCache_CorruptEntryIsDropped(t *testing.T) {
	ctx := context.Background()
	durable := memory.NewContentStore()
	redis := newFakeCache()
	redis.values["content:lesson:1"] = "{not json"
	cc := NewContentCache(durable, redis, 0, logger.Discard())

	_, err := cc.GetArtifact(ctx, content.LessonKey(1))
	assert.ErrorIs(t, err, content.ErrArtifactNotFound)
	assert.NotContains(t, redis.values, "content:lesson:1")
}

func TestContentCache_Deletes(t *testing.T) {
	ctx := context.Background()
	durable := memory.NewContentStore()
	redis := newFakeCache()
	redis.values["lock:cycle:morning"] = "token"
	cc := NewContentCache(durable, redis, time.Hour, logger.Discard())

	require.NoError(t, cc.SaveArtifact(ctx, &content.Artifact{Key: content.LessonKey(1), Body: "L1"}))
	require.NoError(t, cc.SaveArtifact(ctx, &content.Artifact{Key: content.QuizKey(3), Body: "Q3"}))

	require.NoError(t, cc.DeleteArtifact(ctx, content.LessonKey(1)))
	assert.NotContains(t, redis.values, "content:lesson:1")

	n, err := cc.DeleteAllArtifacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, map[string]string{"lock:cycle:morning": "token"}, redis.values)
}

func TestCycleLock(t *testing.T) {
	ctx := context.Background()
	store := newFakeCache()
	lock := NewCycleLock(store, time.Minute)

	release, err := lock.Acquire(ctx, "cycle:morning")
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, "cycle:morning")
	assert.ErrorIs(t, err, ErrLockHeld)

	other, err := lock.Acquire(ctx, "cycle:evening")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	// A stale release must not free a lock someone else re-took.
	store.values["lock:cycle:morning"] = "someone-else"
	require.NoError(t, release(ctx))
	assert.Equal(t, "someone-else", store.values["lock:cycle:morning"])

	_, err = NewCycleLock(store, 0).Acquire(ctx, "x")
	assert.ErrorIs(t, err, ErrCacheInvalidTTL)
}

func TestCache_Integration(t *testing.T) {
	addr := os.Getenv("PYDAILY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PYDAILY_TEST_REDIS_ADDR not set")
	}
	host, port, ok := strings.Cut(addr, ":")
	require.True(t, ok, "want host:port")

	cfg := DefaultConfig()
	cfg.Host = host
	var err error
	cfg.Port, err = strconv.Atoi(port)
	require.NoError(t, err)

	ctx := context.Background()
	c, err := NewCache(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	key := "pydaily-test:" + t.Name()
	require.NoError(t, c.SetString(ctx, key, "v", time.Minute))
	v, err := c.GetString(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	lock := NewCycleLock(c, time.Minute)
	release, err := lock.Acquire(ctx, t.Name())
	require.NoError(t, err)
	_, err = lock.Acquire(ctx, t.Name())
	assert.ErrorIs(t, err, ErrLockHeld)
	require.NoError(t, release(ctx))

	require.NoError(t, c.DeleteByPattern(ctx, "pydaily-test:*"))
	_, err = c.GetString(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
