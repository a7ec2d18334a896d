package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) DelIfValue(_ context.Context, key, value string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if current, ok := m.values[key]; !ok || current != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockDefaults(t *testing.T) {
	store := newMemoryStore()
	lock, err := NewRedisLock(store, "", 0)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, defaultLockTTL, store.ttls[DefaultLockKey])

	_, err = NewRedisLock(nil, "", 0)
	require.Error(t, err)
}

func TestRedisLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	first, _ := NewRedisLock(store, "k", time.Minute)
	second, _ := NewRedisLock(store, "k", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// a non-owner release leaves the holder in place
	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "k")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, "k")

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	lock, _ := NewRedisLock(store, "k", time.Minute)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// TTL elapsed and another worker took over
	delete(store.values, "k")
	store.values["k"] = "someone-else"

	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "someone-else", store.values["k"])
}

func TestRedisLockReleaseErrorClearsOwner(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	lock, _ := NewRedisLock(store, "k", time.Minute)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	store.err = errors.New("connection reset")
	require.Error(t, lock.Release(ctx))

	store.err = nil
	require.NoError(t, lock.Release(ctx))
	assert.Contains(t, store.values, "k")
}
