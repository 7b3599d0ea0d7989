package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/payalloc/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func unreachable(context.Context, config.RedisConfig) (*redis.Client, error) {
	return nil, errors.New("connection refused")
}

func TestIdempotencyStoreFactory_MemoryBackend(t *testing.T) {
	f := NewIdempotencyStoreFactory(config.RedisConfig{}, config.IdempotencyConfig{Backend: "memory"})
	f.dial = func(context.Context, config.RedisConfig) (*redis.Client, error) {
		t.Fatal("memory backend must not dial redis")
		return nil, nil
	}

	store, err := f.CreateStore(context.Background())
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestIdempotencyStoreFactory_Fallback(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := NewIdempotencyStoreFactory(
		config.RedisConfig{Host: "localhost", Port: 6379},
		config.IdempotencyConfig{Backend: "redis"},
		WithLogger(zap.New(core)),
	)
	f.dial = unreachable

	store, err := f.CreateStore(context.Background())
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	assert.Equal(t, 1, logs.Len())
}

func TestIdempotencyStoreFactory_NoFallback(t *testing.T) {
	f := NewIdempotencyStoreFactory(
		config.RedisConfig{Host: "localhost", Port: 6379},
		config.IdempotencyConfig{Backend: "redis"},
		WithInMemoryFallback(false),
	)
	f.dial = unreachable

	store, err := f.CreateStore(context.Background())
	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "connection refused")
}
