// Package db defines the storage contracts and errors shared by store implementations.
package db

import (
	"context"
	"time"
)

// Store is everything the Redis/Valkey backend offers. Consumers declare narrower interfaces.
//
//nolint:interfacebloat
type Store interface {
	Pinger
	HashStore
	KVStore
	SortedSetStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HMGet(ctx context.Context, key string, fields ...string) ([]*string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore provides string keys with optional expiry.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Expire(ctx context.Context, ttl time.Duration, keys ...string) error
}

// ZMember is one scored member of a sorted set.
type ZMember struct {
	Score  float64
	Member string
}

// SortedSetStore provides sorted set operations.
type SortedSetStore interface {
	ZAdd(ctx context.Context, key string, members []ZMember) error
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZScore(ctx context.Context, key, member string) (float64, error)
	ZCard(ctx context.Context, key string) (int64, error)
}
