// Package redis is the rueidis-backed store behind the ranking publisher (Redis 7+ or Valkey).
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ccdarank/internal/db"
)

var _ db.Store = (*Store)(nil)

// DefaultClientName is reported by CLIENT LIST for connections opened by this process.
const DefaultClientName = "ccdarank"

// readyPollInterval is the delay between pings while waiting for the server.
const readyPollInterval = 100 * time.Millisecond

// Config holds connection parameters.
type Config struct {
	Addrs      []string
	Username   string
	Password   string
	DB         int
	ClientName string
}

// Store implements db.Store over a single rueidis client.
type Store struct {
	client rueidis.Client
}

// NewStore dials the configured addresses.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	name := cfg.ClientName
	if name == "" {
		name = DefaultClientName
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   name,
		DisableCache: true,
		AlwaysRESP2:  true, // ZSCORE and HMGET parsing expects RESP2 bulk strings
	})
	if err != nil {
		return nil, fmt.Errorf("redis: dial %s: %w", strings.Join(cfg.Addrs, ","), err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the client's connections.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings until the server answers. On timeout the last ping error is returned.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var last error
	for {
		if last = s.Ping(ctx); last == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready after %s: %w", timeout, last)
		case <-time.After(readyPollInterval):
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// hasErrorPrefix reports whether err is a server reply whose error code is prefix, e.g. WRONGTYPE.
func hasErrorPrefix(err error, prefix string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.HasPrefix(re.Error(), prefix)
}
