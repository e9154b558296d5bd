package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ccdarank/internal/db"
)

// Get reads a string key. A missing key is db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.do(ctx, s.b().Get().Key(key).Build()).ToString()
	switch {
	case rueidis.IsRedisNil(err):
		return "", db.ErrKeyNotFound
	case err != nil:
		return "", &db.Error{Op: db.OpGet, Err: err}
	}
	return v, nil
}

// Set writes a string key. ttl > 0 expires it after whole seconds; otherwise it persists.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var cmd rueidis.Completed
	if secs := int64(ttl / time.Second); secs > 0 {
		cmd = s.b().Set().Key(key).Value(value).ExSeconds(secs).Build()
	} else {
		cmd = s.b().Set().Key(key).Value(value).Build()
	}
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// Expire applies one TTL to every key in a single pipeline. Missing keys are ignored.
func (s *Store) Expire(ctx context.Context, ttl time.Duration, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	secs := int64(ttl / time.Second)
	cmds := make(rueidis.Commands, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, s.b().Expire().Key(key).Seconds(secs).Build())
	}
	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpExpire, Err: err}
		}
	}
	return nil
}
