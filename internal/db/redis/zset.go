package redis

import (
	"context"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ccdarank/internal/db"
)

// zaddChunk bounds the members sent in one ZADD.
const zaddChunk = 1000

// ZAdd adds members to a sorted set, pipelined in chunks.
func (s *Store) ZAdd(ctx context.Context, key string, members []db.ZMember) error {
	if len(members) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, 0, (len(members)+zaddChunk-1)/zaddChunk)
	for start := 0; start < len(members); start += zaddChunk {
		end := min(start+zaddChunk, len(members))
		cmd := s.b().Zadd().Key(key).ScoreMember()
		for _, m := range members[start:end] {
			cmd = cmd.ScoreMember(m.Score, m.Member)
		}
		cmds = append(cmds, cmd.Build())
	}
	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return zsetErr(db.OpZAdd, err)
		}
	}
	return nil
}

// ZRange returns members by index range, inclusive, lowest score first.
func (s *Store) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	cmd := s.b().Zrange().Key(key).Min(strconv.FormatInt(start, 10)).Max(strconv.FormatInt(stop, 10)).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, zsetErr(db.OpZRange, err)
	}
	return members, nil
}

// ZScore returns a member's score, db.ErrKeyNotFound when absent.
func (s *Store) ZScore(ctx context.Context, key, member string) (float64, error) {
	cmd := s.b().Zscore().Key(key).Member(member).Build()
	v, err := s.do(ctx, cmd).AsFloat64()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, db.ErrKeyNotFound
		}
		return 0, zsetErr(db.OpZScore, err)
	}
	return v, nil
}

// ZCard returns the number of members in a sorted set.
func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Zcard().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, zsetErr(db.OpZCard, err)
	}
	return n, nil
}

func zsetErr(op string, err error) error {
	if hasErrorPrefix(err, "WRONGTYPE") {
		return &db.Error{Op: op, Err: db.ErrWrongType}
	}
	return &db.Error{Op: op, Err: err}
}
