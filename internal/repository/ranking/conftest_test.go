package ranking

import (
	"context"
	"fmt"
	"path"
	"sort"
	"testing"
	"time"

	"github.com/kailas-cloud/ccdarank/internal/db"
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
)

// memStore is an in-memory stand-in for the Redis store.
type memStore struct {
	kv      map[string]string
	hashes  map[string]map[string]string
	zsets   map[string]map[string]float64
	ttls    map[string]time.Duration
	hsetErr error
}

func newMemStore() *memStore {
	return &memStore{
		kv:     map[string]string{},
		hashes: map[string]map[string]string{},
		zsets:  map[string]map[string]float64{},
		ttls:   map[string]time.Duration{},
	}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.kv[key]
	if !ok {
		return "", db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.kv[key] = value
	if ttl > 0 {
		m.ttls[key] = ttl
	}
	return nil
}

func (m *memStore) Expire(_ context.Context, ttl time.Duration, keys ...string) error {
	for _, k := range keys {
		m.ttls[k] = ttl
	}
	return nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.kv, k)
		delete(m.hashes, k)
		delete(m.zsets, k)
		delete(m.ttls, k)
	}
	return nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	seen := map[string]struct{}{}
	for _, keys := range []map[string]struct{}{setOf(m.kv), setOf(m.hashes), setOf(m.zsets)} {
		for k := range keys {
			if ok, _ := path.Match(pattern, k); ok {
				seen[k] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func setOf[V any](m map[string]V) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func (m *memStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	for _, it := range items {
		h, ok := m.hashes[it.Key]
		if !ok {
			h = map[string]string{}
			m.hashes[it.Key] = h
		}
		for f, v := range it.Fields {
			h[f] = v
		}
	}
	return nil
}

func (m *memStore) HMGet(_ context.Context, key string, fields ...string) ([]*string, error) {
	out := make([]*string, len(fields))
	for i, f := range fields {
		if v, ok := m.hashes[key][f]; ok {
			out[i] = &v
		}
	}
	return out, nil
}

func (m *memStore) ZAdd(_ context.Context, key string, members []db.ZMember) error {
	z, ok := m.zsets[key]
	if !ok {
		z = map[string]float64{}
		m.zsets[key] = z
	}
	for _, mem := range members {
		z[mem.Member] = mem.Score
	}
	return nil
}

func (m *memStore) ZRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	z := m.zsets[key]
	members := make([]string, 0, len(z))
	for k := range z {
		members = append(members, k)
	}
	sort.Slice(members, func(i, j int) bool {
		if z[members[i]] != z[members[j]] {
			return z[members[i]] < z[members[j]]
		}
		return members[i] < members[j]
	})
	n := int64(len(members))
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start >= n || start > stop {
		return []string{}, nil
	}
	return members[start : stop+1], nil
}

func (m *memStore) ZScore(_ context.Context, key, member string) (float64, error) {
	v, ok := m.zsets[key][member]
	if !ok {
		return 0, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) ZCard(_ context.Context, key string) (int64, error) {
	return int64(len(m.zsets[key])), nil
}

func newTestRepo(t *testing.T) (*Repo, *memStore) {
	t.Helper()
	ms := newMemStore()
	return withGenerations(New(ms, "test", 0)), ms
}

// withGenerations makes publishes use generations g1, g2, ... in order.
func withGenerations(r *Repo) *Repo {
	n := 0
	r.generation = func() string {
		n++
		return fmt.Sprintf("g%d", n)
	}
	return r
}

func resultSet(run string, ids ...string) *score.ResultSet {
	rs := &score.ResultSet{RunID: run}
	for i, id := range ids {
		rs.Records = append(rs.Records, score.Record{
			DocumentID: id,
			TotalScore: float64(len(ids) - i),
			SectionIDs: []string{"2.16.840.1.113883.10.20.22.2.4.1"},
		})
	}
	return rs
}
