// Package ranking publishes a final result set to Redis/Valkey and reads ranked pages back.
//
// Every publish writes a fresh publication <run>@<generation>: <prefix>:<pub>:rank is a
// sorted set of document ids scored by rank position and <prefix>:<pub>:records is a hash
// of JSON score records keyed by document id. <prefix>:current switches to the new
// publication only after both keys are complete, then keys of every other publication
// under the prefix are removed.
package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/ccdarank/internal/db"
	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "ccdarank"

// recordsPerHSet bounds the fields sent in one HSET.
const recordsPerHSet = 500

// store is the consumer interface for the ranking keys (ISP).
type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Expire(ctx context.Context, ttl time.Duration, keys ...string) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HMGet(ctx context.Context, key string, fields ...string) ([]*string, error)
	ZAdd(ctx context.Context, key string, members []db.ZMember) error
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZScore(ctx context.Context, key, member string) (float64, error)
	ZCard(ctx context.Context, key string) (int64, error)
}

// generationSep separates the run id from the publish generation.
const generationSep = "@"

// Repo implements usecase/selection.Source over Redis.
type Repo struct {
	store      store
	prefix     string
	ttl        time.Duration
	generation func() string
}

// New creates a ranking repository. ttl <= 0 keeps published keys forever.
func New(s store, prefix string, ttl time.Duration) *Repo {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Repo{store: s, prefix: prefix, ttl: ttl, generation: clockGeneration}
}

func clockGeneration() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

// Publish writes rs as a new publication, switches the current pointer to it
// and then prunes every other publication. Readers keep seeing the previous
// publication until the switch, and a failed write leaves the pointer untouched.
func (r *Repo) Publish(ctx context.Context, rs *score.ResultSet) error {
	if rs == nil || rs.RunID == "" {
		return fmt.Errorf("%w: result set has no run id", domain.ErrInvalidRequest)
	}
	if strings.Contains(rs.RunID, generationSep) {
		return fmt.Errorf("%w: run id %q contains %q", domain.ErrInvalidRequest, rs.RunID, generationSep)
	}

	pub := rs.RunID + generationSep + r.generation()
	rankKey, recordsKey := r.rankKey(pub), r.recordsKey(pub)
	if rs.Len() > 0 {
		if err := r.writeRun(ctx, rankKey, recordsKey, rs.Records); err != nil {
			// Best effort: prune removes leftovers on the next successful publish.
			_ = r.store.Del(context.WithoutCancel(ctx), rankKey, recordsKey)
			return err
		}
	}

	if err := r.setCurrent(ctx, pub); err != nil {
		return err
	}

	if _, err := r.prune(ctx, pub); err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	return nil
}

// prune deletes the keys of every publication except keep, including ones left
// behind by an interrupted publish. It returns the number of keys removed.
func (r *Repo) prune(ctx context.Context, keep string) (int, error) {
	keys, err := r.store.Scan(ctx, r.prefix+":*")
	if err != nil {
		return 0, err
	}
	var stale []string
	for _, k := range keys {
		if pub, ok := r.publicationOf(k); ok && pub != keep {
			stale = append(stale, k)
		}
	}
	if err := r.store.Del(ctx, stale...); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// publicationOf extracts the publication id from a publication key of this prefix.
func (r *Repo) publicationOf(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, r.prefix+":")
	if !ok {
		return "", false
	}
	for _, suffix := range []string{":rank", ":records"} {
		if pub, ok := strings.CutSuffix(rest, suffix); ok && pub != "" {
			return pub, true
		}
	}
	return "", false
}

func (r *Repo) writeRun(ctx context.Context, rankKey, recordsKey string, records []score.Record) error {
	members := make([]db.ZMember, len(records))
	var items []db.HashSetItem
	fields := make(map[string]string, min(len(records), recordsPerHSet))
	for i := range records {
		rec := records[i]
		members[i] = db.ZMember{Score: float64(i), Member: rec.DocumentID}

		data, err := json.Marshal(recordDTO(rec))
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.DocumentID, err)
		}
		fields[rec.DocumentID] = string(data)
		if len(fields) == recordsPerHSet {
			items = append(items, db.HashSetItem{Key: recordsKey, Fields: fields})
			fields = make(map[string]string, recordsPerHSet)
		}
	}
	if len(fields) > 0 {
		items = append(items, db.HashSetItem{Key: recordsKey, Fields: fields})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset %s: %w", recordsKey, err)
	}
	if err := r.store.ZAdd(ctx, rankKey, members); err != nil {
		return fmt.Errorf("zadd %s: %w", rankKey, err)
	}

	if r.ttl > 0 {
		if err := r.store.Expire(ctx, r.ttl, rankKey, recordsKey); err != nil {
			return fmt.Errorf("expire run keys: %w", err)
		}
	}
	return nil
}

func (r *Repo) setCurrent(ctx context.Context, pub string) error {
	if err := r.store.Set(ctx, r.currentKey(), pub, r.ttl); err != nil {
		return fmt.Errorf("set %s: %w", r.currentKey(), err)
	}
	return nil
}

// RunID returns the currently published run, domain.ErrNoResults when nothing is published.
func (r *Repo) RunID(ctx context.Context) (string, error) {
	pub, err := r.current(ctx)
	if err != nil {
		return "", err
	}
	run, _, _ := strings.Cut(pub, generationSep)
	return run, nil
}

// current returns the id of the current publication.
func (r *Repo) current(ctx context.Context) (string, error) {
	pub, err := r.store.Get(ctx, r.currentKey())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", domain.ErrNoResults
		}
		return "", fmt.Errorf("get %s: %w", r.currentKey(), err)
	}
	return pub, nil
}

// Count returns the number of ranked documents in the current run.
func (r *Repo) Count(ctx context.Context) (int, error) {
	pub, err := r.current(ctx)
	if err != nil {
		return 0, err
	}
	n, err := r.store.ZCard(ctx, r.rankKey(pub))
	if err != nil {
		return 0, fmt.Errorf("zcard: %w", err)
	}
	return int(n), nil
}

// Page returns up to limit records from offset in rank order. limit <= 0 reads to the end.
func (r *Repo) Page(ctx context.Context, offset, limit int) ([]score.Record, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", domain.ErrInvalidRequest)
	}
	pub, err := r.current(ctx)
	if err != nil {
		return nil, err
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}
	ids, err := r.store.ZRange(ctx, r.rankKey(pub), int64(offset), stop)
	if err != nil {
		return nil, fmt.Errorf("zrange: %w", err)
	}
	if len(ids) == 0 {
		return []score.Record{}, nil
	}
	return r.records(ctx, pub, ids)
}

// Find returns a document's record and 1-based rank.
func (r *Repo) Find(ctx context.Context, documentID string) (score.Record, int, error) {
	pub, err := r.current(ctx)
	if err != nil {
		return score.Record{}, 0, err
	}
	pos, err := r.store.ZScore(ctx, r.rankKey(pub), documentID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return score.Record{}, 0, domain.ErrResultNotFound
		}
		return score.Record{}, 0, fmt.Errorf("zscore: %w", err)
	}
	recs, err := r.records(ctx, pub, []string{documentID})
	if err != nil {
		return score.Record{}, 0, err
	}
	return recs[0], int(pos) + 1, nil
}

func (r *Repo) records(ctx context.Context, pub string, ids []string) ([]score.Record, error) {
	key := r.recordsKey(pub)
	vals, err := r.store.HMGet(ctx, key, ids...)
	if err != nil {
		return nil, fmt.Errorf("hmget %s: %w", key, err)
	}
	out := make([]score.Record, len(ids))
	for i, v := range vals {
		if v == nil {
			return nil, fmt.Errorf("record %s missing from %s", ids[i], key)
		}
		var dto storedRecord
		if err := json.Unmarshal([]byte(*v), &dto); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", ids[i], err)
		}
		out[i] = dto.toDomain()
	}
	return out, nil
}

func (r *Repo) currentKey() string { return r.prefix + ":current" }

func (r *Repo) rankKey(pub string) string { return r.prefix + ":" + pub + ":rank" }

func (r *Repo) recordsKey(pub string) string { return r.prefix + ":" + pub + ":records" }
