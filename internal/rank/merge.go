// Package rank folds a run's checkpoints into the final ranked result set.
package rank

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/ccdarank/internal/checkpoint"
	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
)

// CheckpointReader loads every checkpoint of a run.
type CheckpointReader interface {
	LoadAll(runID string) (valid []checkpoint.Checkpoint, corrupt []checkpoint.Entry, err error)
}

// Merge folds checkpoints by sequence, keeping the last record per document, and ranks the result:
// total score descending, then document id ascending. The input slice is not modified.
func Merge(runID string, checkpoints []checkpoint.Checkpoint) *score.ResultSet {
	ordered := make([]checkpoint.Checkpoint, len(checkpoints))
	copy(ordered, checkpoints)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	latest := make(map[string]score.Record)
	for _, cp := range ordered {
		for _, rec := range cp.Records {
			latest[rec.DocumentID] = rec
		}
	}

	records := make([]score.Record, 0, len(latest))
	for _, rec := range latest {
		records = append(records, rec)
	}
	score.SortRanked(records)
	return &score.ResultSet{RunID: runID, Records: records}
}

// Load reads the run's checkpoints and merges them.
// A corrupt checkpoint fails the merge: the scoring run must recompute it first.
func Load(store CheckpointReader, runID string) (*score.ResultSet, error) {
	valid, corrupt, err := store.LoadAll(runID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoints: %w", err)
	}
	if len(corrupt) > 0 {
		return nil, domain.NewCheckpointCorruption(corrupt[0].Path,
			fmt.Sprintf("%d corrupt checkpoint(s) in run %s, rerun scoring to recompute", len(corrupt), runID))
	}
	return Merge(runID, valid), nil
}
