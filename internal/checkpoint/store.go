// Package checkpoint persists completed scoring batches as independently readable, atomically written files.
package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
	"github.com/kailas-cloud/ccdarank/internal/storage/atomicfile"
)

// Version is the checkpoint format version.
const Version = 1

const fileSuffix = ".ckpt.json"

var fileNameRe = regexp.MustCompile(`^(.+)-(\d{6,})\.ckpt\.json$`)

// Checkpoint is one completed batch of score records.
type Checkpoint struct {
	Version        int            `json:"version"`
	RunID          string         `json:"run_id"`
	Sequence       int            `json:"sequence"`
	LastDocumentID string         `json:"last_document_id"`
	Records        []score.Record `json:"records"`
	Checksum       string         `json:"checksum"`
}

// New builds a checkpoint for a batch; LastDocumentID is taken from the last record.
func New(runID string, seq int, records []score.Record) Checkpoint {
	cp := Checkpoint{Version: Version, RunID: runID, Sequence: seq, Records: records}
	if len(records) > 0 {
		cp.LastDocumentID = records[len(records)-1].DocumentID
	}
	return cp
}

type checksummed struct {
	RunID          string         `json:"run_id"`
	Sequence       int            `json:"sequence"`
	LastDocumentID string         `json:"last_document_id"`
	Records        []score.Record `json:"records"`
}

func (c *Checkpoint) computeChecksum() (string, error) {
	data, err := json.Marshal(checksummed{
		RunID: c.RunID, Sequence: c.Sequence, LastDocumentID: c.LastDocumentID, Records: c.Records,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FileName returns the unique file name of a run's batch.
func FileName(runID string, seq int) string {
	return fmt.Sprintf("%s-%06d%s", runID, seq, fileSuffix)
}

// Store reads and writes checkpoints in one directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the checkpoint directory.
func (s *Store) Dir() string { return s.dir }

// Probe fails when the directory cannot accept atomic writes.
func (s *Store) Probe() error {
	return atomicfile.Probe(s.dir)
}

// Write persists cp atomically: the file is either complete and valid or absent.
func (s *Store) Write(ctx context.Context, cp Checkpoint) (string, error) {
	if cp.RunID == "" {
		return "", errors.New("checkpoint run id is required")
	}
	if cp.Sequence <= 0 {
		return "", fmt.Errorf("checkpoint sequence must be positive, got %d", cp.Sequence)
	}
	if len(cp.Records) == 0 {
		return "", errors.New("checkpoint has no records")
	}
	cp.Version = Version
	cp.LastDocumentID = cp.Records[len(cp.Records)-1].DocumentID
	sum, err := cp.computeChecksum()
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	cp.Checksum = sum

	data, err := json.Marshal(cp)
	if err != nil {
		return "", fmt.Errorf("marshal checkpoint: %w", err)
	}
	path := filepath.Join(s.dir, FileName(cp.RunID, cp.Sequence))
	if err := atomicfile.WriteFile(ctx, path, data); err != nil {
		return "", fmt.Errorf("write checkpoint: %w", err)
	}
	return path, nil
}

// Entry is a checkpoint file discovered on disk.
type Entry struct {
	Path     string
	RunID    string
	Sequence int
}

// List returns the run's checkpoint files ordered by sequence. A missing directory lists nothing.
func (s *Store) List(runID string) ([]Entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint dir %s: %w", s.dir, err)
	}
	var out []Entry
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		m := fileNameRe.FindStringSubmatch(d.Name())
		if m == nil || m[1] != runID {
			continue
		}
		seq, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out = append(out, Entry{Path: filepath.Join(s.dir, d.Name()), RunID: m[1], Sequence: seq})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

// Read loads and validates one checkpoint file.
// Any integrity failure is reported as *domain.CheckpointCorruptionError.
func (s *Store) Read(e Entry) (Checkpoint, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("read checkpoint %s: %w", e.Path, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, domain.NewCheckpointCorruption(e.Path, "decode: "+err.Error())
	}
	if cp.Version != Version {
		return Checkpoint{}, domain.NewCheckpointCorruption(e.Path, fmt.Sprintf("unsupported version %d", cp.Version))
	}
	if cp.RunID != e.RunID || cp.Sequence != e.Sequence {
		return Checkpoint{}, domain.NewCheckpointCorruption(e.Path, "run id or sequence does not match file name")
	}
	if len(cp.Records) == 0 {
		return Checkpoint{}, domain.NewCheckpointCorruption(e.Path, "no records")
	}
	if cp.Records[len(cp.Records)-1].DocumentID != cp.LastDocumentID {
		return Checkpoint{}, domain.NewCheckpointCorruption(e.Path, "last document id mismatch")
	}
	sum, err := cp.computeChecksum()
	if err != nil {
		return Checkpoint{}, domain.NewCheckpointCorruption(e.Path, "checksum: "+err.Error())
	}
	if sum != cp.Checksum {
		return Checkpoint{}, domain.NewCheckpointCorruption(e.Path, "checksum mismatch")
	}
	return cp, nil
}

// Remove deletes a checkpoint file.
func (s *Store) Remove(e Entry) error {
	if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove checkpoint %s: %w", e.Path, err)
	}
	return nil
}

// LoadAll reads every checkpoint of a run in sequence order.
// Corrupt checkpoints are returned separately and never included in valid.
func (s *Store) LoadAll(runID string) (valid []Checkpoint, corrupt []Entry, err error) {
	entries, err := s.List(runID)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		cp, rerr := s.Read(e)
		if rerr != nil {
			if errors.Is(rerr, domain.ErrCheckpointCorrupt) {
				corrupt = append(corrupt, e)
				continue
			}
			return nil, nil, rerr
		}
		valid = append(valid, cp)
	}
	return valid, corrupt, nil
}
