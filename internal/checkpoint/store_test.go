package checkpoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
)

func records(ids ...string) []score.Record {
	out := make([]score.Record, len(ids))
	for i, id := range ids {
		out[i] = score.Record{DocumentID: id, TotalScore: float64(i), SectionIDs: []string{"s"}}
	}
	return out
}

func TestWriteRead_RoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	path, err := s.Write(context.Background(), New("run1", 1, records("a", "b")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "run1-000001.ckpt.json" {
		t.Errorf("path = %s", path)
	}

	entries, err := s.List("run1")
	if err != nil || len(entries) != 1 {
		t.Fatalf("List = %v, %v", entries, err)
	}
	cp, err := s.Read(entries[0])
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cp.LastDocumentID != "b" || cp.Sequence != 1 || cp.Checksum == "" {
		t.Errorf("checkpoint = %+v", cp)
	}
	if diff := cmp.Diff(records("a", "b"), cp.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_Invalid(t *testing.T) {
	s := NewStore(t.TempDir())
	tests := []struct {
		name string
		cp   Checkpoint
	}{
		{"no run id", New("", 1, records("a"))},
		{"zero sequence", New("r", 0, records("a"))},
		{"no records", New("r", 1, nil)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Write(context.Background(), tc.cp); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestList_FiltersAndOrders(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	for _, seq := range []int{3, 1, 2} {
		if _, err := s.Write(context.Background(), New("run1", seq, records("x"))); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Write(context.Background(), New("other", 1, records("x"))); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(dir, "run1-notanumber.ckpt.json"), []byte("{}"), 0o600)
	_ = os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("{"), 0o600)

	entries, err := s.List("run1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var seqs []int
	for _, e := range entries {
		seqs = append(seqs, e.Sequence)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, seqs); diff != "" {
		t.Errorf("sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestList_MissingDir(t *testing.T) {
	entries, err := NewStore(filepath.Join(t.TempDir(), "nope")).List("r")
	if err != nil || len(entries) != 0 {
		t.Errorf("List on missing dir = %v, %v", entries, err)
	}
}

func TestRead_Corruption(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, path string)
	}{
		{"truncated", func(t *testing.T, path string) {
			data, _ := os.ReadFile(path)
			_ = os.WriteFile(path, data[:len(data)/2], 0o600)
		}},
		{"tampered score", func(t *testing.T, path string) {
			data, _ := os.ReadFile(path)
			data = []byte(replaceOnce(string(data), `"total_score":1`, `"total_score":9`))
			_ = os.WriteFile(path, data, 0o600)
		}},
		{"renamed to another sequence", func(t *testing.T, path string) {
			_ = os.Rename(path, filepath.Join(filepath.Dir(path), FileName("run1", 7)))
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore(t.TempDir())
			path, err := s.Write(context.Background(), New("run1", 1, records("a", "b")))
			if err != nil {
				t.Fatal(err)
			}
			tc.mutate(t, path)

			valid, corrupt, err := s.LoadAll("run1")
			if err != nil {
				t.Fatalf("LoadAll: %v", err)
			}
			if len(valid) != 0 || len(corrupt) != 1 {
				t.Fatalf("valid=%d corrupt=%d", len(valid), len(corrupt))
			}
			_, rerr := s.Read(corrupt[0])
			var ce *domain.CheckpointCorruptionError
			if !errors.As(rerr, &ce) {
				t.Errorf("expected CheckpointCorruptionError, got %v", rerr)
			}
			if err := s.Remove(corrupt[0]); err != nil {
				t.Errorf("Remove: %v", err)
			}
		})
	}
}

func TestProbe_Unwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := NewStore(filepath.Join(file, "sub")).Probe(); err == nil {
		t.Error("expected probe failure under a regular file")
	}
}

func replaceOnce(s, old, repl string) string {
	for i := 0; i+len(old) <= len(s); i++ {
		if s[i:i+len(old)] == old {
			return s[:i] + repl + s[i+len(old):]
		}
	}
	return s
}
