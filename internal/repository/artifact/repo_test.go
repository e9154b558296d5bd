package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/report"
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
	"github.com/kailas-cloud/ccdarank/internal/domain/weight"
)

func sampleResults() *score.ResultSet {
	return &score.ResultSet{
		RunID: "run-1",
		Records: []score.Record{
			{
				DocumentID: "a.xml", TotalScore: 12.5, SectionIDs: []string{"s1", "s2"},
				Breakdown: score.Breakdown{Entries: 5, Content: 2.5, Completeness: 10},
			},
			{DocumentID: "b.xml", SectionIDs: []string{}},
			score.NewFailed("c.xml", score.ReasonParse),
		},
	}
}

func TestReport_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "section_report.json")
	want := &report.Report{
		Version: report.Version, CorpusFingerprint: "fp", DocumentsProcessed: 2,
		Sections: []report.Stat{{SectionID: "s1", Kind: "vitals", Frequency: 0.5, DocumentsSeen: 1, TotalOccurrences: 2}},
	}
	r := New()
	if err := r.SaveReport(context.Background(), path, want); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	got, err := r.LoadReport(path)
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadReport_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.json")
	_ = os.WriteFile(path, []byte(`{"version":1,"documents_processed":1,"sections":[{"section_id":"s","frequency":1.5}]}`), 0o600)
	if _, err := New().LoadReport(path); err == nil {
		t.Error("expected validation error for frequency > 1")
	}
	if _, err := New().LoadReport(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWeights_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")
	want := &weight.Table{
		Version: weight.Version, MinFrequency: 0.1, CorpusFingerprint: "fp", ReportFingerprint: "rfp",
		Weights: map[string]float64{"b": 0.5, "a": 1.25},
	}
	want.Sections = map[string]weight.Section{"a": {Title: "Vital Signs", Kind: "vitals", Frequency: 0.9}}
	r := New()
	if err := r.SaveWeights(context.Background(), path, want); err != nil {
		t.Fatal(err)
	}
	got, err := r.LoadWeights(path)
	if err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadWeights_Fatal(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.json")
	_ = os.WriteFile(garbage, []byte(`{"weights":`), 0o600)
	negative := filepath.Join(dir, "negative.json")
	_ = os.WriteFile(negative, []byte(`{"version":1,"corpus_fingerprint":"fp","weights":{"s":-2}}`), 0o600)

	for _, path := range []string{garbage, negative, filepath.Join(dir, "missing.json")} {
		_, err := New().LoadWeights(path)
		var fe *domain.FatalConfigError
		if !errors.As(err, &fe) {
			t.Errorf("%s: expected FatalConfigError, got %v", filepath.Base(path), err)
		}
	}
}

func TestResults_DeterministicEncoding(t *testing.T) {
	dir := t.TempDir()
	r := New()
	a, b := filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")
	if err := r.SaveResults(context.Background(), a, sampleResults()); err != nil {
		t.Fatal(err)
	}
	if err := r.SaveResults(context.Background(), b, sampleResults()); err != nil {
		t.Fatal(err)
	}
	da, _ := os.ReadFile(a)
	db, _ := os.ReadFile(b)
	if string(da) != string(db) {
		t.Error("result encoding is not byte-identical")
	}

	got, err := r.LoadResults(a)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sampleResults(), got); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestExportParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.parquet")
	if err := New().ExportParquet(context.Background(), path, sampleResults()); err != nil {
		t.Fatalf("ExportParquet: %v", err)
	}

	rows, err := parquet.ReadFile[resultRow](path)
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	first := rows[0]
	if first.Rank != 1 || first.DocumentID != "a.xml" || first.TotalScore != 12.5 ||
		first.SectionIDs != "s1 s2" || first.SectionCount != 2 || first.RunID != "run-1" {
		t.Errorf("first row = %+v", first)
	}
	if last := rows[2]; last.Rank != 3 || !last.Failed || last.FailureReason != score.ReasonParse {
		t.Errorf("last row = %+v", last)
	}
}

func TestExportParquet_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	if err := New().ExportParquet(context.Background(), path, &score.ResultSet{RunID: "r"}); err != nil {
		t.Fatalf("ExportParquet: %v", err)
	}
	rows, err := parquet.ReadFile[resultRow](path)
	if err != nil || len(rows) != 0 {
		t.Errorf("rows = %v, err = %v", rows, err)
	}
}
