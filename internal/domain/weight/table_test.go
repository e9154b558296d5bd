package weight

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func validTable() Table {
	return Table{
		Version:           Version,
		MinFrequency:      0.1,
		CorpusFingerprint: "corpus",
		ReportFingerprint: "report",
		Weights:           map[string]float64{"b": 0.5, "a": 1.0},
	}
}

func TestTable_Lookup(t *testing.T) {
	tbl := validTable()
	if tbl.Weight("a") != 1.0 {
		t.Errorf("Weight(a) = %v", tbl.Weight("a"))
	}
	if tbl.Weight("missing") != 0 {
		t.Errorf("absent section must weigh 0, got %v", tbl.Weight("missing"))
	}
	if !tbl.Has("b") || tbl.Has("missing") {
		t.Error("Has() mismatch")
	}
	if diff := cmp.Diff([]string{"a", "b"}, tbl.SectionIDs()); diff != "" {
		t.Errorf("SectionIDs mismatch (-want +got):\n%s", diff)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d", tbl.Len())
	}
}

func TestTable_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Table)
	}{
		{"bad version", func(t *Table) { t.Version = 99 }},
		{"min frequency above one", func(t *Table) { t.MinFrequency = 1.1 }},
		{"min frequency NaN", func(t *Table) { t.MinFrequency = math.NaN() }},
		{"missing corpus fingerprint", func(t *Table) { t.CorpusFingerprint = "" }},
		{"negative weight", func(t *Table) { t.Weights["a"] = -1 }},
		{"infinite weight", func(t *Table) { t.Weights["a"] = math.Inf(1) }},
		{"empty id", func(t *Table) { t.Weights[""] = 1 }},
		{"described but not weighted", func(t *Table) {
			t.Sections = map[string]Section{"zzz": {Kind: "other"}}
		}},
	}
	base := validTable()
	if err := base.Validate(); err != nil {
		t.Fatalf("valid table rejected: %v", err)
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tbl := validTable()
			tc.mutate(&tbl)
			if err := tbl.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTable_Fingerprint(t *testing.T) {
	a := validTable()
	b := validTable()
	fa, err := a.Fingerprint()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fb, _ := b.Fingerprint()
	if fa != fb {
		t.Errorf("equal tables hash differently: %s vs %s", fa, fb)
	}
	b.Weights["a"] = 0.9
	fc, _ := b.Fingerprint()
	if fc == fa {
		t.Error("fingerprint ignores weights")
	}
}
