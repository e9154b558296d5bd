package score

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ids(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.DocumentID
	}
	return out
}

func TestSortRanked_TieBreak(t *testing.T) {
	records := []Record{
		{DocumentID: "c", TotalScore: 1},
		{DocumentID: "b", TotalScore: 5},
		{DocumentID: "a", TotalScore: 1},
		{DocumentID: "d", TotalScore: 0},
	}
	SortRanked(records)
	if diff := cmp.Diff([]string{"b", "a", "c", "d"}, ids(records)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestNewFailed(t *testing.T) {
	r := NewFailed("x", ReasonParse)
	if !r.Failed || r.TotalScore != 0 || r.FailureReason != ReasonParse {
		t.Errorf("NewFailed = %+v", r)
	}
	if r.SectionIDs == nil {
		t.Error("SectionIDs must be non-nil for stable JSON")
	}
}

func TestResultSet_Page(t *testing.T) {
	rs := ResultSet{Records: []Record{{DocumentID: "a"}, {DocumentID: "b"}, {DocumentID: "c"}}}
	tests := []struct {
		name          string
		offset, limit int
		want          []string
	}{
		{"all", 0, 0, []string{"a", "b", "c"}},
		{"first two", 0, 2, []string{"a", "b"}},
		{"offset", 1, 1, []string{"b"}},
		{"limit past end", 2, 10, []string{"c"}},
		{"offset past end", 5, 1, []string{}},
		{"negative offset", -1, 1, []string{"a"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, ids(rs.Page(tc.offset, tc.limit))); diff != "" {
				t.Errorf("Page mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if got := len(rs.Top(-1)); got != 3 {
		t.Errorf("Top(-1) = %d records, want 3", got)
	}
}

func TestResultSet_Find(t *testing.T) {
	rs := ResultSet{Records: []Record{{DocumentID: "a"}, {DocumentID: "b", Failed: true}}}
	rec, rank, ok := rs.Find("b")
	if !ok || rank != 2 || rec.DocumentID != "b" {
		t.Errorf("Find(b) = %+v, %d, %v", rec, rank, ok)
	}
	if _, _, ok := rs.Find("zzz"); ok {
		t.Error("Find(zzz) should miss")
	}
	if rs.FailedCount() != 1 {
		t.Errorf("FailedCount() = %d", rs.FailedCount())
	}
}
