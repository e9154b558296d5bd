package scoring

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/kailas-cloud/ccdarank/internal/domain/score"
	"github.com/kailas-cloud/ccdarank/internal/domain/section"
	"github.com/kailas-cloud/ccdarank/internal/domain/weight"
)

func TestScore(t *testing.T) {
	const (
		vitals   = "vitals"
		problems = "problems"
		notes    = "notes"
	)
	table := func(w map[string]float64) *weight.Table {
		return &weight.Table{Version: weight.Version, CorpusFingerprint: "c", Weights: w}
	}
	defaults := DefaultCoefficients()

	tests := []struct {
		name    string
		records []section.Record
		table   *weight.Table
		coeffs  Coefficients
		want    score.Breakdown
		total   float64
	}{
		{
			name:    "only unweighted sections keep the bonus terms",
			records: []section.Record{{ID: notes, Entries: 3, CodedElements: 2, NarrativeWords: 4}},
			table:   table(map[string]float64{vitals: 1}),
			coeffs:  defaults,
			want:    score.Breakdown{CombinedBonus: defaults.CombinedBonus},
			total:   defaults.CombinedBonus,
		},
		{
			name:    "narrative without structured content",
			records: []section.Record{{ID: notes, NarrativeWords: 10}},
			table:   table(map[string]float64{notes: 2}),
			coeffs:  defaults,
			want: score.Breakdown{
				NarrativeWords: 20,
				Content:        2 * defaults.NarrativeWords * 10,
				Completeness:   defaults.CompletenessBonus,
			},
			total: 2*defaults.NarrativeWords*10 + defaults.CompletenessBonus,
		},
		{
			name: "coded and narrative coefficients",
			records: []section.Record{
				{ID: problems, CodedElements: 1, NarrativeWords: 8},
				{ID: vitals, Entries: 2, CodedElements: 3},
			},
			table:  table(map[string]float64{vitals: 1.5, problems: 0.5}),
			coeffs: Coefficients{CodedElements: 2, NarrativeWords: 0.5, CompletenessBonus: 4, CombinedBonus: 1},
			want: score.Breakdown{
				Entries:        3,
				CodedElements:  5,
				NarrativeWords: 4,
				Content:        12,
				Completeness:   4,
				CombinedBonus:  1,
			},
			total: 17,
		},
		{
			name:    "half the weighted sections present",
			records: []section.Record{{ID: vitals, Entries: 1}},
			table:   table(map[string]float64{vitals: 1, problems: 1}),
			coeffs:  defaults,
			want: score.Breakdown{
				Entries:      1,
				Content:      defaults.Entries,
				Completeness: defaults.CompletenessBonus / 2,
			},
			total: defaults.Entries + defaults.CompletenessBonus/2,
		},
		{
			name:    "empty table",
			records: []section.Record{{ID: vitals, Entries: 1, NarrativeWords: 1}},
			table:   table(map[string]float64{}),
			coeffs:  defaults,
			want:    score.Breakdown{CombinedBonus: defaults.CombinedBonus},
			total:   defaults.CombinedBonus,
		},
		{
			name:    "no sections",
			records: nil,
			table:   table(map[string]float64{vitals: 1}),
			coeffs:  defaults,
			want:    score.Breakdown{},
			total:   0,
		},
	}
	approx := cmpopts.EquateApprox(0, 1e-9)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Score("doc.xml", tc.records, tc.table, tc.coeffs)

			if diff := cmp.Diff(tc.want, got.Breakdown, approx); diff != "" {
				t.Errorf("breakdown mismatch (-want +got):\n%s", diff)
			}
			if !cmp.Equal(tc.total, got.TotalScore, approx) {
				t.Errorf("total = %v, want %v", got.TotalScore, tc.total)
			}
			if got.DocumentID != "doc.xml" || got.Failed {
				t.Errorf("record = %+v", got)
			}
			if len(got.SectionIDs) != len(tc.records) {
				t.Errorf("section ids = %v", got.SectionIDs)
			}
		})
	}
}
