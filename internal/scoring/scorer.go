package scoring

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
	"github.com/kailas-cloud/ccdarank/internal/domain/section"
	"github.com/kailas-cloud/ccdarank/internal/domain/weight"
)

// Coefficients are the scoring policy constants.
type Coefficients struct {
	Entries           float64 `yaml:"entries"`
	CodedElements     float64 `yaml:"coded_elements"`
	NarrativeWords    float64 `yaml:"narrative_words"`
	CompletenessBonus float64 `yaml:"completeness_bonus"`
	CombinedBonus     float64 `yaml:"combined_bonus"`
}

// DefaultCoefficients returns the calibrated defaults.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		Entries:           0.5,
		CodedElements:     0.3,
		NarrativeWords:    0.1,
		CompletenessBonus: 10.0,
		CombinedBonus:     5.0,
	}
}

// Validate rejects negative or non-finite coefficients.
func (c Coefficients) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"scoring.entries", c.Entries},
		{"scoring.coded_elements", c.CodedElements},
		{"scoring.narrative_words", c.NarrativeWords},
		{"scoring.completeness_bonus", c.CompletenessBonus},
		{"scoring.combined_bonus", c.CombinedBonus},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return domain.NewConfigError(f.name, fmt.Sprintf("must be a non-negative number, got %v", f.v))
		}
	}
	return nil
}

// Score computes the richness score of one parsed document.
//
//	total = Σ weight[s]·(a·entries + b·coded + c·words) + completeness + combined
//
// Sections absent from the table contribute weight 0 to the content term.
func Score(documentID string, records []section.Record, table *weight.Table, c Coefficients) score.Record {
	var (
		b             score.Breakdown
		present       int
		hasNarrative  bool
		hasStructured bool
	)
	// Extract returns records in id order, which keeps float summation deterministic.
	for _, r := range records {
		hasNarrative = hasNarrative || r.HasNarrative()
		hasStructured = hasStructured || r.HasStructured()
		if !table.Has(r.ID) {
			continue
		}
		present++
		w := table.Weight(r.ID)
		b.Entries += w * float64(r.Entries)
		b.CodedElements += w * float64(r.CodedElements)
		b.NarrativeWords += w * float64(r.NarrativeWords)
		b.Content += w * (c.Entries*float64(r.Entries) + c.CodedElements*float64(r.CodedElements) +
			c.NarrativeWords*float64(r.NarrativeWords))
	}
	if n := table.Len(); n > 0 {
		b.Completeness = c.CompletenessBonus * float64(present) / float64(n)
	}
	if hasNarrative && hasStructured {
		b.CombinedBonus = c.CombinedBonus
	}
	return score.Record{
		DocumentID: documentID,
		TotalScore: b.Content + b.Completeness + b.CombinedBonus,
		Breakdown:  b,
		SectionIDs: section.IDs(records),
	}
}
