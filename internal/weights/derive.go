// Package weights derives the section weight table from a structural report.
package weights

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/report"
	"github.com/kailas-cloud/ccdarank/internal/domain/weight"
)

// Derive maps every section with frequency >= minFrequency to a weight.
// Pure and deterministic: no I/O, iteration order does not affect the result.
func Derive(rep *report.Report, minFrequency float64, p Policy) (*weight.Table, error) {
	if math.IsNaN(minFrequency) || minFrequency < 0 || minFrequency > 1 {
		return nil, domain.NewConfigError("min_frequency", fmt.Sprintf("must be within [0,1], got %v", minFrequency))
	}
	if rep == nil {
		return nil, domain.NewConfigError("report", "is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := rep.Validate(); err != nil {
		return nil, fmt.Errorf("structural report: %w", err)
	}
	reportFP, err := rep.Fingerprint()
	if err != nil {
		return nil, err
	}

	t := &weight.Table{
		Version:           weight.Version,
		MinFrequency:      minFrequency,
		CorpusFingerprint: rep.CorpusFingerprint,
		ReportFingerprint: reportFP,
		Weights:           make(map[string]float64, len(rep.Sections)),
		Sections:          make(map[string]weight.Section, len(rep.Sections)),
	}
	for _, s := range rep.Sections {
		if s.Frequency < minFrequency {
			continue
		}
		t.Weights[s.SectionID] = Weight(s, p)
		t.Sections[s.SectionID] = describe(s)
	}
	return t, nil
}

// Weight computes one section's weight: multiplier × (base + gain·f + tier(f) + density).
// Non-decreasing in frequency for a fixed multiplier.
func Weight(s report.Stat, p Policy) float64 {
	density := p.EntryDensity*s.AvgEntries() + p.CodedDensity*s.AvgCodedElements() + p.WordDensity*s.AvgNarrativeWords()
	if density > p.DensityCap {
		density = p.DensityCap
	}
	return p.Multiplier(s.SectionID, s.Kind) * (p.Base + p.Gain*s.Frequency + p.Tier(s.Frequency) + density)
}

// describe keeps the first title seen in the corpus.
func describe(s report.Stat) weight.Section {
	d := weight.Section{Kind: s.Kind, Frequency: s.Frequency}
	if len(s.Titles) > 0 {
		d.Title = s.Titles[0]
	}
	return d
}
