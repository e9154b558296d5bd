// Package weight holds the section weight table used by scoring.
package weight

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Version is the weight table format version.
const Version = 1

// Table maps section ids to non-negative weights. Immutable after derivation.
// Sections absent from Weights score with weight 0.
type Table struct {
	Version           int                `json:"version"`
	MinFrequency      float64            `json:"min_frequency"`
	CorpusFingerprint string             `json:"corpus_fingerprint"`
	ReportFingerprint string             `json:"report_fingerprint"`
	Weights           map[string]float64 `json:"weights"`

	// Sections describes weighted sections for human review. Scoring ignores it.
	Sections map[string]Section `json:"sections,omitempty"`
}

// Section is the reviewer-facing description of one weighted section.
type Section struct {
	Title     string  `json:"title,omitempty"`
	Kind      string  `json:"kind"`
	Frequency float64 `json:"frequency"`
}

// Weight returns the weight of a section, 0 when absent.
func (t *Table) Weight(sectionID string) float64 {
	return t.Weights[sectionID]
}

// Has reports whether the section survived the frequency threshold.
func (t *Table) Has(sectionID string) bool {
	_, ok := t.Weights[sectionID]
	return ok
}

// Len returns the number of weighted sections.
func (t *Table) Len() int { return len(t.Weights) }

// SectionIDs returns the weighted section ids in ascending order.
func (t *Table) SectionIDs() []string {
	ids := make([]string, 0, len(t.Weights))
	for id := range t.Weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate rejects tables that cannot be trusted for scoring.
func (t *Table) Validate() error {
	if t.Version != Version {
		return fmt.Errorf("unsupported weight table version %d", t.Version)
	}
	if math.IsNaN(t.MinFrequency) || t.MinFrequency < 0 || t.MinFrequency > 1 {
		return fmt.Errorf("min_frequency %v outside [0,1]", t.MinFrequency)
	}
	if t.CorpusFingerprint == "" {
		return fmt.Errorf("corpus_fingerprint is required")
	}
	for id, w := range t.Weights {
		if id == "" {
			return fmt.Errorf("empty section id")
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("section %q: invalid weight %v", id, w)
		}
	}
	for id := range t.Sections {
		if !t.Has(id) {
			return fmt.Errorf("section %q described but not weighted", id)
		}
	}
	return nil
}

// Fingerprint returns the sha256 of the table's canonical JSON encoding.
// encoding/json sorts map keys, so equal tables always hash equally.
func (t *Table) Fingerprint() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal weight table: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
