// Package report holds the corpus-wide structural report produced by the section census.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
)

// Version is the report format version.
const Version = 1

// Stat holds corpus-wide statistics for one section id.
type Stat struct {
	SectionID           string   `json:"section_id"`
	TemplateID          string   `json:"template_id,omitempty"`
	Kind                string   `json:"kind"`
	Titles              []string `json:"titles,omitempty"`
	Frequency           float64  `json:"frequency"`
	DocumentsSeen       int      `json:"documents_seen"`
	TotalOccurrences    int      `json:"total_occurrences"`
	TotalEntries        int      `json:"total_entries"`
	TotalCodedElements  int      `json:"total_coded_elements"`
	TotalNarrativeWords int      `json:"total_narrative_words"`
	ExampleDocuments    []string `json:"example_documents,omitempty"`
}

// AvgEntries returns the mean entry count per occurrence.
func (s Stat) AvgEntries() float64 { return avg(s.TotalEntries, s.TotalOccurrences) }

// AvgCodedElements returns the mean coded element count per occurrence.
func (s Stat) AvgCodedElements() float64 { return avg(s.TotalCodedElements, s.TotalOccurrences) }

// AvgNarrativeWords returns the mean narrative word count per occurrence.
func (s Stat) AvgNarrativeWords() float64 { return avg(s.TotalNarrativeWords, s.TotalOccurrences) }

func avg(total, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// Report is the structural report of one corpus version.
type Report struct {
	Version            int    `json:"version"`
	CorpusFingerprint  string `json:"corpus_fingerprint"`
	DocumentsProcessed int    `json:"documents_processed"`
	DocumentsFailed    int    `json:"documents_failed"`
	Sections           []Stat `json:"sections"`
}

// Lookup returns the stat for a section id.
func (r *Report) Lookup(sectionID string) (Stat, bool) {
	for _, s := range r.Sections {
		if s.SectionID == sectionID {
			return s, true
		}
	}
	return Stat{}, false
}

// Validate checks the frequency invariant for every section.
func (r *Report) Validate() error {
	if r.DocumentsProcessed < 0 {
		return fmt.Errorf("documents_processed must be non-negative, got %d", r.DocumentsProcessed)
	}
	seen := make(map[string]struct{}, len(r.Sections))
	for _, s := range r.Sections {
		if _, dup := seen[s.SectionID]; dup {
			return fmt.Errorf("duplicate section %q", s.SectionID)
		}
		seen[s.SectionID] = struct{}{}
		if math.IsNaN(s.Frequency) || s.Frequency < 0 || s.Frequency > 1 {
			return fmt.Errorf("section %q: frequency %v outside [0,1]", s.SectionID, s.Frequency)
		}
		if s.DocumentsSeen > r.DocumentsProcessed {
			return fmt.Errorf("section %q: seen in %d of %d documents",
				s.SectionID, s.DocumentsSeen, r.DocumentsProcessed)
		}
	}
	return nil
}

// Fingerprint returns the sha256 of the report's canonical JSON encoding.
func (r *Report) Fingerprint() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
