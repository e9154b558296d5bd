// Package score holds per-document richness scores and the ranked result set.
package score

import "sort"

// Failure reasons recorded on failed documents.
const (
	ReasonParse         = "parse"
	ReasonResourceLimit = "resource_limit"
)

// Breakdown holds the per-factor contributions to a total score.
type Breakdown struct {
	// Entries, CodedElements and NarrativeWords are the weighted raw counts summed over sections.
	Entries        float64 `json:"entries"`
	CodedElements  float64 `json:"coded_elements"`
	NarrativeWords float64 `json:"narrative_words"`
	// Content is Σ weight·(a·entries + b·coded + c·words).
	Content       float64 `json:"content"`
	Completeness  float64 `json:"completeness"`
	CombinedBonus float64 `json:"combined_bonus"`
}

// Record is one document's score. Uniquely keyed by DocumentID within a run.
type Record struct {
	DocumentID    string    `json:"document_id"`
	TotalScore    float64   `json:"total_score"`
	Breakdown     Breakdown `json:"breakdown"`
	SectionIDs    []string  `json:"section_ids_present"`
	Failed        bool      `json:"failed,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// NewFailed creates the zero-score record of a document that could not be loaded.
func NewFailed(documentID, reason string) Record {
	return Record{DocumentID: documentID, SectionIDs: []string{}, Failed: true, FailureReason: reason}
}

// Less orders records by total score descending, then document id ascending.
func Less(a, b Record) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore > b.TotalScore
	}
	return a.DocumentID < b.DocumentID
}

// SortRanked sorts records into rank order in place.
func SortRanked(records []Record) {
	sort.SliceStable(records, func(i, j int) bool { return Less(records[i], records[j]) })
}
