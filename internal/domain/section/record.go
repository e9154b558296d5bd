package section

import "sort"

// Record holds one section's counts within one document, summed over every occurrence of that section.
// Produced fresh per pass and never mutated once returned by Extract.
type Record struct {
	ID             string `json:"section_id"`
	TemplateID     string `json:"template_id,omitempty"`
	Title          string `json:"title,omitempty"`
	Kind           string `json:"kind"`
	Occurrences    int    `json:"occurrences"`
	Entries        int    `json:"entries"`
	CodedElements  int    `json:"coded_elements"`
	NarrativeWords int    `json:"narrative_words"`
}

// HasNarrative reports whether the section carries narrative text.
func (r Record) HasNarrative() bool { return r.NarrativeWords > 0 }

// HasStructured reports whether the section carries structured entries.
func (r Record) HasStructured() bool { return r.Entries > 0 }

// IDs returns the sorted section ids of records.
func IDs(records []Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	sort.Strings(ids)
	return ids
}
