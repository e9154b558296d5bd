package section

// Kind is a tagged section variant. Sections are classified by their identifying template id, never by
// position in the document.
type Kind interface {
	Name() string
	Matches(templateID string) bool
}

// Kind names.
const (
	KindNarrative      = "narrative"
	KindClinical       = "clinical"
	KindVitals         = "vitals"
	KindAdministrative = "administrative"
	KindOther          = "other"
)

type templateKind struct {
	name      string
	templates map[string]struct{}
}

func newTemplateKind(name string, templateIDs ...string) templateKind {
	set := make(map[string]struct{}, len(templateIDs))
	for _, id := range templateIDs {
		set[id] = struct{}{}
	}
	return templateKind{name: name, templates: set}
}

func (k templateKind) Name() string { return k.name }

func (k templateKind) Matches(templateID string) bool {
	_, ok := k.templates[templateID]
	return ok
}

// C-CDA R2.1 section templates (both "entries optional" and "entries required" variants).
var (
	// Narrative holds free-text clinical reasoning: assessment, plan, history of present illness, notes.
	Narrative Kind = newTemplateKind(KindNarrative,
		"2.16.840.1.113883.10.20.22.2.8",     // Assessment
		"2.16.840.1.113883.10.20.22.2.9",     // Assessment and Plan
		"2.16.840.1.113883.10.20.22.2.10",    // Plan of Treatment
		"2.16.840.1.113883.10.20.22.2.12",    // Reason for Visit
		"2.16.840.1.113883.10.20.22.2.65",    // Notes
		"1.3.6.1.4.1.19376.1.5.3.1.3.4",      // History of Present Illness
		"1.3.6.1.4.1.19376.1.5.3.1.3.5",      // Hospital Course
		"1.3.6.1.4.1.19376.1.5.3.1.1.13.2.1", // Chief Complaint
		"2.16.840.1.113883.10.20.22.2.13",    // Chief Complaint and Reason for Visit
		"2.16.840.1.113883.10.20.22.2.24",    // Discharge Diagnosis
		"2.16.840.1.113883.10.20.22.2.20",    // Past Medical History
		"1.3.6.1.4.1.19376.1.5.3.1.3.18",     // Review of Systems
		"2.16.840.1.113883.10.20.2.10",       // Physical Exam
		"2.16.840.1.113883.10.20.22.2.45",    // Instructions
	)

	// Clinical holds coded clinical lists.
	Clinical Kind = newTemplateKind(KindClinical,
		"2.16.840.1.113883.10.20.22.2.1",    // Medications
		"2.16.840.1.113883.10.20.22.2.1.1",  // Medications (entries required)
		"2.16.840.1.113883.10.20.22.2.2",    // Immunizations
		"2.16.840.1.113883.10.20.22.2.2.1",  // Immunizations (entries required)
		"2.16.840.1.113883.10.20.22.2.3",    // Results
		"2.16.840.1.113883.10.20.22.2.3.1",  // Results (entries required)
		"2.16.840.1.113883.10.20.22.2.5",    // Problems
		"2.16.840.1.113883.10.20.22.2.5.1",  // Problems (entries required)
		"2.16.840.1.113883.10.20.22.2.6",    // Allergies
		"2.16.840.1.113883.10.20.22.2.6.1",  // Allergies (entries required)
		"2.16.840.1.113883.10.20.22.2.7",    // Procedures
		"2.16.840.1.113883.10.20.22.2.7.1",  // Procedures (entries required)
		"2.16.840.1.113883.10.20.22.2.22",   // Encounters
		"2.16.840.1.113883.10.20.22.2.22.1", // Encounters (entries required)
		"2.16.840.1.113883.10.20.22.2.15",   // Family History
		"2.16.840.1.113883.10.20.22.2.17",   // Social History
		"2.16.840.1.113883.10.20.22.2.23",   // Medical Equipment
	)

	// Vitals holds vital sign observations.
	Vitals Kind = newTemplateKind(KindVitals,
		"2.16.840.1.113883.10.20.22.2.4", "2.16.840.1.113883.10.20.22.2.4.1",
	)

	// Administrative holds payer and directive sections.
	Administrative Kind = newTemplateKind(KindAdministrative,
		"2.16.840.1.113883.10.20.22.2.18",   // Payers
		"2.16.840.1.113883.10.20.22.2.21",   // Advance Directives
		"2.16.840.1.113883.10.20.22.2.21.1", // Advance Directives (entries required)
		"2.16.840.1.113883.10.20.22.2.14",   // Functional Status
		"2.16.840.1.113883.10.20.22.2.56",   // Mental Status
	)
)

// Classifier resolves a section id to its Kind. First match wins; unmatched ids are KindOther.
type Classifier struct {
	kinds []Kind
}

// NewClassifier creates a Classifier over the given kinds, in priority order.
func NewClassifier(kinds ...Kind) *Classifier {
	return &Classifier{kinds: kinds}
}

// DefaultClassifier covers the C-CDA section templates above.
func DefaultClassifier() *Classifier {
	return NewClassifier(Narrative, Clinical, Vitals, Administrative)
}

// Classify returns the kind name for a template id.
func (c *Classifier) Classify(templateID string) string {
	if c == nil || templateID == "" {
		return KindOther
	}
	for _, k := range c.kinds {
		if k.Matches(templateID) {
			return k.Name()
		}
	}
	return KindOther
}
