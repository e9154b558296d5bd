package ranking

import "github.com/kailas-cloud/ccdarank/internal/domain/score"

// storedRecord is the JSON shape of one score record inside the records hash.
type storedRecord struct {
	DocumentID    string          `json:"id"`
	TotalScore    float64         `json:"score"`
	Breakdown     score.Breakdown `json:"breakdown"`
	SectionIDs    []string        `json:"sections"`
	Failed        bool            `json:"failed,omitempty"`
	FailureReason string          `json:"reason,omitempty"`
}

func recordDTO(r score.Record) storedRecord {
	ids := r.SectionIDs
	if ids == nil {
		ids = []string{}
	}
	return storedRecord{
		DocumentID:    r.DocumentID,
		TotalScore:    r.TotalScore,
		Breakdown:     r.Breakdown,
		SectionIDs:    ids,
		Failed:        r.Failed,
		FailureReason: r.FailureReason,
	}
}

func (s storedRecord) toDomain() score.Record {
	return score.Record{
		DocumentID:    s.DocumentID,
		TotalScore:    s.TotalScore,
		Breakdown:     s.Breakdown,
		SectionIDs:    s.SectionIDs,
		Failed:        s.Failed,
		FailureReason: s.FailureReason,
	}
}
