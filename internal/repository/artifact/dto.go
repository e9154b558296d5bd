package artifact

import (
	"strings"

	"github.com/kailas-cloud/ccdarank/internal/domain/score"
)

// resultRow is the columnar representation of one ranked record.
type resultRow struct {
	Rank           int64   `parquet:"rank"`
	RunID          string  `parquet:"run_id,dict"`
	DocumentID     string  `parquet:"document_id"`
	TotalScore     float64 `parquet:"total_score"`
	Content        float64 `parquet:"content"`
	Completeness   float64 `parquet:"completeness"`
	CombinedBonus  float64 `parquet:"combined_bonus"`
	Entries        float64 `parquet:"entries"`
	CodedElements  float64 `parquet:"coded_elements"`
	NarrativeWords float64 `parquet:"narrative_words"`
	SectionCount   int32   `parquet:"section_count"`
	SectionIDs     string  `parquet:"section_ids"`
	Failed         bool    `parquet:"failed"`
	FailureReason  string  `parquet:"failure_reason,optional"`
}

// resultRows flattens a result set; section ids are joined with spaces.
func resultRows(rs *score.ResultSet) []resultRow {
	rows := make([]resultRow, len(rs.Records))
	for i, rec := range rs.Records {
		rows[i] = resultRow{
			Rank:           int64(i + 1),
			RunID:          rs.RunID,
			DocumentID:     rec.DocumentID,
			TotalScore:     rec.TotalScore,
			Content:        rec.Breakdown.Content,
			Completeness:   rec.Breakdown.Completeness,
			CombinedBonus:  rec.Breakdown.CombinedBonus,
			Entries:        rec.Breakdown.Entries,
			CodedElements:  rec.Breakdown.CodedElements,
			NarrativeWords: rec.Breakdown.NarrativeWords,
			SectionCount:   int32(len(rec.SectionIDs)),
			SectionIDs:     strings.Join(rec.SectionIDs, " "),
			Failed:         rec.Failed,
			FailureReason:  rec.FailureReason,
		}
	}
	return rows
}
