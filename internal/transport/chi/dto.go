package chi

import (
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
	selectionuc "github.com/kailas-cloud/ccdarank/internal/usecase/selection"
)

// errorCode is the machine-readable error code of an API error.
type errorCode string

const (
	codeBadRequest       errorCode = "bad_request"
	codeUnauthorized     errorCode = "unauthorized"
	codeNotFound         errorCode = "not_found"
	codeNoResults        errorCode = "no_results"
	codeInternalError    errorCode = "internal_error"
	codeRouteNotFound    errorCode = "route_not_found"
	codeMethodNotAllowed errorCode = "method_not_allowed"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type breakdownResponse struct {
	Entries        float64 `json:"entries"`
	CodedElements  float64 `json:"coded_elements"`
	NarrativeWords float64 `json:"narrative_words"`
	Content        float64 `json:"content"`
	Completeness   float64 `json:"completeness"`
	CombinedBonus  float64 `json:"combined_bonus"`
}

type resultResponse struct {
	Rank          int               `json:"rank"`
	DocumentID    string            `json:"document_id"`
	TotalScore    float64           `json:"total_score"`
	Breakdown     breakdownResponse `json:"breakdown"`
	SectionIDs    []string          `json:"section_ids_present"`
	Failed        bool              `json:"failed"`
	FailureReason *string           `json:"failure_reason,omitempty"`
}

type resultListResponse struct {
	RunID  string           `json:"run_id"`
	Total  int              `json:"total"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
	Items  []resultResponse `json:"items"`
}

type healthResponse struct {
	Status    string            `json:"status"`
	RunID     string            `json:"run_id,omitempty"`
	Documents int               `json:"documents"`
	Checks    map[string]string `json:"checks"`
}

func breakdownToResponse(b score.Breakdown) breakdownResponse {
	return breakdownResponse{
		Entries:        b.Entries,
		CodedElements:  b.CodedElements,
		NarrativeWords: b.NarrativeWords,
		Content:        b.Content,
		Completeness:   b.Completeness,
		CombinedBonus:  b.CombinedBonus,
	}
}

func resultToResponse(r selectionuc.Ranked) resultResponse {
	ids := r.SectionIDs
	if ids == nil {
		ids = []string{}
	}
	resp := resultResponse{
		Rank:       r.Rank,
		DocumentID: r.DocumentID,
		TotalScore: r.TotalScore,
		Breakdown:  breakdownToResponse(r.Breakdown),
		SectionIDs: ids,
		Failed:     r.Failed,
	}
	if r.FailureReason != "" {
		reason := r.FailureReason
		resp.FailureReason = &reason
	}
	return resp
}

func pageToResponse(p selectionuc.Page) resultListResponse {
	items := make([]resultResponse, len(p.Records))
	for i, r := range p.Records {
		items[i] = resultToResponse(r)
	}
	return resultListResponse{RunID: p.RunID, Total: p.Total, Offset: p.Offset, Limit: p.Limit, Items: items}
}
