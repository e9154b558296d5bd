package score

// ResultSet is the merged, de-duplicated, rank-ordered score table of one run.
type ResultSet struct {
	RunID   string   `json:"run_id"`
	Records []Record `json:"records"`
}

// Len returns the number of ranked documents.
func (r *ResultSet) Len() int { return len(r.Records) }

// Top returns the first n records in rank order. n <= 0 or n > Len returns all.
func (r *ResultSet) Top(n int) []Record {
	return r.Page(0, n)
}

// Page returns up to limit records starting at offset. limit <= 0 means no limit.
func (r *ResultSet) Page(offset, limit int) []Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(r.Records) {
		return []Record{}
	}
	end := len(r.Records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return r.Records[offset:end]
}

// Find returns the record and 1-based rank of a document.
func (r *ResultSet) Find(documentID string) (Record, int, bool) {
	for i, rec := range r.Records {
		if rec.DocumentID == documentID {
			return rec, i + 1, true
		}
	}
	return Record{}, 0, false
}

// FailedCount returns the number of records flagged failed.
func (r *ResultSet) FailedCount() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Failed {
			n++
		}
	}
	return n
}
