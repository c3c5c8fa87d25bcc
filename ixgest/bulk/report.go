package bulk

import (
	"encoding/json"

	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/convert"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/ingest"
)

// Report holds one ConversionResult per data row, in row order. Row
// numbers start at 1 for the first row after the header.
type Report struct {
	Results []*convert.ConversionResult
}

// Len returns the number of data rows.
func (r *Report) Len() int { return len(r.Results) }

// Row returns the result for 1-based row n.
func (r *Report) Row(n int) (*convert.ConversionResult, bool) {
	if n < 1 || n > len(r.Results) {
		return nil, false
	}
	return r.Results[n-1], true
}

// Valid returns the rows without errors.
func (r *Report) Valid() []*convert.ConversionResult {
	return r.partition(true)
}

// Invalid returns the rows with at least one error.
func (r *Report) Invalid() []*convert.ConversionResult {
	return r.partition(false)
}

func (r *Report) partition(valid bool) []*convert.ConversionResult {
	out := []*convert.ConversionResult{}
	for _, res := range r.Results {
		if res.Valid() == valid {
			out = append(out, res)
		}
	}
	return out
}

// Accepted returns the valid rows as ingestion items.
func (r *Report) Accepted() []ingest.Item {
	valid := r.Valid()
	items := make([]ingest.Item, len(valid))
	for i, res := range valid {
		items[i] = ingest.Item{Row: res.Row, Suggestion: res.Suggestion}
	}
	return items
}

type reportJSON struct {
	Total        int                         `json:"total"`
	ValidCount   int                         `json:"valid_count"`
	InvalidCount int                         `json:"invalid_count"`
	Valid        []*convert.ConversionResult `json:"valid"`
	Invalid      []*convert.ConversionResult `json:"invalid"`
}

// MarshalJSON renders the valid and invalid views.
func (r *Report) MarshalJSON() ([]byte, error) {
	valid, invalid := r.Valid(), r.Invalid()
	return json.Marshal(reportJSON{
		Total:        len(r.Results),
		ValidCount:   len(valid),
		InvalidCount: len(invalid),
		Valid:        valid,
		Invalid:      invalid,
	})
}
