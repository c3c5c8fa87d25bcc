package convert

import (
	"encoding/json"

	"github.com/team-monumental/monuments-and-memorials-sub000/monument"
)

// ConversionResult is the outcome of converting one spreadsheet row. It owns
// its Suggestion; a row with any error is excluded from ingestion.
//
// Errors and Warnings never contain the same finding.
type ConversionResult struct {
	Row        int
	Cells      []string
	Suggestion *monument.Suggestion
	Errors     []Finding
	Warnings   []Finding

	// Adjunct lists from the richer image columns, attached to images by index.
	ImageReferenceURLs []string
	ImageCaptions      []string
	ImageAltTexts      []string

	imageNames   []string
	rawLatitude  string
	rawLongitude string
}

func newResult(row int, cells []string) *ConversionResult {
	raw := make([]string, len(cells))
	copy(raw, cells)
	return &ConversionResult{
		Row:        row,
		Cells:      raw,
		Suggestion: &monument.Suggestion{},
	}
}

// Valid reports whether the row has no blocking errors.
func (r *ConversionResult) Valid() bool {
	return len(r.Errors) == 0
}

// Materials returns the material names collected for the row.
func (r *ConversionResult) Materials() []string { return r.Suggestion.Materials }

// Tags returns the tag names collected for the row.
func (r *ConversionResult) Tags() []string { return r.Suggestion.Tags }

// References returns the reference URLs collected for the row.
func (r *ConversionResult) References() []string { return r.Suggestion.References }

// Images returns the resolved image blobs in submission order.
func (r *ConversionResult) Images() [][]byte {
	out := make([][]byte, len(r.Suggestion.Images))
	for i, img := range r.Suggestion.Images {
		out[i] = img.Data
	}
	return out
}

// AddError records a blocking finding. A matching warning is removed so the
// finding is only reported once.
func (r *ConversionResult) AddError(f Finding) {
	r.Warnings = remove(r.Warnings, f)
	if !contains(r.Errors, f) {
		r.Errors = append(r.Errors, f)
	}
}

// AddWarning records an advisory finding unless it is already an error.
func (r *ConversionResult) AddWarning(f Finding) {
	if contains(r.Errors, f) || contains(r.Warnings, f) {
		return
	}
	r.Warnings = append(r.Warnings, f)
}

// Elevate moves every warning with one of reasons into the error list,
// preserving order. It reports whether anything moved.
func (r *ConversionResult) Elevate(reasons ...Reason) bool {
	moved := false
	kept := r.Warnings[:0]
	for _, w := range r.Warnings {
		if hasReason(reasons, w.Reason) {
			if !contains(r.Errors, w) {
				r.Errors = append(r.Errors, w)
			}
			moved = true
			continue
		}
		kept = append(kept, w)
	}
	r.Warnings = kept
	return moved
}

// HasError reports whether an error with any of reasons is present.
func (r *ConversionResult) HasError(reasons ...Reason) bool {
	for _, e := range r.Errors {
		if hasReason(reasons, e.Reason) {
			return true
		}
	}
	return false
}

// HasWarning reports whether a warning with any of reasons is present.
func (r *ConversionResult) HasWarning(reasons ...Reason) bool {
	for _, w := range r.Warnings {
		if hasReason(reasons, w.Reason) {
			return true
		}
	}
	return false
}

// ErrorMessages renders the row's errors.
func (r *ConversionResult) ErrorMessages() []string { return Messages(r.Errors) }

// WarningMessages renders the row's warnings.
func (r *ConversionResult) WarningMessages() []string { return Messages(r.Warnings) }

type resultJSON struct {
	Row          int                  `json:"row"`
	Cells        []string             `json:"cells"`
	Suggestion   *monument.Suggestion `json:"suggestion"`
	Errors       []string             `json:"errors"`
	Warnings     []string             `json:"warnings"`
	ErrorCodes   []Reason             `json:"error_codes,omitempty"`
	WarningCodes []Reason             `json:"warning_codes,omitempty"`
}

// MarshalJSON renders findings as operator-facing text alongside their codes.
func (r *ConversionResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Row:          r.Row,
		Cells:        r.Cells,
		Suggestion:   r.Suggestion,
		Errors:       nonNil(r.ErrorMessages()),
		Warnings:     nonNil(r.WarningMessages()),
		ErrorCodes:   reasons(r.Errors),
		WarningCodes: reasons(r.Warnings),
	})
}

func nonNil(messages []string) []string {
	if messages == nil {
		return []string{}
	}
	return messages
}

func reasons(findings []Finding) []Reason {
	if len(findings) == 0 {
		return nil
	}
	out := make([]Reason, len(findings))
	for i, f := range findings {
		out[i] = f.Reason
	}
	return out
}

func hasReason(reasons []Reason, reason Reason) bool {
	for _, r := range reasons {
		if r == reason {
			return true
		}
	}
	return false
}

func contains(findings []Finding, f Finding) bool {
	for _, existing := range findings {
		if existing == f {
			return true
		}
	}
	return false
}

func remove(findings []Finding, f Finding) []Finding {
	kept := findings[:0]
	for _, existing := range findings {
		if existing != f {
			kept = append(kept, existing)
		}
	}
	return kept
}
