package ingest

import "github.com/team-monumental/monuments-and-memorials-sub000/monument"

// RowOutcome records what happened to one submitted row.
type RowOutcome struct {
	Row            int    `json:"row"`
	Title          string `json:"title"`
	RecordID       int64  `json:"record_id,omitempty"`
	Inserted       bool   `json:"inserted"`
	Error          string `json:"error,omitempty"`
	ImagesAttached int    `json:"images_attached"`
	// ImageFailures names every image that was not attached.
	ImageFailures []string `json:"image_failures,omitempty"`
	// UnrecordedImages holds URLs of objects stored for this row whose
	// image record could not be written.
	UnrecordedImages []string       `json:"unrecorded_images,omitempty"`
	Duplicates       []monument.Ref `json:"duplicates,omitempty"`
	Notes            []string       `json:"notes,omitempty"`
}

// Result is the final value of a completed ingestion job. Rows follow
// submission order. Advisories has one entry per row with failed uploads.
type Result struct {
	Total          int          `json:"total"`
	Inserted       int          `json:"inserted"`
	Failed         int          `json:"failed"`
	ImagesAttached int          `json:"images_attached"`
	Rows           []RowOutcome `json:"rows"`
	Advisories     []string     `json:"advisories,omitempty"`
}

func (r *Result) add(o RowOutcome) {
	r.Rows = append(r.Rows, o)
	if o.Inserted {
		r.Inserted++
	} else {
		r.Failed++
	}
	r.ImagesAttached += o.ImagesAttached
	if len(o.ImageFailures) > 0 {
		r.Advisories = append(r.Advisories, uploadAdvisory(o))
	}
}

// PartialUploads returns the rows inserted with at least one failed image.
func (r *Result) PartialUploads() []RowOutcome {
	var rows []RowOutcome
	for _, o := range r.Rows {
		if o.Inserted && len(o.ImageFailures) > 0 {
			rows = append(rows, o)
		}
	}
	return rows
}
