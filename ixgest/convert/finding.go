package convert

import (
	"fmt"

	"github.com/team-monumental/monuments-and-memorials-sub000/monument"
)

// Reason identifies what a validation finding is about. Elevation and
// de-duplication work on reasons; text is only produced by Message.
type Reason string

const (
	ReasonMissingTitle         Reason = "missing_title"
	ReasonMissingMaterial      Reason = "missing_material"
	ReasonMissingLocation      Reason = "missing_location"
	ReasonInvalidLatitude      Reason = "invalid_latitude"
	ReasonInvalidLongitude     Reason = "invalid_longitude"
	ReasonInvalidDate          Reason = "invalid_date"
	ReasonInvalidReference     Reason = "invalid_reference"
	ReasonImageMissing         Reason = "image_missing"
	ReasonImageUnreadable      Reason = "image_unreadable"
	ReasonArchiveMissing       Reason = "archive_missing"
	ReasonImageAdjunctOverflow Reason = "image_adjunct_overflow"
)

// Finding is one problem detected while converting or validating a row.
// Field names the canonical field involved, Value carries the offending
// input when there is one.
type Finding struct {
	Reason Reason `json:"reason"`
	Field  string `json:"field,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Message renders the finding for operators.
func (f Finding) Message() string {
	switch f.Reason {
	case ReasonMissingTitle:
		return "Title is required"
	case ReasonMissingMaterial:
		return "At least one Material is required"
	case ReasonMissingLocation:
		return "Address OR Coordinates are required"
	case ReasonInvalidLatitude:
		return "Latitude must be valid"
	case ReasonInvalidLongitude:
		return "Longitude must be valid"
	case ReasonInvalidDate:
		return "Date should be a valid date in the format DD-MM-YYYY or YYYY"
	case ReasonInvalidReference:
		return fmt.Sprintf("All References must be valid URLs (%s)", f.Value)
	case ReasonImageMissing:
		return fmt.Sprintf("Image %s could not be found in the archive, the file may be missing or named incorrectly", f.Value)
	case ReasonImageUnreadable:
		return fmt.Sprintf("Image %s could not be read from the archive", f.Value)
	case ReasonArchiveMissing:
		return "Images must be uploaded in a .zip archive together with the spreadsheet"
	case ReasonImageAdjunctOverflow:
		return fmt.Sprintf("There are more %s than Images", adjunctLabel(f.Field))
	default:
		return string(f.Reason)
	}
}

func adjunctLabel(field string) string {
	switch field {
	case monument.FieldImageReferenceURLs:
		return "Image Reference URLs"
	case monument.FieldImageCaptions:
		return "Image Captions"
	case monument.FieldImageAltTexts:
		return "Image Alt Texts"
	default:
		return field
	}
}

// Messages renders a list of findings in order.
func Messages(findings []Finding) []string {
	if len(findings) == 0 {
		return nil
	}
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Message()
	}
	return out
}
