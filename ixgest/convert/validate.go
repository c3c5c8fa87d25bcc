package convert

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/team-monumental/monuments-and-memorials-sub000/monument"
)

// Up to six decimal places, bounded to the valid ranges.
var (
	latitudePattern  = regexp.MustCompile(`^[-+]?(?:90(?:\.0{1,6})?|[1-8]?\d(?:\.\d{1,6})?)$`)
	longitudePattern = regexp.MustCompile(`^[-+]?(?:180(?:\.0{1,6})?|(?:1[0-7]\d|[1-9]?\d)(?:\.\d{1,6})?)$`)
)

// Validate applies the blocking rules to a converted row. It is safe to
// call more than once on the same result.
func Validate(r *ConversionResult) {
	s := r.Suggestion

	if strings.TrimSpace(s.Title) == "" {
		r.AddError(Finding{Reason: ReasonMissingTitle, Field: monument.FieldTitle})
	}
	if len(s.Materials) == 0 {
		r.AddError(Finding{Reason: ReasonMissingMaterial, Field: monument.FieldMaterials})
	}

	if !s.HasAddress() {
		validateCoordinates(r)
	}

	for _, ref := range s.References {
		if !isURL(ref) {
			r.AddError(Finding{Reason: ReasonInvalidReference, Field: monument.FieldReferences, Value: ref})
			break
		}
	}

	images := len(r.imageNames)
	checkAdjunct(r, monument.FieldImageReferenceURLs, len(r.ImageReferenceURLs), images)
	checkAdjunct(r, monument.FieldImageCaptions, len(r.ImageCaptions), images)
	checkAdjunct(r, monument.FieldImageAltTexts, len(r.ImageAltTexts), images)
}

// validateCoordinates runs only when no address was given. A malformed
// coordinate explains a missing location better than the generic message.
func validateCoordinates(r *ConversionResult) {
	s := r.Suggestion
	if !s.HasCoordinates() {
		elevated := r.Elevate(ReasonInvalidLatitude, ReasonInvalidLongitude)
		if !elevated && !r.HasError(ReasonInvalidLatitude, ReasonInvalidLongitude) {
			r.AddError(Finding{Reason: ReasonMissingLocation})
		}
	}
	if s.Latitude != nil && !latitudePattern.MatchString(r.rawLatitude) {
		r.AddError(Finding{Reason: ReasonInvalidLatitude, Field: monument.FieldLatitude, Value: r.rawLatitude})
	}
	if s.Longitude != nil && !longitudePattern.MatchString(r.rawLongitude) {
		r.AddError(Finding{Reason: ReasonInvalidLongitude, Field: monument.FieldLongitude, Value: r.rawLongitude})
	}
}

func checkAdjunct(r *ConversionResult, field string, count, images int) {
	if count > images {
		r.AddError(Finding{Reason: ReasonImageAdjunctOverflow, Field: field})
	}
}

func isURL(s string) bool {
	if strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
