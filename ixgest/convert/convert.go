// Package convert turns decoded spreadsheet rows into monument suggestions
// and validates them. Problems are collected per row as findings; nothing
// in this package returns an error for bad input.
package convert

import (
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/archive"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/tabular"
	"github.com/team-monumental/monuments-and-memorials-sub000/monument"
)

// Converter converts rows against a resolved header. The zero value is
// usable; Now defaults to time.Now.
type Converter struct {
	// Now dates contributions.
	Now    func() time.Time
	Logger *zap.SugaredLogger
}

// NewConverter returns a converter logging under logger.
func NewConverter(logger *zap.SugaredLogger) *Converter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Converter{Now: time.Now, Logger: logger.Named("convert")}
}

func (c *Converter) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// ConvertRow converts one row and validates it. row is the 1-based data row
// number reported back to the uploader. ar may be nil when the upload was a
// bare spreadsheet.
func (c *Converter) ConvertRow(row int, cells []string, fields tabular.FieldMap, ar archive.Extractor) *ConversionResult {
	r := newResult(row, cells)
	s := r.Suggestion

	for i, raw := range cells {
		field, ok := fields[i]
		if !ok {
			continue
		}
		value := tabular.StripQuotes(raw)
		if value == "" {
			continue
		}

		switch field {
		case monument.FieldContributions:
			if !hasContributor(s.Contributions, value) {
				s.Contributions = append(s.Contributions, monument.Contribution{Name: value, Date: c.now()})
			}
		case monument.FieldArtist:
			s.Artist = value
		case monument.FieldTitle:
			s.Title = value
		case monument.FieldDescription:
			s.Description = value
		case monument.FieldDate:
			c.applyDate(r, value)
		case monument.FieldMaterials:
			s.Materials = splitNames(value, s.Materials)
		case monument.FieldTags:
			s.Tags = splitNames(value, s.Tags)
		case monument.FieldInscription:
			s.Inscription = value
		case monument.FieldLatitude:
			r.rawLatitude = value
			s.Latitude = parseCoordinate(r, value, ReasonInvalidLatitude, field)
		case monument.FieldLongitude:
			r.rawLongitude = value
			s.Longitude = parseCoordinate(r, value, ReasonInvalidLongitude, field)
		case monument.FieldCity:
			s.City = value
		case monument.FieldState:
			s.State = value
		case monument.FieldAddress:
			s.Address = value
		case monument.FieldReferences:
			s.References = append(s.References, value)
		case monument.FieldImages:
			r.imageNames = append(r.imageNames, value)
			c.resolveImage(r, value, ar)
		case monument.FieldImageReferenceURLs:
			r.ImageReferenceURLs = append(r.ImageReferenceURLs, value)
		case monument.FieldImageCaptions:
			r.ImageCaptions = append(r.ImageCaptions, value)
		case monument.FieldImageAltTexts:
			r.ImageAltTexts = append(r.ImageAltTexts, value)
		}
	}

	attachAdjuncts(r)
	Validate(r)
	return r
}

func (c *Converter) applyDate(r *ConversionResult, value string) {
	s := r.Suggestion
	s.DateText = value
	parts, ok := ParseDate(value)
	if !ok {
		r.AddWarning(Finding{Reason: ReasonInvalidDate, Field: monument.FieldDate, Value: value})
		return
	}
	date := parts.Date
	s.Year, s.Month, s.Day, s.Date = parts.Year, parts.Month, parts.Day, &date
}

func parseCoordinate(r *ConversionResult, value string, reason Reason, field string) *float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		r.AddWarning(Finding{Reason: reason, Field: field, Value: value})
		return nil
	}
	return &v
}

func (c *Converter) resolveImage(r *ConversionResult, name string, ar archive.Extractor) {
	if ar == nil {
		r.AddWarning(Finding{Reason: ReasonArchiveMissing, Field: monument.FieldImages})
		return
	}
	if !ar.HasEntry(name) {
		r.AddWarning(Finding{Reason: ReasonImageMissing, Field: monument.FieldImages, Value: name})
		return
	}
	data, err := ar.ReadEntry(name)
	if err == nil {
		var contentType string
		contentType, err = sniffImage(data)
		if err == nil {
			r.Suggestion.Images = append(r.Suggestion.Images, monument.Image{
				Name:        name,
				Data:        data,
				ContentType: contentType,
			})
			return
		}
	}
	c.Logger.Debugw("Image entry rejected",
		"row", r.Row,
		"entry", name,
		"error", errors.Wrapf(err, "image %s", name))
	r.AddError(Finding{Reason: ReasonImageUnreadable, Field: monument.FieldImages, Value: name})
}

// attachAdjuncts copies reference URLs, captions and alt texts onto the
// images named in the same position. Positions whose image did not resolve
// are skipped.
func attachAdjuncts(r *ConversionResult) {
	images := r.Suggestion.Images
	byName := make(map[string]int, len(images))
	for i, img := range images {
		byName[img.Name] = i
	}
	for pos, name := range r.imageNames {
		i, ok := byName[name]
		if !ok {
			continue
		}
		if pos < len(r.ImageReferenceURLs) {
			images[i].ReferenceURL = r.ImageReferenceURLs[pos]
		}
		if pos < len(r.ImageCaptions) {
			images[i].Caption = r.ImageCaptions[pos]
		}
		if pos < len(r.ImageAltTexts) {
			images[i].AltText = r.ImageAltTexts[pos]
		}
	}
}

func hasContributor(contributions []monument.Contribution, name string) bool {
	for _, c := range contributions {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
