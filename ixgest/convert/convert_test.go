package convert

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/archive"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/tabular"
	"github.com/team-monumental/monuments-and-memorials-sub000/monument"
)

type memArchive map[string][]byte

func (m memArchive) HasEntry(name string) bool {
	_, ok := m[name]
	return ok
}

func (m memArchive) ReadEntry(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrEntryMissing, "%s", name)
	}
	return data, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var fixedNow = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

func newTestConverter(t *testing.T) *Converter {
	c := NewConverter(zaptest.NewLogger(t).Sugar())
	c.Now = func() time.Time { return fixedNow }
	return c
}

func convert(t *testing.T, header, row string, ar memArchive) *ConversionResult {
	t.Helper()
	fields := tabular.ResolveFields(tabular.SplitLine(header, ','), nil)
	var ex archive.Extractor
	if ar != nil {
		ex = ar
	}
	return newTestConverter(t).ConvertRow(1, tabular.SplitLine(row, ','), fields, ex)
}

func TestConvertRowComplete(t *testing.T) {
	header := "title,artist,date,materials,tags,address,city,state,references,contributions,description,inscription"
	row := `Lincoln Memorial,Daniel Chester French,30-05-1922,"marble, limestone",history,2 Lincoln Memorial Cir NW,Washington,DC,https://www.nps.gov/linc,Jane Doe,A memorial,In this temple`

	r := convert(t, header, row, nil)

	require.True(t, r.Valid(), "errors: %v", r.ErrorMessages())
	assert.Empty(t, r.Warnings)

	s := r.Suggestion
	assert.Equal(t, "Lincoln Memorial", s.Title)
	assert.Equal(t, "Daniel Chester French", s.Artist)
	assert.Equal(t, []string{"Marble", "Limestone"}, r.Materials())
	assert.Equal(t, []string{"History"}, r.Tags())
	assert.Equal(t, "2 Lincoln Memorial Cir NW", s.Address)
	assert.Equal(t, "Washington", s.City)
	assert.Equal(t, "DC", s.State)
	assert.Equal(t, []string{"https://www.nps.gov/linc"}, r.References())
	assert.Equal(t, "A memorial", s.Description)
	assert.Equal(t, "In this temple", s.Inscription)
	require.Len(t, s.Contributions, 1)
	assert.Equal(t, monument.Contribution{Name: "Jane Doe", Date: fixedNow}, s.Contributions[0])

	assert.Equal(t, "1922", s.Year)
	assert.Equal(t, "4", s.Month)
	assert.Equal(t, "30", s.Day)
	require.NotNil(t, s.Date)
	assert.Equal(t, time.Date(1922, time.May, 30, 0, 0, 0, 0, time.UTC), *s.Date)
}

func TestConvertRowEmptyRow(t *testing.T) {
	r := convert(t, "title,materials,address,latitude,longitude", ",,,,", nil)

	assert.Equal(t, []string{
		"Title is required",
		"At least one Material is required",
		"Address OR Coordinates are required",
	}, r.ErrorMessages())
	assert.Empty(t, r.Warnings)
}

func TestConvertRowLatitudeOutOfRange(t *testing.T) {
	r := convert(t, "title,materials,latitude,longitude", "Obelisk,granite,190,10", nil)

	assert.Equal(t, []string{"Latitude must be valid"}, r.ErrorMessages())
	assert.NotContains(t, r.ErrorMessages(), "Address OR Coordinates are required")
}

func TestConvertRowUnparseableCoordinateIsElevated(t *testing.T) {
	r := convert(t, "title,materials,latitude,longitude", "Obelisk,granite,north,10", nil)

	assert.Equal(t, []Finding{{Reason: ReasonInvalidLatitude, Field: monument.FieldLatitude, Value: "north"}}, r.Errors)
	assert.Empty(t, r.Warnings)
	assert.False(t, r.HasError(ReasonMissingLocation))
}

func TestConvertRowUnparseableCoordinateWithAddress(t *testing.T) {
	r := convert(t, "title,materials,address,latitude", "Obelisk,granite,1 Main St,north", nil)

	assert.True(t, r.Valid())
	assert.Equal(t, []string{"Latitude must be valid"}, r.WarningMessages())
}

func TestConvertRowNonFiniteCoordinates(t *testing.T) {
	for _, value := range []string{"NaN", "nan", "Inf", "-Inf", "+Infinity"} {
		t.Run(value, func(t *testing.T) {
			r := convert(t, "title,materials,address,latitude,longitude", "Obelisk,granite,1 Main St,"+value+","+value, nil)

			assert.True(t, r.Valid())
			assert.Nil(t, r.Suggestion.Latitude)
			assert.Nil(t, r.Suggestion.Longitude)
			assert.Equal(t, []string{"Latitude must be valid", "Longitude must be valid"}, r.WarningMessages())
		})
	}

	r := convert(t, "title,materials,latitude,longitude", "Obelisk,granite,NaN,10", nil)
	assert.Equal(t, []Finding{{Reason: ReasonInvalidLatitude, Field: monument.FieldLatitude, Value: "NaN"}}, r.Errors)
	assert.Nil(t, r.Suggestion.Latitude)
}

func TestConvertRowAddressSkipsRangeCheck(t *testing.T) {
	r := convert(t, "title,materials,address,latitude,longitude", "Obelisk,granite,1 Main St,190,500", nil)

	assert.True(t, r.Valid())
}

func TestConvertRowCoordinates(t *testing.T) {
	r := convert(t, "title,materials,latitude,longitude", "Obelisk,granite,40.689247,-74.044502", nil)

	require.True(t, r.Valid(), "errors: %v", r.ErrorMessages())
	require.NotNil(t, r.Suggestion.Latitude)
	assert.InDelta(t, 40.689247, *r.Suggestion.Latitude, 1e-9)
	assert.InDelta(t, -74.044502, *r.Suggestion.Longitude, 1e-9)
}

func TestConvertRowTooManyDecimals(t *testing.T) {
	r := convert(t, "title,materials,latitude,longitude", "Obelisk,granite,40.1234567,10", nil)

	assert.Equal(t, []string{"Latitude must be valid"}, r.ErrorMessages())
}

func TestConvertRowDates(t *testing.T) {
	tests := []struct {
		name     string
		cell     string
		year     string
		month    string
		day      string
		date     time.Time
		warnings []string
	}{
		{
			name: "year only",
			cell: "1997",
			year: "1997",
			date: time.Date(1997, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "day month year",
			cell:  "12-03-1997",
			year:  "1997",
			month: "2",
			day:   "12",
			date:  time.Date(1997, time.March, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "month year",
			cell:     "03-1997",
			warnings: []string{"Date should be a valid date in the format DD-MM-YYYY or YYYY"},
		},
		{
			name:     "slashes",
			cell:     "03/12/1997",
			warnings: []string{"Date should be a valid date in the format DD-MM-YYYY or YYYY"},
		},
		{
			name:     "impossible day",
			cell:     "31-02-1997",
			warnings: []string{"Date should be a valid date in the format DD-MM-YYYY or YYYY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := convert(t, "title,materials,address,date", "Obelisk,granite,1 Main St,"+tt.cell, nil)

			assert.True(t, r.Valid())
			assert.Equal(t, tt.warnings, r.WarningMessages())

			s := r.Suggestion
			assert.Equal(t, tt.cell, s.DateText)
			assert.Equal(t, tt.year, s.Year)
			assert.Equal(t, tt.month, s.Month)
			assert.Equal(t, tt.day, s.Day)
			if tt.date.IsZero() {
				assert.Nil(t, s.Date)
			} else {
				require.NotNil(t, s.Date)
				assert.Equal(t, tt.date, *s.Date)
			}
		})
	}
}

func TestConvertRowReferences(t *testing.T) {
	r := convert(t, "title,materials,address,references,references,references",
		"Obelisk,granite,1 Main St,https://ok.example,not a url,also-bad", nil)

	assert.Equal(t, []string{"All References must be valid URLs (not a url)"}, r.ErrorMessages())
}

func TestConvertRowImages(t *testing.T) {
	img := pngBytes(t)
	ar := memArchive{"front.png": img, "broken.jpg": []byte("not an image")}
	header := "title,materials,address,images,images,images,image_captions,image_alt_texts"
	row := "Obelisk,granite,1 Main St,front.png,missing.png,broken.jpg,Front view,A stone obelisk"

	r := convert(t, header, row, ar)

	assert.Equal(t, []string{"Image broken.jpg could not be read from the archive"}, r.ErrorMessages())
	assert.Equal(t, []Finding{{Reason: ReasonImageMissing, Field: monument.FieldImages, Value: "missing.png"}}, r.Warnings)

	require.Len(t, r.Suggestion.Images, 1)
	front := r.Suggestion.Images[0]
	assert.Equal(t, "front.png", front.Name)
	assert.Equal(t, "image/png", front.ContentType)
	assert.Equal(t, "Front view", front.Caption)
	assert.Equal(t, "A stone obelisk", front.AltText)
	assert.Equal(t, [][]byte{img}, r.Images())
}

func TestConvertRowMissingImageIsWarningOnly(t *testing.T) {
	r := convert(t, "title,materials,address,images", "Obelisk,granite,1 Main St,gone.jpg", memArchive{})

	assert.True(t, r.Valid())
	assert.Len(t, r.Warnings, 1)
	assert.Contains(t, r.WarningMessages()[0], "gone.jpg")
}

func TestConvertRowImagesWithoutArchive(t *testing.T) {
	r := convert(t, "title,materials,address,images,images", "Obelisk,granite,1 Main St,a.jpg,b.jpg", nil)

	assert.True(t, r.Valid())
	assert.Equal(t, []Finding{{Reason: ReasonArchiveMissing, Field: monument.FieldImages}}, r.Warnings)
}

func TestConvertRowAdjunctOverflow(t *testing.T) {
	r := convert(t, "title,materials,address,images,image_captions,image_captions",
		"Obelisk,granite,1 Main St,a.jpg,one,two", memArchive{})

	assert.Equal(t, []string{"There are more Image Captions than Images"}, r.ErrorMessages())
}

func TestConvertRowIgnoresUnknownColumns(t *testing.T) {
	r := convert(t, "title,materials,address,favourite colour", "Obelisk,granite,1 Main St,blue,extra", nil)

	assert.True(t, r.Valid())
	assert.Equal(t, "Obelisk", r.Suggestion.Title)
}

func TestConvertRowIsIdempotent(t *testing.T) {
	header := "title,materials,latitude,longitude,date,images"
	row := "Obelisk,,north,10,someday,x.png"

	first := convert(t, header, row, nil)
	second := convert(t, header, row, nil)

	assert.Equal(t, first.Errors, second.Errors)
	assert.Equal(t, first.Warnings, second.Warnings)
	assert.Equal(t, first.Suggestion, second.Suggestion)
}

func TestValidateTwiceIsStable(t *testing.T) {
	r := convert(t, "title,materials,latitude,longitude", ",,north,", nil)
	errs := append([]Finding(nil), r.Errors...)
	warns := append([]Finding(nil), r.Warnings...)

	Validate(r)

	assert.Equal(t, errs, r.Errors)
	assert.ElementsMatch(t, warns, r.Warnings)
}

func TestConvertRowErrorsAndWarningsDisjoint(t *testing.T) {
	rows := []string{
		",,north,south,bad-date,a.png",
		"Obelisk,granite,91,181,1997,",
		"Obelisk,,x,,,",
	}
	for _, row := range rows {
		r := convert(t, "title,materials,latitude,longitude,date,images", row, nil)
		for _, e := range r.Errors {
			assert.NotContains(t, r.Warnings, e, "row %q", row)
		}
	}
}

func TestCleanTagName(t *testing.T) {
	assert.Equal(t, "Test", CleanTagName(" test \n"))
	assert.Equal(t, "Test", CleanTagName("Test"))
	assert.Equal(t, "ÉTé", CleanTagName("éTé"))
	assert.Equal(t, "", CleanTagName("   "))
}
