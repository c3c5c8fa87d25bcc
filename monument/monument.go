// Package monument defines the catalog domain types shared by the ingestion
// pipeline, the deduplication probe, and the SQLite repository.
package monument

import (
	"strings"
	"time"

	"github.com/team-monumental/monuments-and-memorials-sub000/internal/util"
)

// Canonical field identifiers recognized by the row converter.
// Headers that resolve to anything else are ignored.
const (
	FieldContributions      = "contributions"
	FieldArtist             = "artist"
	FieldTitle              = "title"
	FieldDate               = "date"
	FieldMaterials          = "materials"
	FieldInscription        = "inscription"
	FieldLatitude           = "latitude"
	FieldLongitude          = "longitude"
	FieldCity               = "city"
	FieldState              = "state"
	FieldAddress            = "address"
	FieldTags               = "tags"
	FieldReferences         = "references"
	FieldImages             = "images"
	FieldDescription        = "description"
	FieldImageReferenceURLs = "image_reference_urls"
	FieldImageCaptions      = "image_captions"
	FieldImageAltTexts      = "image_alt_texts"
)

// Contribution attributes part of a suggestion to a named person.
type Contribution struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// Image is one picture attached to a suggestion. Data holds the raw bytes
// read from the upload archive; URL is set once the object store accepts it.
type Image struct {
	Name         string `json:"name"`
	Data         []byte `json:"-"`
	Caption      string `json:"caption,omitempty"`
	AltText      string `json:"alt_text,omitempty"`
	ReferenceURL string `json:"reference_url,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
}

// Suggestion is an unpersisted candidate catalog record.
//
// Address, when non-empty, is the canonical location signal. Latitude and
// Longitude are only consulted when Address is empty.
type Suggestion struct {
	Title       string   `json:"title,omitempty"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	State       string   `json:"state,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Artist      string   `json:"artist,omitempty"`
	Description string   `json:"description,omitempty"`
	Inscription string   `json:"inscription,omitempty"`

	// DateText is the raw cell value. Year/Month/Day are the parsed parts;
	// Month is a zero-based index, as in "2" for March.
	DateText string     `json:"date_text,omitempty"`
	Year     string     `json:"year,omitempty"`
	Month    string     `json:"month,omitempty"`
	Day      string     `json:"day,omitempty"`
	Date     *time.Time `json:"date,omitempty"`

	Materials     []string       `json:"materials,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	References    []string       `json:"references,omitempty"`
	Contributions []Contribution `json:"contributions,omitempty"`
	Images        []Image        `json:"images,omitempty"`
}

// Clone returns a deep copy of s. Image bytes are shared since nothing
// writes to them after the archive is read.
func (s *Suggestion) Clone() *Suggestion {
	if s == nil {
		return nil
	}
	c := *s
	c.Latitude = util.ClonePtr(s.Latitude)
	c.Longitude = util.ClonePtr(s.Longitude)
	c.Date = util.ClonePtr(s.Date)
	c.Materials = util.CloneSlice(s.Materials)
	c.Tags = util.CloneSlice(s.Tags)
	c.References = util.CloneSlice(s.References)
	c.Contributions = util.CloneSlice(s.Contributions)
	c.Images = util.CloneSlice(s.Images)
	return &c
}

// HasAddress reports whether the address is the usable location signal.
func (s *Suggestion) HasAddress() bool {
	return strings.TrimSpace(s.Address) != ""
}

// HasCoordinates reports whether both coordinates were parsed.
func (s *Suggestion) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Record is a persisted catalog entry as returned by the repository.
type Record struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Artist    string    `json:"artist,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref points at an existing record without carrying its contents.
type Ref struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// AddName appends name to names unless an entry equal under
// case-insensitive comparison is already present.
func AddName(names []string, name string) []string {
	for _, existing := range names {
		if strings.EqualFold(existing, name) {
			return names
		}
	}
	return append(names, name)
}

// SimilarQuery describes a candidate lookup for duplicate detection.
// Nil coordinates and an empty Address leave that dimension unconstrained.
type SimilarQuery struct {
	TitleKey  string
	Address   string
	Latitude  *float64
	Longitude *float64
	Tolerance float64
	Strict    bool
}
