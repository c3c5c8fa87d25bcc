package ingest

import (
	"context"
	"fmt"

	"github.com/team-monumental/monuments-and-memorials-sub000/monument"
)

// Location is a reverse-geocoded address.
type Location struct {
	Address string
	City    string
	State   string
}

// Geocoder resolves coordinates to an address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (Location, error)
}

// GeocoderFunc adapts a function to Geocoder.
type GeocoderFunc func(ctx context.Context, lat, lon float64) (Location, error)

// ReverseGeocode calls f.
func (f GeocoderFunc) ReverseGeocode(ctx context.Context, lat, lon float64) (Location, error) {
	return f(ctx, lat, lon)
}

// enrich fills the address of a coordinate-only suggestion. Only empty
// fields are filled. A failure is returned as a note and never fails the row.
func (h *Handler) enrich(ctx context.Context, s *monument.Suggestion) string {
	if h.geocoder == nil || s.HasAddress() || !s.HasCoordinates() {
		return ""
	}
	loc, err := h.geocoder.ReverseGeocode(ctx, *s.Latitude, *s.Longitude)
	if err != nil {
		h.logger.Debugw("Reverse geocoding failed", "title", s.Title, "error", err)
		return fmt.Sprintf("Address could not be resolved from coordinates (%v)", err)
	}
	s.Address = loc.Address
	if s.City == "" {
		s.City = loc.City
	}
	if s.State == "" {
		s.State = loc.State
	}
	return ""
}
