package am

import (
	"strings"
	"unicode/utf8"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Server port: 0 falls back to the default, negative or out of range is invalid
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 0 {
		return errors.Newf("server.max_upload_mb must be >= 0, got %d", c.Server.MaxUploadMB)
	}

	// Upload throttling: 0 = unlimited, negative = invalid
	if c.Storage.UploadsPerSecond < 0 {
		return errors.Newf("storage.uploads_per_second must be >= 0, got %f", c.Storage.UploadsPerSecond)
	}
	if c.Storage.UploadsPerSecond > 0 && c.Storage.UploadBurst <= 0 {
		return errors.Newf("storage.upload_burst must be > 0 when throttling, got %d", c.Storage.UploadBurst)
	}

	// Ingest workers: 0 = GOMAXPROCS, negative = invalid
	if c.Ingest.Workers < 0 {
		return errors.Newf("ingest.workers must be >= 0, got %d", c.Ingest.Workers)
	}
	if c.Ingest.Delimiter != "" {
		if utf8.RuneCountInString(c.Ingest.Delimiter) != 1 {
			return errors.Newf("ingest.delimiter must be a single character, got %q", c.Ingest.Delimiter)
		}
		if c.Ingest.Delimiter == `"` || c.Ingest.Delimiter == "\n" {
			return errors.Newf("ingest.delimiter cannot be %q", c.Ingest.Delimiter)
		}
	}
	if c.Ingest.MaxEntryMB < 0 {
		return errors.Newf("ingest.max_entry_mb must be >= 0, got %d", c.Ingest.MaxEntryMB)
	}

	// Coordinate tolerance: 0 = exact coordinates only, negative = invalid
	if c.Dedup.CoordinateTolerance < 0 {
		return errors.Newf("dedup.coordinate_tolerance must be >= 0, got %f", c.Dedup.CoordinateTolerance)
	}

	// Geocoding: rate and timeout only matter once a URL is configured
	if c.Geocode.RequestsPerSecond < 0 {
		return errors.Newf("geocode.requests_per_second must be >= 0, got %f", c.Geocode.RequestsPerSecond)
	}
	if c.Geocode.TimeoutSeconds < 0 {
		return errors.Newf("geocode.timeout_seconds must be >= 0, got %d", c.Geocode.TimeoutSeconds)
	}
	if c.Geocode.URL != "" && !strings.HasPrefix(c.Geocode.URL, "http://") && !strings.HasPrefix(c.Geocode.URL, "https://") {
		return errors.Newf("geocode.url must be an http(s) URL, got %q", c.Geocode.URL)
	}

	return nil
}
