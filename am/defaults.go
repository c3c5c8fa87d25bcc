package am

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/viper"
)

const (
	defaultDatabasePath = "monuments.db"
	defaultMaxUploadMB  = 64
	defaultMaxEntryMB   = 32
	defaultDelimiter    = ","
)

var defaultAllowedOrigins = []string{
	"http://localhost",
	"https://localhost",
	"http://127.0.0.1",
	"https://127.0.0.1",
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", defaultDatabasePath)

	// Server configuration defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", defaultAllowedOrigins)
	v.SetDefault("server.max_upload_mb", defaultMaxUploadMB)

	// Object storage defaults
	v.SetDefault("storage.dir", "uploads")
	v.SetDefault("storage.base_url", "/uploads")
	v.SetDefault("storage.uploads_per_second", 0.0) // Unlimited
	v.SetDefault("storage.upload_burst", 1)

	// Ingest defaults
	v.SetDefault("ingest.workers", 0) // GOMAXPROCS
	v.SetDefault("ingest.delimiter", defaultDelimiter)
	v.SetDefault("ingest.mapping_file", "")
	v.SetDefault("ingest.max_entry_mb", defaultMaxEntryMB)

	// Duplicate detection defaults
	v.SetDefault("dedup.coordinate_tolerance", 0.001) // Roughly 100m of latitude
	v.SetDefault("dedup.strict", false)

	// Reverse geocoding is off until geocode.url is set
	v.SetDefault("geocode.url", "")
	v.SetDefault("geocode.user_agent", "monuments-bulk-ingest/1.0")
	v.SetDefault("geocode.requests_per_second", 1.0) // Public Nominatim policy
	v.SetDefault("geocode.timeout_seconds", 10)
	v.SetDefault("geocode.allow_private", false)
}

// BindEnvVars explicitly binds keys whose env names are commonly set by
// deployment tooling, so they resolve even before a config file defines them.
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "MONUMENTS_DATABASE_PATH")
	v.BindEnv("server.port", "MONUMENTS_SERVER_PORT")
	v.BindEnv("storage.dir", "MONUMENTS_STORAGE_DIR")
	v.BindEnv("storage.base_url", "MONUMENTS_STORAGE_BASE_URL")
	v.BindEnv("geocode.url", "MONUMENTS_GEOCODE_URL")
}

// GetServerPort returns the configured server port
// Returns server.port from config, or DefaultServerPort if not configured
func GetServerPort() int {
	cfg, err := Load()
	if err != nil || cfg.Server.Port == 0 {
		return DefaultServerPort
	}
	return cfg.Server.Port
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return defaultDatabasePath // Fallback default
	}
	return c.Database.Path
}

// GetServerAllowedOrigins returns the allowed CORS origins
func (c *Config) GetServerAllowedOrigins() []string {
	if len(c.Server.AllowedOrigins) == 0 {
		return defaultAllowedOrigins
	}
	return c.Server.AllowedOrigins
}

// MaxUploadBytes returns the request body limit for bulk uploads.
func (c *Config) MaxUploadBytes() int64 {
	mb := c.Server.MaxUploadMB
	if mb == 0 {
		mb = defaultMaxUploadMB
	}
	return int64(mb) << 20
}

// MaxEntryBytes returns the largest archive member the extractor will read.
func (c *Config) MaxEntryBytes() int64 {
	mb := c.Ingest.MaxEntryMB
	if mb == 0 {
		mb = defaultMaxEntryMB
	}
	return int64(mb) << 20
}

// DelimiterRune returns the spreadsheet delimiter, ',' when unset.
func (c *Config) DelimiterRune() rune {
	if c.Ingest.Delimiter == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(c.Ingest.Delimiter)
	return r
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Server: {Port: %d}, Ingest: {Workers: %d}, Dedup: {Tolerance: %g, Strict: %t}}",
		c.GetDatabasePath(), c.Server.Port, c.Ingest.Workers, c.Dedup.CoordinateTolerance, c.Dedup.Strict)
}
