// Package am ("I am") loads the monuments configuration from TOML files and
// MONUMENTS_* environment variables.
package am

// Config represents the monuments service configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
	Server   ServerConfig   `mapstructure:"server" toml:"server"`
	Storage  StorageConfig  `mapstructure:"storage" toml:"storage"`
	Ingest   IngestConfig   `mapstructure:"ingest" toml:"ingest"`
	Dedup    DedupConfig    `mapstructure:"dedup" toml:"dedup"`
	Geocode  GeocodeConfig  `mapstructure:"geocode" toml:"geocode"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Port           int      `mapstructure:"port" toml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`
	MaxUploadMB    int      `mapstructure:"max_upload_mb" toml:"max_upload_mb"` // Request body limit for bulk uploads
}

// StorageConfig configures where uploaded images are written and served from
type StorageConfig struct {
	Dir              string  `mapstructure:"dir" toml:"dir"`
	BaseURL          string  `mapstructure:"base_url" toml:"base_url"`
	UploadsPerSecond float64 `mapstructure:"uploads_per_second" toml:"uploads_per_second"` // 0 = unlimited
	UploadBurst      int     `mapstructure:"upload_burst" toml:"upload_burst"`
}

// IngestConfig configures spreadsheet validation
type IngestConfig struct {
	Workers     int    `mapstructure:"workers" toml:"workers"`           // Rows converted in parallel (0 = GOMAXPROCS)
	Delimiter   string `mapstructure:"delimiter" toml:"delimiter"`       // Single character, default ","
	MappingFile string `mapstructure:"mapping_file" toml:"mapping_file"` // YAML header override mapping
	MaxEntryMB  int    `mapstructure:"max_entry_mb" toml:"max_entry_mb"` // Largest archive member read
}

// DedupConfig tunes duplicate detection
type DedupConfig struct {
	CoordinateTolerance float64 `mapstructure:"coordinate_tolerance" toml:"coordinate_tolerance"` // Decimal degrees
	Strict              bool    `mapstructure:"strict" toml:"strict"`                             // Require equal normalized titles
}

// GeocodeConfig configures reverse geocoding of coordinate-only rows
type GeocodeConfig struct {
	URL               string  `mapstructure:"url" toml:"url"`                     // Nominatim-compatible base URL (empty = disabled)
	UserAgent         string  `mapstructure:"user_agent" toml:"user_agent"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" toml:"requests_per_second"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
	AllowPrivate      bool    `mapstructure:"allow_private" toml:"allow_private"` // Permit a geocoder on the local network
}

// Server port constants
const (
	DefaultServerPort = 8080
)

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
