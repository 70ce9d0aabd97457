package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Storage     StorageConfig     `toml:"storage"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	HTTP        HTTPConfig        `toml:"http"`
	Tasks       TasksConfig       `toml:"tasks"`
	Scraper     ScraperConfig     `toml:"scraper"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Map returns the credentials in the shape [services.NewSpotifyService] expects.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// StorageConfig holds S3 (or S3-compatible) connection details.
type StorageConfig struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Endpoint        string `toml:"endpoint"` // Optional: MinIO and friends
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	SessionCookie string `toml:"session_cookie"`
}

// HTTPConfig controls outbound HTTP clients.
type HTTPConfig struct {
	Timeout   string  `toml:"timeout"`
	RateLimit float64 `toml:"rate_limit"` // Requests per second to Spotify; 0 disables
}

// TasksConfig sizes the background worker pool.
type TasksConfig struct {
	Workers   int    `toml:"workers"`
	QueueSize int    `toml:"queue_size"`
	TTL       string `toml:"ttl"` // Empty keeps task records for the process lifetime
}

// ScraperConfig lists the stations to scrape and when.
type ScraperConfig struct {
	Schedule  string          `toml:"schedule"`
	UserAgent string          `toml:"user_agent"`
	RateLimit float64         `toml:"rate_limit"`
	Stations  []StationConfig `toml:"stations"`
}

// StationConfig describes how to pull rows out of one station's playlist page.
type StationConfig struct {
	Name           string `toml:"name"`
	URL            string `toml:"url"`
	RowSelector    string `toml:"row_selector"`
	TimeSelector   string `toml:"time_selector"`
	ArtistSelector string `toml:"artist_selector"`
	SongSelector   string `toml:"song_selector"`
	TimeLayout     string `toml:"time_layout"`
}

// LogConfig sets the log level (debug, info, warn, error).
type LogConfig struct {
	Level string `toml:"level"`
}

// HTTPTimeout parses [HTTPConfig.Timeout], falling back to 30 seconds.
func (c *Config) HTTPTimeout() time.Duration {
	return parseDuration(c.HTTP.Timeout, 30*time.Second)
}

// TaskTTL parses [TasksConfig.TTL]. Zero means records are never evicted.
func (c *Config) TaskTTL() time.Duration {
	return parseDuration(c.Tasks.TTL, 0)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values from a .env file and the process environment override the file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv()
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv loads .env (if present) and overlays well-known environment variables.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	setFromEnv(&c.Credentials.Spotify.ClientID, "SPOTIPY_CLIENT_ID")
	setFromEnv(&c.Credentials.Spotify.ClientSecret, "SPOTIPY_CLIENT_SECRET")
	setFromEnv(&c.Credentials.Spotify.RedirectURI, "SPOTIPY_REDIRECT_URI")
	setFromEnv(&c.Storage.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setFromEnv(&c.Storage.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	setFromEnv(&c.Storage.Region, "AWS_REGION")
	setFromEnv(&c.Storage.Bucket, "S3_BUCKET")
	setFromEnv(&c.Storage.Endpoint, "S3_ENDPOINT")
	setFromEnv(&c.Log.Level, "LOG_LEVEL")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveConfig loads the config at path when it exists and falls back to defaults (plus env) otherwise.
func ResolveConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		config := DefaultConfig()
		config.ApplyEnv()
		return config, nil
	}
	return LoadConfig(path)
}
