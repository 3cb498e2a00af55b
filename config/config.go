package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"skycast.app/errors"
)

// Config represents the application configuration structure
type Config struct {
	Server    ServerConfig    `split_words:"true"`
	Weather   WeatherConfig   `split_words:"true"`
	Geocoder  GeocoderConfig  `split_words:"true"`
	Cache     CacheConfig     `split_words:"true"`
	Storage   StorageConfig   `split_words:"true"`
	Scheduler SchedulerConfig `split_words:"true"`
	Location  LocationConfig  `split_words:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// WeatherConfig contains settings for the upstream weather provider
type WeatherConfig struct {
	APIKey  string `envconfig:"WEATHER_API_KEY" required:"true"`
	BaseURL string `envconfig:"WEATHER_API_BASE_URL" default:"https://api.weatherbit.io/v2.0"`

	// Forecast horizons. The daily horizon is assembled from bounded pages
	// because the provider caps each call at DailyPageSize days.
	DailyHorizonDays int `envconfig:"WEATHER_DAILY_HORIZON_DAYS" default:"180"`
	DailyPageSize    int `envconfig:"WEATHER_DAILY_PAGE_SIZE" default:"15"`
	HourlyHorizon    int `envconfig:"WEATHER_HOURLY_HORIZON" default:"120"`

	// Staleness threshold for the aggregated snapshot, in minutes. The
	// snapshot is fetched and replaced as a whole, so one TTL governs all
	// three series.
	SnapshotTTLMinutes int `envconfig:"WEATHER_SNAPSHOT_TTL_MINUTES" default:"30"`
}

// SnapshotTTL returns the staleness threshold for the aggregated snapshot.
func (w WeatherConfig) SnapshotTTL() time.Duration {
	return time.Duration(w.SnapshotTTLMinutes) * time.Minute
}

// GeocoderConfig contains settings for forward and reverse geocoding
type GeocoderConfig struct {
	Backend        string `envconfig:"GEOCODER_BACKEND" default:"nominatim"`
	BaseURL        string `envconfig:"GEOCODER_BASE_URL" default:"https://nominatim.openstreetmap.org"`
	GoogleAPIKey   string `envconfig:"GEOCODER_GOOGLE_API_KEY"`
	ReverseTimeout time.Duration `envconfig:"GEOCODER_REVERSE_TIMEOUT" default:"8s"`
	CacheTTLHours  int    `envconfig:"GEOCODER_CACHE_TTL_HOURS" default:"24"`
}

// CacheConfig selects and configures the persistent store backing the cache
type CacheConfig struct {
	Type          string        `envconfig:"CACHE_TYPE" default:"memory"`
	RedisAddr     string        `envconfig:"CACHE_REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"CACHE_REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"CACHE_REDIS_DB" default:"0"`
	DialTimeout   time.Duration `envconfig:"CACHE_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout   time.Duration `envconfig:"CACHE_READ_TIMEOUT" default:"3s"`
	WriteTimeout  time.Duration `envconfig:"CACHE_WRITE_TIMEOUT" default:"3s"`
}

// StorageConfig configures the relational store backend
type StorageConfig struct {
	Driver     string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	SQLitePath string `envconfig:"STORAGE_SQLITE_PATH" default:"skycast.db"`
	Host       string `envconfig:"STORAGE_HOST" default:"localhost"`
	Port       int    `envconfig:"STORAGE_PORT" default:"5432"`
	User       string `envconfig:"STORAGE_USER" default:"postgres"`
	Password   string `envconfig:"STORAGE_PASSWORD" default:"postgres"`
	Name       string `envconfig:"STORAGE_NAME" default:"skycast"`
	SSLMode    string `envconfig:"STORAGE_SSL_MODE" default:"disable"`
}

// GetDSN returns a formatted postgres connection string
func (s StorageConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.User, s.Password, s.Name, s.SSLMode)
}

// SchedulerConfig contains settings for the background refresh scheduler
type SchedulerConfig struct {
	RefreshInterval int `envconfig:"REFRESH_INTERVAL_MINUTES" default:"0"`
}

// LocationConfig is the fallback home location used when no device
// coordinates are supplied by the client
type LocationConfig struct {
	DefaultLatitude  float64 `envconfig:"LOCATION_DEFAULT_LAT"`
	DefaultLongitude float64 `envconfig:"LOCATION_DEFAULT_LON"`
	DefaultName      string  `envconfig:"LOCATION_DEFAULT_NAME"`
}

// IsSet reports whether a home location has been configured.
func (l LocationConfig) IsSet() bool {
	return l.DefaultName != "" || l.DefaultLatitude != 0 || l.DefaultLongitude != 0
}

// LoadConfig loads and validates application configuration from environment variables
func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Weather.Validate(); err != nil {
		return err
	}
	if err := c.Geocoder.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	return nil
}

// Validate checks weather provider configuration
func (w *WeatherConfig) Validate() error {
	if w.APIKey == "" {
		return errors.NewConfigurationError("WEATHER_API_KEY is required", nil)
	}
	if !strings.HasPrefix(w.BaseURL, "http://") && !strings.HasPrefix(w.BaseURL, "https://") {
		return errors.NewConfigurationError("WEATHER_API_BASE_URL must start with http:// or https://", nil)
	}
	if w.DailyHorizonDays < 1 {
		return errors.NewConfigurationError("WEATHER_DAILY_HORIZON_DAYS must be at least 1", nil)
	}
	if w.DailyPageSize < 1 || w.DailyPageSize > 16 {
		return errors.NewConfigurationError("WEATHER_DAILY_PAGE_SIZE must be between 1 and 16", nil)
	}
	if w.HourlyHorizon < 1 || w.HourlyHorizon > 240 {
		return errors.NewConfigurationError("WEATHER_HOURLY_HORIZON must be between 1 and 240", nil)
	}
	if w.SnapshotTTLMinutes < 1 {
		return errors.NewConfigurationError("WEATHER_SNAPSHOT_TTL_MINUTES must be at least 1", nil)
	}
	return nil
}

// Validate checks geocoder configuration
func (g *GeocoderConfig) Validate() error {
	switch g.Backend {
	case "nominatim":
		if !strings.HasPrefix(g.BaseURL, "http://") && !strings.HasPrefix(g.BaseURL, "https://") {
			return errors.NewConfigurationError("GEOCODER_BASE_URL must start with http:// or https://", nil)
		}
	case "google":
		if g.GoogleAPIKey == "" {
			return errors.NewConfigurationError("GEOCODER_GOOGLE_API_KEY is required for the google backend", nil)
		}
	default:
		return errors.NewConfigurationError("GEOCODER_BACKEND must be one of: nominatim, google", nil)
	}
	if g.ReverseTimeout <= 0 {
		return errors.NewConfigurationError("GEOCODER_REVERSE_TIMEOUT must be positive", nil)
	}
	return nil
}

// Validate checks cache backend configuration
func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "memory":
		return nil
	case "redis":
		if c.RedisAddr == "" {
			return errors.NewConfigurationError("CACHE_REDIS_ADDR cannot be empty", nil)
		}
		return nil
	default:
		return errors.NewConfigurationError("CACHE_TYPE must be one of: memory, redis", nil)
	}
}

// Validate checks relational storage configuration
func (s *StorageConfig) Validate() error {
	switch s.Driver {
	case "none":
		return nil
	case "sqlite":
		if s.SQLitePath == "" {
			return errors.NewConfigurationError("STORAGE_SQLITE_PATH cannot be empty", nil)
		}
		return nil
	case "postgres":
		if s.Host == "" {
			return errors.NewConfigurationError("STORAGE_HOST cannot be empty", nil)
		}
		if s.Port < 1 || s.Port > 65535 {
			return errors.NewConfigurationError("STORAGE_PORT must be between 1 and 65535", nil)
		}
		if s.Name == "" {
			return errors.NewConfigurationError("STORAGE_NAME cannot be empty", nil)
		}
		return nil
	default:
		return errors.NewConfigurationError("STORAGE_DRIVER must be one of: none, sqlite, postgres", nil)
	}
}

// Validate checks scheduler configuration
func (s *SchedulerConfig) Validate() error {
	if s.RefreshInterval < 0 {
		return errors.NewConfigurationError("REFRESH_INTERVAL_MINUTES cannot be negative", nil)
	}
	return nil
}
