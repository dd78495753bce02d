// Package config loads service settings from defaults, an optional YAML file,
// and environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Nearby search providers accepted by places.nearby_provider.
const (
	NearbyGoogle   = "google"
	NearbySerpAPI  = "serpapi"
	NearbyOverpass = "overpass"
)

const minJWTSecretLength = 32

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig   `koanf:"server"`
	Database  DatabaseConfig `koanf:"database"`
	Redis     RedisConfig    `koanf:"redis"`
	Cache     CacheConfig    `koanf:"cache"`
	HTTP      HTTPConfig     `koanf:"http"`
	Places    PlacesConfig   `koanf:"places"`
	Google    GoogleConfig   `koanf:"google"`
	SerpAPI   SerpAPIConfig  `koanf:"serpapi"`
	Nominatim EndpointConfig `koanf:"nominatim"`
	Overpass  EndpointConfig `koanf:"overpass"`
	Breaker   BreakerConfig  `koanf:"breaker"`
	Auth      AuthConfig     `koanf:"auth"`
	Log       LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimit       int           `koanf:"rate_limit"` // requests per minute per IP
}

type DatabaseConfig struct {
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns"`
}

type RedisConfig struct {
	URL string `koanf:"url"`
}

type CacheConfig struct {
	TTL       time.Duration `koanf:"ttl"`
	OpTimeout time.Duration `koanf:"op_timeout"`
}

// HTTPConfig applies to every outbound provider request.
type HTTPConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

type PlacesConfig struct {
	NearbyProvider string `koanf:"nearby_provider"`
	Radius         int    `koanf:"radius"` // metres
	Keyword        string `koanf:"keyword"`
	UserAgent      string `koanf:"user_agent"`
}

type GoogleConfig struct {
	APIKey string `koanf:"api_key"`
	URL    string `koanf:"url"`
}

type SerpAPIConfig struct {
	APIKey string `koanf:"api_key"`
	URL    string `koanf:"url"`
}

// EndpointConfig is a keyless provider that may be self-hosted.
type EndpointConfig struct {
	URL string `koanf:"url"`
}

type BreakerConfig struct {
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	HalfOpenMax  uint32        `koanf:"half_open_max"`
}

// AuthConfig verifies the HS256 bearer tokens guarding favorites.
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	Issuer    string `koanf:"issuer"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", l.Level, err)
	}
	return level, nil
}

// normalize canonicalises enum-like settings so later comparisons can be exact.
func (c *Config) normalize() {
	c.Places.NearbyProvider = strings.ToLower(strings.TrimSpace(c.Places.NearbyProvider))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStores(); err != nil {
		return err
	}
	if err := c.validatePlaces(); err != nil {
		return err
	}
	if len(c.Auth.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("breaker.failure_ratio must be in (0, 1], got %v", c.Breaker.FailureRatio)
	}
	_, err := c.Log.SlogLevel()
	return err
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("server.rate_limit must be positive, got %d", c.Server.RateLimit)
	}
	return nil
}

func (c *Config) validateStores() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %v", c.Cache.TTL)
	}
	return nil
}

func (c *Config) validatePlaces() error {
	// Place details always come from Google.
	if c.Google.APIKey == "" {
		return fmt.Errorf("GOOGLE_PLACES_API_KEY is required")
	}

	switch c.Places.NearbyProvider {
	case NearbyGoogle, NearbyOverpass:
	case NearbySerpAPI:
		if c.SerpAPI.APIKey == "" {
			return fmt.Errorf("SERPAPI_API_KEY is required when NEARBY_PROVIDER=serpapi")
		}
	default:
		return fmt.Errorf("places.nearby_provider must be one of google, serpapi, overpass, got %q", c.Places.NearbyProvider)
	}

	if c.Places.Radius < 1 {
		return fmt.Errorf("places.radius must be positive, got %d", c.Places.Radius)
	}
	if strings.TrimSpace(c.Places.Keyword) == "" {
		return fmt.Errorf("places.keyword must not be empty")
	}
	return nil
}
