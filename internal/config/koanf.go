package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/coffeemap/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit:       60,
		},
		Cache: CacheConfig{
			TTL:       30 * 24 * time.Hour,
			OpTimeout: 2 * time.Second,
		},
		HTTP: HTTPConfig{Timeout: 10 * time.Second},
		Places: PlacesConfig{
			NearbyProvider: NearbyGoogle,
			Radius:         2000,
			Keyword:        "coffee",
			UserAgent:      "coffeemap/1.0 (+https://github.com/neexbeast/coffeemap)",
		},
		Google:    GoogleConfig{URL: "https://maps.googleapis.com/maps/api/place"},
		SerpAPI:   SerpAPIConfig{URL: "https://serpapi.com/search.json"},
		Nominatim: EndpointConfig{URL: "https://nominatim.openstreetmap.org"},
		Overpass:  EndpointConfig{URL: "https://overpass-api.de/api/interpreter"},
		Breaker: BreakerConfig{
			MinRequests:  10,
			FailureRatio: 0.6,
			Interval:     time.Minute,
			Timeout:      30 * time.Second,
			HalfOpenMax:  3,
		},
		Log: LogConfig{Level: "info"},
	}
}

// envMappings maps environment variable names (lowercased) to config paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"port":                  "server.port",
	"rate_limit_per_minute": "server.rate_limit",
	"database_url":          "database.url",
	"database_max_conns":    "database.max_conns",
	"redis_url":             "redis.url",
	"cache_ttl":             "cache.ttl",
	"cache_op_timeout":      "cache.op_timeout",
	"http_timeout":          "http.timeout",
	"nearby_provider":       "places.nearby_provider",
	"places_radius":         "places.radius",
	"places_keyword":        "places.keyword",
	"places_user_agent":     "places.user_agent",
	"google_places_api_key": "google.api_key",
	"google_places_url":     "google.url",
	"serpapi_api_key":       "serpapi.api_key",
	"serpapi_url":           "serpapi.url",
	"nominatim_url":         "nominatim.url",
	"overpass_url":          "overpass.url",
	"breaker_min_requests":  "breaker.min_requests",
	"breaker_failure_ratio": "breaker.failure_ratio",
	"breaker_interval":      "breaker.interval",
	"breaker_timeout":       "breaker.timeout",
	"jwt_secret":            "auth.jwt_secret",
	"jwt_issuer":            "auth.issuer",
	"log_level":             "log.level",
}

// Load reads configuration with the precedence env > file > defaults and validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first existing default path.
func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
