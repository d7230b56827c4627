package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all pipeline settings, populated from flags, environment
// variables, and an optional polling-etl.yaml in the working directory.
type Config struct {
	Source       string
	Election     string
	Sheet        string
	State        string
	Output       string
	Format       string
	SynonymsFile string
	FetchTimeout time.Duration

	LogLevel        string
	LogFormat       string
	MetricsTextfile string

	// Geocoding configuration.
	GeocodeEnabled   bool
	GeocodeProvider  string
	GeocodeInterval  time.Duration
	GeocodeTimeout   time.Duration
	GeocodeUserAgent string
	GeocodeBaseURL   string
	GeocodeCachePath string
	MapboxToken      string

	FallbackLat float64
	FallbackLon float64
}

// Output formats.
const (
	FormatJSON    = "json"
	FormatGeoJSON = "geojson"
)

// Geocoding providers.
const (
	ProviderNominatim = "nominatim"
	ProviderMapbox    = "mapbox"
)

// DefaultElection is the dataset fetched when neither a source nor an
// election is given.
const DefaultElection = "2024_november_general"

// NewViper returns a viper instance with defaults and environment binding.
// Keys map to environment variables by upper-casing and replacing "." with
// "_", e.g. geocode.throttle_ms ↔ GEOCODE_THROTTLE_MS.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetConfigName("polling-etl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("source", "")
	v.SetDefault("election", DefaultElection)
	v.SetDefault("sheet", "")
	v.SetDefault("state", "VA")
	v.SetDefault("output", "data/polling_places_scraped.json")
	v.SetDefault("format", FormatJSON)
	v.SetDefault("synonyms_file", "")
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("geocode.enabled", false)
	v.SetDefault("geocode.provider", ProviderNominatim)
	v.SetDefault("geocode.throttle_ms", 1000)
	v.SetDefault("geocode.timeout", "10s")
	v.SetDefault("geocode.user_agent", "polling-place-etl/1.0")
	v.SetDefault("geocode.base_url", "")
	v.SetDefault("geocode.cache_path", "")
	v.SetDefault("mapbox.token", "")
	// Geographic center of Virginia.
	v.SetDefault("fallback.lat", 37.5)
	v.SetDefault("fallback.lon", -78.5)

	return v
}

// Load reads configuration from v, applying defaults where unset. The config
// file is optional.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	fetchTimeout, err := parsePositiveDuration(v, "fetch.timeout", "FETCH_TIMEOUT")
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := parsePositiveDuration(v, "geocode.timeout", "GEOCODE_TIMEOUT")
	if err != nil {
		return nil, err
	}

	throttleMS := v.GetInt("geocode.throttle_ms")
	if throttleMS < 0 {
		return nil, errors.New("invalid GEOCODE_THROTTLE_MS: must not be negative")
	}

	cfg := &Config{
		Source:       strings.TrimSpace(v.GetString("source")),
		Election:     strings.TrimSpace(v.GetString("election")),
		Sheet:        v.GetString("sheet"),
		State:        strings.ToUpper(strings.TrimSpace(v.GetString("state"))),
		Output:       v.GetString("output"),
		Format:       strings.ToLower(v.GetString("format")),
		SynonymsFile: v.GetString("synonyms_file"),
		FetchTimeout: fetchTimeout,

		LogLevel:        v.GetString("log.level"),
		LogFormat:       v.GetString("log.format"),
		MetricsTextfile: v.GetString("metrics.textfile"),

		GeocodeEnabled:   v.GetBool("geocode.enabled"),
		GeocodeProvider:  strings.ToLower(v.GetString("geocode.provider")),
		GeocodeInterval:  time.Duration(throttleMS) * time.Millisecond,
		GeocodeTimeout:   geocodeTimeout,
		GeocodeUserAgent: v.GetString("geocode.user_agent"),
		GeocodeBaseURL:   v.GetString("geocode.base_url"),
		GeocodeCachePath: v.GetString("geocode.cache_path"),
		MapboxToken:      v.GetString("mapbox.token"),

		FallbackLat: v.GetFloat64("fallback.lat"),
		FallbackLon: v.GetFloat64("fallback.lon"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Source == "" && c.Election == "" {
		return errors.New("SOURCE or ELECTION is required")
	}
	if c.State == "" {
		return errors.New("STATE is required")
	}
	if c.Output == "" {
		return errors.New("OUTPUT is required")
	}
	if c.Format != FormatJSON && c.Format != FormatGeoJSON {
		return fmt.Errorf("invalid FORMAT %q: want %s or %s", c.Format, FormatJSON, FormatGeoJSON)
	}
	if c.FallbackLat < -90 || c.FallbackLat > 90 {
		return fmt.Errorf("invalid FALLBACK_LAT %v", c.FallbackLat)
	}
	if c.FallbackLon < -180 || c.FallbackLon > 180 {
		return fmt.Errorf("invalid FALLBACK_LON %v", c.FallbackLon)
	}
	switch c.GeocodeProvider {
	case ProviderNominatim:
	case ProviderMapbox:
		if c.GeocodeEnabled && c.MapboxToken == "" {
			return errors.New("GEOCODE_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		return fmt.Errorf("invalid GEOCODE_PROVIDER %q", c.GeocodeProvider)
	}
	return nil
}

func parsePositiveDuration(v *viper.Viper, key, env string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", env)
	}
	return d, nil
}
