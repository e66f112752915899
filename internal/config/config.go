// Package config loads skyview settings from the environment, with an optional
// .env file and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/owlpinetech/healpix"

	"github.com/owlpinetech/skyview"
)

const (
	DefaultApertureDegrees  = 1.0
	DefaultNominatimURL     = "https://nominatim.openstreetmap.org"
	DefaultUserAgent        = "sky_view_project"
	DefaultGeocodeTimeout   = 10 * time.Second
	DefaultGeocodeCacheSize = 1024
	DefaultGeocodeOrder     = 12
)

// Config holds every tunable of an observation and of the services it talks to.
type Config struct {
	ApertureDegrees float64 // cone search radius around the zenith
	BodyRadius      float64 // meters, for ground-projected areas
	Scheme          string  // nest or ring

	NominatimURL      string
	NominatimLanguage string
	NominatimZoom     int
	UserAgent         string
	GeocodeTimeout    time.Duration
	GeocodeRate       float64 // requests per second
	GeocodeCacheSize  int     // 0 disables the cache
	GeocodeCacheOrder int     // HEALPix order of the cache cells

	AppAddr     string
	MetricsAddr string

	TracingEnabled  bool
	TracingExporter string
	TracingEndpoint string
}

// Load reads the configuration from environment variables, after loading a .env file
// from the working directory when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the configuration from environment variables only.
func FromEnv() (*Config, error) {
	var errs []error
	cfg := &Config{
		ApertureDegrees:   getFloat("SKYVIEW_APERTURE_DEG", DefaultApertureDegrees, &errs),
		BodyRadius:        getFloat("SKYVIEW_BODY_RADIUS_M", skyview.EarthMeanRadius, &errs),
		Scheme:            strings.ToLower(getEnv("SKYVIEW_HEALPIX_SCHEME", "nest")),
		NominatimURL:      strings.TrimRight(getEnv("NOMINATIM_URL", DefaultNominatimURL), "/"),
		NominatimLanguage: getEnv("NOMINATIM_LANGUAGE", ""),
		NominatimZoom:     getInt("NOMINATIM_ZOOM", 18, &errs),
		UserAgent:         getEnv("NOMINATIM_USER_AGENT", DefaultUserAgent),
		GeocodeTimeout:    getDuration("GEOCODE_TIMEOUT", DefaultGeocodeTimeout, &errs),
		GeocodeRate:       getFloat("GEOCODE_RATE", 1, &errs),
		GeocodeCacheSize:  getInt("GEOCODE_CACHE_SIZE", DefaultGeocodeCacheSize, &errs),
		GeocodeCacheOrder: getInt("GEOCODE_CACHE_ORDER", DefaultGeocodeOrder, &errs),
		AppAddr:           getEnv("APP_ADDR", ":8080"),
		MetricsAddr:       getEnv("METRICS_ADDR", ":9090"),
		TracingEnabled:    strings.EqualFold(os.Getenv("SKYVIEW_TRACING_ENABLED"), "true"),
		TracingExporter:   strings.ToLower(getEnv("SKYVIEW_TRACING_EXPORTER", "stdout")),
		TracingEndpoint:   os.Getenv("SKYVIEW_OTLP_ENDPOINT"),
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate rejects settings that would make an observation meaningless.
func (c *Config) Validate() error {
	if !(c.ApertureDegrees > 0) || c.ApertureDegrees > 180 {
		return fmt.Errorf("aperture must be in (0, 180] degrees, got %v", c.ApertureDegrees)
	}
	if !(c.BodyRadius > 0) {
		return fmt.Errorf("body radius must be positive, got %v", c.BodyRadius)
	}
	if _, err := c.HealpixScheme(); err != nil {
		return err
	}
	if c.GeocodeCacheSize < 0 {
		return fmt.Errorf("geocode cache size must not be negative, got %d", c.GeocodeCacheSize)
	}
	if !healpix.IsValidOrder(c.GeocodeCacheOrder) {
		return fmt.Errorf("geocode cache order must be in [0, %d], got %d", healpix.MaxOrder(), c.GeocodeCacheOrder)
	}
	if !(c.GeocodeRate > 0) {
		return fmt.Errorf("geocode rate must be positive, got %v", c.GeocodeRate)
	}
	return nil
}

// Aperture is the cone search radius in radians.
func (c *Config) Aperture() float64 {
	return skyview.Radians(c.ApertureDegrees)
}

func (c *Config) HealpixScheme() (healpix.HealpixScheme, error) {
	switch c.Scheme {
	case "nest", "nested", "":
		return healpix.NestScheme, nil
	case "ring":
		return healpix.RingScheme, nil
	default:
		return healpix.NestScheme, fmt.Errorf("unknown HEALPix scheme %q", c.Scheme)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func getInt(key string, defaultValue int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}
