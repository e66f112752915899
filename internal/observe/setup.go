package observe

import (
	"github.com/owlpinetech/skyview"
	"github.com/owlpinetech/skyview/internal/config"
	"github.com/owlpinetech/skyview/internal/logging"
	"github.com/owlpinetech/skyview/internal/nominatim"
	"github.com/owlpinetech/skyview/internal/placecache"
)

// NewFromConfig builds an observer backed by the Nominatim client, wrapped in the cell
// cache unless the configured cache size is zero.
func NewFromConfig(cfg *config.Config, log logging.Logger, metrics Metrics) (*Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scheme, err := cfg.HealpixScheme()
	if err != nil {
		return nil, err
	}

	var geocoder skyview.Geocoder = nominatim.New(nominatim.Options{
		BaseURL:   cfg.NominatimURL,
		UserAgent: cfg.UserAgent,
		Language:  cfg.NominatimLanguage,
		Zoom:      cfg.NominatimZoom,
		Timeout:   cfg.GeocodeTimeout,
		Rate:      cfg.GeocodeRate,
		Logger:    log,
	})
	if cfg.GeocodeCacheSize > 0 {
		cached, err := placecache.New(geocoder, cfg.GeocodeCacheOrder, cfg.GeocodeCacheSize)
		if err != nil {
			return nil, err
		}
		geocoder = cached
	}

	opts := []Option{WithLogger(log)}
	if metrics != nil {
		opts = append(opts, WithMetrics(metrics))
	}
	return New(Settings{
		Aperture:       cfg.Aperture(),
		BodyRadius:     cfg.BodyRadius,
		Scheme:         scheme,
		GeocodeTimeout: cfg.GeocodeTimeout,
	}, geocoder, opts...), nil
}
