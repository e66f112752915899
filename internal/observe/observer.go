// Package observe runs one visibility observation end to end: it validates the inputs,
// searches the pixel index and resolves the place name concurrently, then derives the
// solid angle, cone angle and ground area of the visible sky.
package observe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/owlpinetech/healpix"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/owlpinetech/skyview"
	"github.com/owlpinetech/skyview/internal/logging"
	"github.com/owlpinetech/skyview/internal/observability"
)

// Metrics records observation outcomes. *observability.Collector satisfies it.
type Metrics interface {
	ObserveVisibility(outcome string, pixels int, solidAngle float64, elapsed time.Duration)
	ObserveGeocode(outcome string)
}

// Pixel index the observer searches. HealpixIndex satisfies it.
type Index interface {
	skyview.SphericalPixelIndex
	ZenithPixel(dir skyview.Direction) (int, error)
	Project(dir skyview.Direction) skyview.ProjectedLocation
}

// Builds the index for a validated resolution.
type IndexFactory func(res skyview.Resolution, scheme healpix.HealpixScheme) (Index, error)

func HealpixFactory(res skyview.Resolution, scheme healpix.HealpixScheme) (Index, error) {
	return skyview.NewHealpixIndex(res, scheme)
}

// Settings fixes the parameters shared by every observation.
type Settings struct {
	Aperture       float64 // cone search radius, radians
	BodyRadius     float64 // meters
	Scheme         healpix.HealpixScheme
	GeocodeTimeout time.Duration
}

// DefaultSettings observes with a one degree aperture on the Earth, nested numbering.
func DefaultSettings() Settings {
	return Settings{
		Aperture:       skyview.Radians(1),
		BodyRadius:     skyview.EarthMeanRadius,
		Scheme:         healpix.NestScheme,
		GeocodeTimeout: 10 * time.Second,
	}
}

type Option func(*Observer)

func WithLogger(log logging.Logger) Option {
	return func(o *Observer) { o.log = logging.OrNoop(log) }
}

func WithMetrics(m Metrics) Option {
	return func(o *Observer) { o.metrics = m }
}

func WithIndexFactory(f IndexFactory) Option {
	return func(o *Observer) { o.newIndex = f }
}

type Observer struct {
	settings Settings
	geocoder skyview.Geocoder
	newIndex IndexFactory
	metrics  Metrics
	log      logging.Logger
	tracer   trace.Tracer
}

func New(settings Settings, geocoder skyview.Geocoder, opts ...Option) *Observer {
	o := &Observer{
		settings: settings,
		geocoder: geocoder,
		newIndex: HealpixFactory,
		log:      logging.Noop(),
		tracer:   otel.Tracer("github.com/owlpinetech/skyview/internal/observe"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Observer) Settings() Settings {
	return o.settings
}

// Observe computes the visible sky for an observer at dir, viewing at the given HEALPix
// resolution. Geocoding failures never fail the observation; they are carried in the
// report's place description.
func (o *Observer) Observe(ctx context.Context, resolution int, dir skyview.Direction) (report Report, err error) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "observe.Observe", trace.WithAttributes(
		attribute.Int("resolution", resolution),
		attribute.Float64("longitude", dir.Longitude),
		attribute.Float64("latitude", dir.Latitude),
	))
	defer func() {
		outcome := outcomeOf(err)
		o.recordVisibility(outcome, report.Visibility, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	log := o.log.With(
		logging.Int("resolution", resolution),
		logging.Float("longitude", dir.Longitude),
		logging.Float("latitude", dir.Latitude),
	)

	res, err := skyview.ValidateResolution(resolution)
	if err != nil {
		log.Info(ctx, "rejected resolution", logging.Err(err))
		return Report{}, err
	}
	if err := dir.Validate(); err != nil {
		log.Info(ctx, "rejected direction", logging.Err(err))
		return Report{}, err
	}
	index, err := o.newIndex(res, o.settings.Scheme)
	if err != nil {
		log.Info(ctx, "could not build pixel index", logging.Err(err))
		return Report{}, err
	}

	var (
		pixels skyview.PixelSet
		place  skyview.PlaceDescription
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		_, searchSpan := o.tracer.Start(gctx, "observe.ConeSearch")
		defer searchSpan.End()
		found, err := index.ConeSearch(dir, o.settings.Aperture)
		if err != nil {
			searchSpan.RecordError(err)
			return fmt.Errorf("cone search: %w", err)
		}
		searchSpan.SetAttributes(attribute.Int("pixels", found.Len()))
		pixels = found
		return nil
	})
	group.Go(func() error {
		place = o.lookup(ctx, dir)
		return nil
	})
	if err := group.Wait(); err != nil {
		log.Warn(ctx, "cone search failed", logging.Err(err))
		return Report{}, err
	}

	vis, err := skyview.ComputeVisibility(index, pixels, o.settings.BodyRadius)
	if err != nil {
		var domain *skyview.NumericDomainError
		if errors.As(err, &domain) {
			log.Error(ctx, "pixel index returned an impossible result",
				logging.String("quantity", domain.Quantity),
				logging.Float("value", domain.Value),
				logging.Int("index_size", index.Size()),
				logging.Err(err),
			)
		}
		return Report{}, err
	}

	zenith, err := index.ZenithPixel(dir)
	if err != nil {
		return Report{}, err
	}
	projected := index.Project(dir)

	log.Debug(ctx, "observation complete",
		logging.Int("visible_pixels", vis.VisiblePixels),
		logging.Float("solid_angle", vis.SolidAngle),
		logging.String("place", place.Outcome.String()),
	)
	return Report{
		Direction:   dir,
		Resolution:  int(res),
		Aperture:    o.settings.Aperture,
		ZenithPixel: zenith,
		Projected:   projected,
		Visibility:  vis,
		Place:       place,
	}, nil
}

// Runs on the caller's context rather than the errgroup's: a failed cone search must not
// cancel the lookup.
func (o *Observer) lookup(ctx context.Context, dir skyview.Direction) skyview.PlaceDescription {
	if o.settings.GeocodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.settings.GeocodeTimeout)
		defer cancel()
	}
	ctx, span := o.tracer.Start(ctx, "observe.LookupPlace")
	defer span.End()

	place := skyview.LookupPlace(ctx, o.geocoder, dir)
	span.SetAttributes(attribute.String("outcome", place.Outcome.String()))
	if place.Outcome == skyview.PlaceError {
		span.RecordError(place.Err)
		o.log.Warn(ctx, "reverse geocoding failed",
			logging.Float("longitude", dir.Longitude),
			logging.Float("latitude", dir.Latitude),
			logging.Err(place.Err),
		)
	}
	if o.metrics != nil {
		o.metrics.ObserveGeocode(place.Outcome.String())
	}
	return place
}

func (o *Observer) recordVisibility(outcome string, vis skyview.Visibility, elapsed time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.ObserveVisibility(outcome, vis.VisiblePixels, vis.SolidAngle, elapsed)
}

// IsInputError reports whether err was caused by the caller's arguments rather than by
// the index or its dependencies.
func IsInputError(err error) bool {
	var bounds skyview.LocationOutOfBoundsError
	return errors.Is(err, skyview.ErrInvalidResolution) ||
		errors.Is(err, skyview.ErrNonPositiveRadius) ||
		errors.Is(err, skyview.ErrSearchTooLarge) ||
		errors.As(err, &bounds)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case IsInputError(err):
		return observability.OutcomeInvalidInput
	case errors.Is(err, skyview.ErrNumericDomain):
		return observability.OutcomeDomainError
	default:
		return observability.OutcomeError
	}
}
