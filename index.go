package skyview

import (
	"math"
	"slices"
	"sort"

	"github.com/owlpinetech/flatsphere"
	"github.com/owlpinetech/healpix"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"golang.org/x/exp/maps"
)

const (
	// Most pixels a single cone search may return.
	MaxConePixels = 1 << 22

	// Cone edge sampling density, in samples per pixel width.
	samplesPerPixel     = 4
	minPerimeterSamples = 8
)

// Capability consumed by the visibility computation. Pixel identifiers are opaque: only
// the cardinality of a search result is meaningful to callers.
type SphericalPixelIndex interface {
	// Pixels within radius (radians) of the direction.
	ConeSearch(dir Direction, radius float64) (PixelSet, error)
	// Solid angle of one pixel, steradians.
	PixelArea() float64
	// Total number of pixels on the sphere.
	Size() int
}

// Converts between the coordinate systems of a pixelization and its pixel indices.
type LocationIndexer interface {
	ToIndex(Location) (int, error)
	Projection() flatsphere.Projection
	Name() string
	Size() int
}

var (
	_ LocationIndexer     = HealpixIndex{}
	_ SphericalPixelIndex = HealpixIndex{}
)

// A set of opaque pixel identifiers.
type PixelSet map[int]struct{}

func NewPixelSet(ids ...int) PixelSet {
	set := make(PixelSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	return set
}

func (p PixelSet) Add(id int) {
	p[id] = struct{}{}
}

func (p PixelSet) Contains(id int) bool {
	_, ok := p[id]
	return ok
}

func (p PixelSet) Len() int {
	return len(p)
}

// Identifiers in ascending order.
func (p PixelSet) IDs() []int {
	ids := maps.Keys(p)
	slices.Sort(ids)
	return ids
}

// Pixelizes the sphere using the HEALPix method at a single resolution, where every pixel
// has the same angular area. Supports both ring and nested numbering schemes; the nested
// scheme is the default used by the observer pipeline.
type HealpixIndex struct {
	Scheme     healpix.HealpixScheme `json:"scheme"`
	Order      healpix.HealpixOrder  `json:"order"`
	Resolution Resolution            `json:"resolution"`
	proj       flatsphere.HEALPixStandard
}

func NewHealpixIndex(resolution Resolution, scheme healpix.HealpixScheme) (HealpixIndex, error) {
	if _, err := ValidateResolution(int(resolution)); err != nil {
		return HealpixIndex{}, err
	}
	if !healpix.IsValidOrder(int(resolution.Order())) {
		return HealpixIndex{}, NewInvalidResolutionError(int(resolution), "finer than the maximum HEALPix order")
	}
	return HealpixIndex{
		Scheme:     scheme,
		Order:      resolution.Order(),
		Resolution: resolution,
		proj:       flatsphere.NewHEALPixStandard(),
	}, nil
}

func (h HealpixIndex) Name() string {
	return "healpix"
}

func (h HealpixIndex) Projection() flatsphere.Projection {
	return h.proj
}

func (h HealpixIndex) Size() int {
	return h.Order.Pixels()
}

func (h HealpixIndex) PixelArea() float64 {
	return h.Resolution.PixelArea()
}

// Approximate angular width of a pixel in radians.
func (h HealpixIndex) PixelWidth() float64 {
	return math.Sqrt(h.PixelArea())
}

func (h HealpixIndex) ToIndex(loc Location) (int, error) {
	switch val := loc.(type) {
	case IndexLocation:
		return int(val), nil
	case RingLocation:
		return healpix.RingPixel(int(val)).PixelId(h.Order, h.Scheme), nil
	case NestLocation:
		return healpix.NestPixel(int(val)).PixelId(h.Order, h.Scheme), nil
	case UniqueLocation:
		return healpix.UniquePixel(int(val)).PixelId(h.Order, h.Scheme), nil
	case SphericalLocation:
		if val.Latitude < -math.Pi/2 || val.Latitude > math.Pi/2 {
			return -1, NewLocationOutOfBoundsError(loc)
		}
		return h.pixelOf(val.Latitude, val.Longitude), nil
	case ProjectedLocation:
		return healpix.NewProjectionCoordinate(val.X, val.Y).PixelId(h.Order, h.Scheme), nil
	case Direction:
		if err := val.Validate(); err != nil {
			return -1, err
		}
		return h.ToIndex(val.ToSpherical())
	default:
		return -1, NewLocationNotSupportedError(h.Name(), loc)
	}
}

// Position of the direction on the HEALPix plane.
func (h HealpixIndex) Project(dir Direction) ProjectedLocation {
	sph := dir.ToSpherical()
	x, y := h.proj.Project(sph.Latitude, sph.Longitude)
	return ProjectedLocation{X: x, Y: y}
}

// Collects every pixel touched by the spherical cap of the given angular radius around the
// direction. Pixels whose centers lie inside the cap are enumerated ring by ring; pixels
// that only overlap the cap's edge are found by sampling its perimeter at a quarter of the
// pixel width. Searches whose result would exceed MaxConePixels fail with a
// SearchTooLargeError instead of allocating.
func (h HealpixIndex) ConeSearch(dir Direction, radius float64) (PixelSet, error) {
	if err := dir.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(radius) || radius <= 0 {
		return nil, ErrNonPositiveRadius
	}
	if estimate := h.ConeEstimate(radius); estimate > MaxConePixels {
		return nil, NewSearchTooLargeError(int(h.Resolution), radius, estimate, MaxConePixels)
	}
	if radius >= math.Pi {
		all := make(PixelSet, h.Size())
		for i := 0; i < h.Size(); i++ {
			all.Add(i)
		}
		return all, nil
	}

	center := dir.ToSpherical()
	pixels := NewPixelSet(h.pixelOf(center.Latitude, center.Longitude))
	h.addCentersWithin(pixels, center, radius)
	h.addPerimeter(pixels, dir, radius)
	return pixels, nil
}

// Upper estimate of the number of pixels a cone search of the given radius returns: the
// pixels covering the cap plus two bands of pixels along its edge. Never more than Size.
func (h HealpixIndex) ConeEstimate(radius float64) int {
	if radius >= math.Pi {
		return h.Size()
	}
	covered := CapSolidAngle(2*radius) / h.PixelArea()
	edge := 2 * math.Pi * math.Sin(radius) / h.PixelWidth()
	estimate := math.Ceil(covered + 2*edge + 1)
	if estimate >= float64(h.Size()) {
		return h.Size()
	}
	return int(estimate)
}

// Walks the rings crossing the cap's latitude band and adds each pixel whose center is
// within radius of the center. Distances use the haversine form so that arcs far below
// the pixel width keep their precision.
func (h HealpixIndex) addCentersWithin(pixels PixelSet, center SphericalLocation, radius float64) {
	rings := h.Order.Rings()
	north := center.Latitude + radius
	south := center.Latitude - radius
	first := sort.Search(rings, func(i int) bool { return healpix.NewRing(h.Order, i).Latitude() <= north })
	last := sort.Search(rings, func(i int) bool { return healpix.NewRing(h.Order, i).Latitude() < south })

	halfChord := math.Sin(radius / 2)
	limit := halfChord * halfChord
	cosLat0 := math.Cos(center.Latitude)
	for r := first; r < last; r++ {
		ring := healpix.NewRing(h.Order, r)
		lat := ring.Latitude()
		dLat := math.Sin((lat - center.Latitude) / 2)
		rest := limit - dLat*dLat
		if rest < 0 {
			continue
		}
		weight := cosLat0 * math.Cos(lat)

		count := ring.Pixels()
		step := 2 * math.Pi / float64(count)
		start := healpix.NewRingCoordinate(r, 0).ToSphereCoordinate(h.Order).Longitude()
		lo, hi := 0, count-1
		if weight > 0 && rest < weight {
			half := 2 * math.Asin(math.Sqrt(rest/weight))
			lo = int(math.Floor((center.Longitude - half - start) / step))
			hi = int(math.Ceil((center.Longitude + half - start) / step))
			if hi-lo+1 >= count {
				lo, hi = 0, count-1
			}
		}
		for i := lo; i <= hi; i++ {
			j := ((i % count) + count) % count
			dLon := math.Sin((start + step*float64(j) - center.Longitude) / 2)
			if dLat*dLat+weight*dLon*dLon <= limit {
				pixels.Add(healpix.NewRingCoordinate(r, j).PixelId(h.Order, h.Scheme))
			}
		}
	}
}

// Adds the pixels under points spaced along the cap's edge.
func (h HealpixIndex) addPerimeter(pixels PixelSet, dir Direction, radius float64) {
	center := orb.Point{dir.NormalizedLongitude(), dir.Latitude}
	spacing := h.PixelWidth() / samplesPerPixel
	around := max(minPerimeterSamples, int(math.Ceil(2*math.Pi*math.Sin(radius)/spacing)))
	for j := 0; j < around; j++ {
		bearing := 360 * float64(j) / float64(around)
		pixels.Add(h.pixelAt(pointOnCap(center, radius, bearing)))
	}
}

// The point at angular distance radius from center along bearing, in degrees. Bearings are
// undefined at the poles, where they are taken as meridians instead.
func pointOnCap(center orb.Point, radius float64, bearing float64) orb.Point {
	switch center.Lat() {
	case 90:
		return orb.Point{bearing - 180, 90 - Degrees(radius)}
	case -90:
		return orb.Point{bearing, Degrees(radius) - 90}
	}
	return geo.PointAtBearingAndDistance(center, bearing, radius*orb.EarthRadius)
}

func (h HealpixIndex) pixelAt(p orb.Point) int {
	lat := math.Max(-90, math.Min(90, p.Lat()))
	sph := NewDirection(p.Lon(), lat).ToSpherical()
	return h.pixelOf(sph.Latitude, sph.Longitude)
}

// The pixel containing a point given in radians. Each pole is a vertex shared by the four
// pixels of the polar ring, so the pole itself belongs to the one whose quadrant holds lon.
func (h HealpixIndex) pixelOf(lat float64, lon float64) int {
	lon = wrapRadians(lon)
	if z := math.Sin(lat); z >= 1 || z <= -1 {
		ring := 0
		if z < 0 {
			ring = h.Order.Rings() - 1
		}
		quadrant := min(3, int(lon/(math.Pi/2)))
		return healpix.NewRingCoordinate(ring, quadrant).PixelId(h.Order, h.Scheme)
	}
	return healpix.NewLatLonCoordinate(lat, lon).PixelId(h.Order, h.Scheme)
}

// Great-circle separation of two directions in radians.
func AngularDistance(a Direction, b Direction) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point()) / orb.EarthRadius
}

// The pixel containing the direction itself.
func (h HealpixIndex) ZenithPixel(dir Direction) (int, error) {
	return h.ToIndex(dir)
}
