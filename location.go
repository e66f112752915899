package skyview

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

type Location interface{}

type IndexLocation int

type RingLocation int

type NestLocation int

type UniqueLocation int

// A point on the sphere in radians, latitude first.
type SphericalLocation struct {
	Latitude  float64
	Longitude float64
}

// A point in the planar space of a projection.
type ProjectedLocation struct {
	X float64
	Y float64
}

// The observer's zenith direction, in degrees. Latitude is bounded to [-90, 90],
// longitude may be given in either [-180, 180) or [0, 360) and wraps.
type Direction struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

func NewDirection(longitude float64, latitude float64) Direction {
	return Direction{Longitude: longitude, Latitude: latitude}
}

// Creates a direction from an orb point, which stores longitude before latitude.
func DirectionFromPoint(p orb.Point) Direction {
	return Direction{Longitude: p.Lon(), Latitude: p.Lat()}
}

func (d Direction) Point() orb.Point {
	return orb.Point{d.Longitude, d.Latitude}
}

// Checks the latitude bound. Longitude is never out of range, only unnormalized.
func (d Direction) Validate() error {
	if math.IsNaN(d.Latitude) || math.IsNaN(d.Longitude) || math.IsInf(d.Longitude, 0) {
		return NewLocationOutOfBoundsError(d)
	}
	if d.Latitude < -90 || d.Latitude > 90 {
		return NewLocationOutOfBoundsError(d)
	}
	return nil
}

// Longitude wrapped into [-180, 180).
func (d Direction) NormalizedLongitude() float64 {
	if d.Longitude >= -180 && d.Longitude < 180 {
		return d.Longitude
	}
	lon := math.Mod(d.Longitude+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// The direction in radians, with longitude in [0, 2π) as the HEALPix projection expects.
func (d Direction) ToSpherical() SphericalLocation {
	lon := math.Mod(d.Longitude, 360)
	if lon < 0 {
		lon += 360
	}
	if lon >= 360 {
		lon = 0
	}
	return SphericalLocation{
		Latitude:  Radians(d.Latitude),
		Longitude: wrapRadians(Radians(lon)),
	}
}

// Wraps a longitude in radians into [0, 2π).
func wrapRadians(lon float64) float64 {
	lon = math.Mod(lon, 2*math.Pi)
	if lon < 0 {
		lon += 2 * math.Pi
	}
	if lon >= 2*math.Pi {
		return 0
	}
	return lon
}

func (d Direction) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", d.Longitude, d.Latitude)
}
