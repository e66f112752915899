package skyview

import (
	"math"
)

const (
	// Mean radius of the Earth in meters, the default body for ground-projected areas.
	EarthMeanRadius float64 = 6_371_000

	// Solid angle of the full sphere in steradians.
	FullSphere float64 = 4 * math.Pi

	// Relative slack allowed on the solid angle before a value past 4π is treated as a
	// domain violation rather than floating point noise.
	solidAngleTolerance = 1e-9
)

// The result of one visibility computation. Angles in radians, solid angles in steradians,
// areas in square meters of the body the computation was made for.
type Visibility struct {
	VisiblePixels int     `json:"visiblePixels"`
	TotalPixels   int     `json:"totalPixels"`
	PixelArea     float64 `json:"pixelArea"`
	SolidAngle    float64 `json:"solidAngle"`
	SurfaceArea   float64 `json:"surfaceArea"`
	ConeAngle     float64 `json:"coneAngle"`
	BodyRadius    float64 `json:"bodyRadius"`
}

// Aggregate solid angle of the pixels, each of which covers pixelArea steradians. An empty
// set covers nothing.
func SolidAngleOf(pixels PixelSet, pixelArea float64) float64 {
	return float64(pixels.Len()) * pixelArea
}

// Ground-projected area of a solid angle on a sphere of the given radius: Ω·R².
func AreaOf(solidAngle float64, radius float64) float64 {
	return solidAngle * radius * radius
}

// Full opening angle of the cone whose spherical cap has the given solid angle, from
// Ω = 2π(1 − cos(θ/2)):
//
//	θ = 2·acos(1 − Ω/2π)
//
// Ω must lie in [0, 4π].
func ConeAngleOf(solidAngle float64) (float64, error) {
	if math.IsNaN(solidAngle) ||
		solidAngle < -FullSphere*solidAngleTolerance ||
		solidAngle > FullSphere*(1+solidAngleTolerance) {
		return 0, NewNumericDomainError("solid angle", solidAngle, 0, FullSphere)
	}
	cos := 1 - solidAngle/(2*math.Pi)
	cos = math.Max(-1, math.Min(1, cos))
	return 2 * math.Acos(cos), nil
}

// Solid angle of the spherical cap seen under the given full cone angle.
func CapSolidAngle(coneAngle float64) float64 {
	return 2 * math.Pi * (1 - math.Cos(coneAngle/2))
}

// Runs the three conversions over the result of a cone search. The pixel count is checked
// against the index size first, since a larger count can only come from a misbehaving index.
func ComputeVisibility(index SphericalPixelIndex, pixels PixelSet, bodyRadius float64) (Visibility, error) {
	total := index.Size()
	if pixels.Len() > total {
		return Visibility{}, NewNumericDomainError("visible pixel count", float64(pixels.Len()), 0, float64(total))
	}

	pixelArea := index.PixelArea()
	solidAngle := SolidAngleOf(pixels, pixelArea)
	coneAngle, err := ConeAngleOf(solidAngle)
	if err != nil {
		return Visibility{}, err
	}
	return Visibility{
		VisiblePixels: pixels.Len(),
		TotalPixels:   total,
		PixelArea:     pixelArea,
		SolidAngle:    solidAngle,
		SurfaceArea:   AreaOf(solidAngle, bodyRadius),
		ConeAngle:     coneAngle,
		BodyRadius:    bodyRadius,
	}, nil
}

func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func Degrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Converts steradians to square degrees.
func SquareDegrees(steradians float64) float64 {
	return steradians * (180 / math.Pi) * (180 / math.Pi)
}
