package skyview

import (
	"math/bits"

	"github.com/owlpinetech/healpix"
)

// Granularity of the HEALPix pixelization, commonly called nside. Always a power of
// two once it has passed through ValidateResolution.
type Resolution int

// Confirms that n is a legal pixelization resolution and returns it unchanged.
func ValidateResolution(n int) (Resolution, error) {
	if healpix.IsValidNSide(n) {
		return Resolution(n), nil
	}
	if n <= 0 {
		return 0, NewInvalidResolutionError(n, "must be positive")
	}
	return 0, NewInvalidResolutionError(n, "must be a power of 2")
}

// The HEALPix order k, where nside = 2^k.
func (r Resolution) Order() healpix.HealpixOrder {
	return healpix.HealpixOrder(bits.TrailingZeros(uint(r)))
}

// Total number of pixels covering the sphere, 12·N².
func (r Resolution) Pixels() int {
	return r.Order().Pixels()
}

// Solid angle of a single pixel in steradians. Computed in floating point so that very
// fine resolutions do not overflow.
func (r Resolution) PixelArea() float64 {
	n := float64(r)
	return FullSphere / (12 * n * n)
}
