package skyview

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidResolution = errors.New("resolution must be a positive power of 2")
	ErrNumericDomain     = errors.New("numeric domain violation")
	ErrNonPositiveRadius = errors.New("search radius must be positive")
	ErrSearchTooLarge    = errors.New("cone search exceeds the pixel budget")
)

// Returned when a requested pixelization resolution is not a positive power of two, or
// is finer than the pixelization library can index.
type InvalidResolutionError struct {
	Resolution int
	Reason     string
}

func NewInvalidResolutionError(resolution int, reason string) *InvalidResolutionError {
	return &InvalidResolutionError{
		Resolution: resolution,
		Reason:     reason,
	}
}

func (i InvalidResolutionError) Error() string {
	return fmt.Sprintf("invalid resolution %d: %s", i.Resolution, i.Reason)
}

func (i InvalidResolutionError) Unwrap() error {
	return ErrInvalidResolution
}

// Signals that a value reaching one of the closed-form conversions lies outside the
// range the conversion is defined on. This never comes from user input: it means the
// pixel index reported more coverage than the sphere has.
type NumericDomainError struct {
	Quantity string
	Value    float64
	Min      float64
	Max      float64
}

func NewNumericDomainError(quantity string, value float64, min float64, max float64) *NumericDomainError {
	return &NumericDomainError{
		Quantity: quantity,
		Value:    value,
		Min:      min,
		Max:      max,
	}
}

func (n NumericDomainError) Error() string {
	return fmt.Sprintf("%s %g outside of [%g, %g]", n.Quantity, n.Value, n.Min, n.Max)
}

func (n NumericDomainError) Unwrap() error {
	return ErrNumericDomain
}

// Returned by a cone search whose result would hold more pixels than a single search is
// allowed to materialize. Pick a coarser resolution or a narrower aperture.
type SearchTooLargeError struct {
	Resolution int
	Radius     float64
	Estimate   int
	Limit      int
}

func NewSearchTooLargeError(resolution int, radius float64, estimate int, limit int) *SearchTooLargeError {
	return &SearchTooLargeError{
		Resolution: resolution,
		Radius:     radius,
		Estimate:   estimate,
		Limit:      limit,
	}
}

func (s SearchTooLargeError) Error() string {
	return fmt.Sprintf("cone of radius %g rad at resolution %d covers about %d pixels, more than the limit of %d",
		s.Radius, s.Resolution, s.Estimate, s.Limit)
}

func (s SearchTooLargeError) Unwrap() error {
	return ErrSearchTooLarge
}

type LocationNotSupportedError struct {
	Indexer  string
	Location Location
}

func NewLocationNotSupportedError(indexer string, location Location) *LocationNotSupportedError {
	return &LocationNotSupportedError{
		Indexer:  indexer,
		Location: location,
	}
}

func (l LocationNotSupportedError) Error() string {
	return fmt.Sprintf("location %v not supported by indexer %s", l.Location, l.Indexer)
}

type LocationOutOfBoundsError struct {
	Location Location
}

func NewLocationOutOfBoundsError(location Location) LocationOutOfBoundsError {
	return LocationOutOfBoundsError{Location: location}
}

func (l LocationOutOfBoundsError) Error() string {
	return fmt.Sprintf("location %v was out of bounds", l.Location)
}
