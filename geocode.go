package skyview

import (
	"context"
	"encoding/json"
	"fmt"
)

const NotFoundDescription = "Location not found"

// Address returned by a reverse geocoder. Found is false when the provider answered but
// had nothing at the coordinates.
type Address struct {
	Found    bool
	CacheHit bool

	Latitude     float64
	Longitude    float64
	DisplayName  string
	Country      string
	CountryCode  string
	State        string
	County       string
	City         string
	Suburb       string
	Road         string
	HouseNumber  string
	Postcode     string
	ProviderName string
}

// Resolves coordinates to a place. Implementations are fallible network dependencies;
// LookupPlace is the boundary that turns their failures into data.
type Geocoder interface {
	Name() string
	Reverse(ctx context.Context, dir Direction) (Address, error)
}

type PlaceOutcome int

const (
	PlaceFound PlaceOutcome = iota
	PlaceNotFound
	PlaceError
)

func (p PlaceOutcome) String() string {
	switch p {
	case PlaceFound:
		return "found"
	case PlaceNotFound:
		return "not_found"
	case PlaceError:
		return "error"
	}
	return "unknown"
}

// Result of a reverse lookup. Exactly one of Address (for PlaceFound) or Err (for
// PlaceError) is meaningful; PlaceNotFound carries neither.
type PlaceDescription struct {
	Outcome PlaceOutcome
	Address Address
	Err     error
}

func (p PlaceDescription) String() string {
	switch p.Outcome {
	case PlaceFound:
		return p.Address.DisplayName
	case PlaceNotFound:
		return NotFoundDescription
	default:
		return fmt.Sprintf("Error: %v", p.Err)
	}
}

func (p PlaceDescription) MarshalJSON() ([]byte, error) {
	out := struct {
		Outcome     string `json:"outcome"`
		Description string `json:"description"`
		CacheHit    bool   `json:"cacheHit,omitempty"`
		Error       string `json:"error,omitempty"`
	}{
		Outcome:     p.Outcome.String(),
		Description: p.String(),
		CacheHit:    p.Address.CacheHit,
	}
	if p.Err != nil {
		out.Error = p.Err.Error()
	}
	return json.Marshal(out)
}

// Reverse geocodes the direction and never fails: provider errors, panics, and empty
// answers all come back as a tagged PlaceDescription.
func LookupPlace(ctx context.Context, geocoder Geocoder, dir Direction) (place PlaceDescription) {
	if geocoder == nil {
		return PlaceDescription{Outcome: PlaceError, Err: fmt.Errorf("no geocoder configured")}
	}
	defer func() {
		if r := recover(); r != nil {
			place = PlaceDescription{Outcome: PlaceError, Err: fmt.Errorf("geocoder %s panicked: %v", geocoder.Name(), r)}
		}
	}()

	addr, err := geocoder.Reverse(ctx, dir)
	if err != nil {
		return PlaceDescription{Outcome: PlaceError, Err: err}
	}
	if !addr.Found {
		return PlaceDescription{Outcome: PlaceNotFound, Address: addr}
	}
	return PlaceDescription{Outcome: PlaceFound, Address: addr}
}
