package skyview

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubGeocoder struct {
	addr  Address
	err   error
	panic any
}

func (s stubGeocoder) Name() string { return "stub" }

func (s stubGeocoder) Reverse(context.Context, Direction) (Address, error) {
	if s.panic != nil {
		panic(s.panic)
	}
	return s.addr, s.err
}

func TestLookupPlace(t *testing.T) {
	boom := errors.New("connection refused")

	testCases := []struct {
		name          string
		geocoder      Geocoder
		expectOutcome PlaceOutcome
		expectText    string
	}{
		{"found", stubGeocoder{addr: Address{Found: true, DisplayName: "Kitt Peak, Arizona"}}, PlaceFound, "Kitt Peak, Arizona"},
		{"not found", stubGeocoder{addr: Address{Found: false}}, PlaceNotFound, "Location not found"},
		{"error", stubGeocoder{err: boom}, PlaceError, "Error: connection refused"},
		{"panic", stubGeocoder{panic: "provider exploded"}, PlaceError, "Error: geocoder stub panicked: provider exploded"},
		{"nil geocoder", nil, PlaceError, "Error: no geocoder configured"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var place PlaceDescription
			assert.NotPanics(t, func() {
				place = LookupPlace(context.Background(), tc.geocoder, NewDirection(-111.6, 31.96))
			})
			assert.Equal(t, tc.expectOutcome, place.Outcome)
			assert.Equal(t, tc.expectText, place.String())
		})
	}
}

func TestLookupPlaceKeepsCause(t *testing.T) {
	cause := context.DeadlineExceeded
	place := LookupPlace(context.Background(), stubGeocoder{err: cause}, NewDirection(0, 0))
	assert.ErrorIs(t, place.Err, context.DeadlineExceeded)
}

func TestPlaceDescriptionJSON(t *testing.T) {
	place := PlaceDescription{Outcome: PlaceError, Err: errors.New("timeout")}
	data, err := place.MarshalJSON()
	assert.NoError(t, err)
	assert.JSONEq(t, `{"outcome":"error","description":"Error: timeout","error":"timeout"}`, string(data))

	place = PlaceDescription{Outcome: PlaceFound, Address: Address{Found: true, DisplayName: "Mauna Kea", CacheHit: true}}
	data, err = place.MarshalJSON()
	assert.NoError(t, err)
	assert.JSONEq(t, `{"outcome":"found","description":"Mauna Kea","cacheHit":true}`, string(data))
}
