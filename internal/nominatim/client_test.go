package nominatim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owlpinetech/skyview"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL:   srv.URL,
		UserAgent: "sky_view_project",
		Language:  "en",
		Rate:      1000,
		Timeout:   2 * time.Second,
	})
}

func TestReverseFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "31.9583", r.URL.Query().Get("lat"))
		assert.Equal(t, "-111.5967", r.URL.Query().Get("lon"))
		assert.Equal(t, "en", r.URL.Query().Get("accept-language"))
		assert.Equal(t, "sky_view_project", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"lat": "31.9584", "lon": "-111.5968",
			"display_name": "Kitt Peak National Observatory, Pima County, Arizona, United States",
			"address": {"town": "Sells", "county": "Pima County", "state": "Arizona", "country": "United States", "country_code": "us"}
		}`))
	})

	addr, err := client.Reverse(context.Background(), skyview.NewDirection(-111.5967, 31.9583))
	require.NoError(t, err)
	assert.True(t, addr.Found)
	assert.Equal(t, "Kitt Peak National Observatory, Pima County, Arizona, United States", addr.DisplayName)
	assert.Equal(t, "Sells", addr.City)
	assert.Equal(t, "us", addr.CountryCode)
	assert.InDelta(t, 31.9584, addr.Latitude, 1e-9)
	assert.Equal(t, "nominatim", addr.ProviderName)
}

func TestReverseNormalizesLongitude(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "-90", r.URL.Query().Get("lon"))
		_, _ = w.Write([]byte(`{"error": "Unable to geocode"}`))
	})
	_, err := client.Reverse(context.Background(), skyview.NewDirection(270, 0))
	require.NoError(t, err)
}

func TestReverseNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Unable to geocode"}`))
	})

	addr, err := client.Reverse(context.Background(), skyview.NewDirection(-140, -50))
	require.NoError(t, err)
	assert.False(t, addr.Found)

	place := skyview.LookupPlace(context.Background(), client, skyview.NewDirection(-140, -50))
	assert.Equal(t, skyview.PlaceNotFound, place.Outcome)
	assert.Equal(t, "Location not found", place.String())
}

func TestReverseHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := client.Reverse(context.Background(), skyview.NewDirection(0, 0))
	require.Error(t, err)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "slow down")

	place := skyview.LookupPlace(context.Background(), client, skyview.NewDirection(0, 0))
	assert.Equal(t, skyview.PlaceError, place.Outcome)
	assert.Contains(t, place.String(), "Error: nominatim returned 429")
}

func TestReverseMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := client.Reverse(context.Background(), skyview.NewDirection(0, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestReverseHonorsContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Reverse(ctx, skyview.NewDirection(0, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
