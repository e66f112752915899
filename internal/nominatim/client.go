// Package nominatim reverse geocodes observer coordinates with an OpenStreetMap
// Nominatim server.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/owlpinetech/skyview"
	"github.com/owlpinetech/skyview/internal/logging"
)

const (
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	DefaultZoom    = 18
)

type Options struct {
	BaseURL    string
	UserAgent  string
	Language   string
	Zoom       int
	Timeout    time.Duration
	Rate       float64 // requests per second, the public server allows one
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client is a skyview.Geocoder backed by the Nominatim /reverse endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	language   string
	zoom       int
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logging.Logger
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Zoom <= 0 {
		opts.Zoom = DefaultZoom
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:    opts.BaseURL,
		userAgent:  opts.UserAgent,
		language:   opts.Language,
		zoom:       opts.Zoom,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.Rate), 1),
		log:        logging.OrNoop(opts.Logger).With(logging.String("component", "nominatim")),
	}
}

func (c *Client) Name() string {
	return "nominatim"
}

// Reverse looks up the place at the direction. A response without a result is a
// not-found Address, not an error.
func (c *Client) Reverse(ctx context.Context, dir skyview.Direction) (skyview.Address, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return skyview.Address{}, fmt.Errorf("waiting for rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(dir), nil)
	if err != nil {
		return skyview.Address{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return skyview.Address{}, fmt.Errorf("reverse request: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug(ctx, "nominatim response",
		logging.Int("status", resp.StatusCode),
		logging.String("elapsed", time.Since(start).String()),
	)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return skyview.Address{}, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	var payload reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return skyview.Address{}, fmt.Errorf("decoding response: %w", err)
	}
	return payload.toAddress(dir), nil
}

func (c *Client) buildURL(dir skyview.Direction) string {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", strconv.FormatFloat(dir.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(dir.NormalizedLongitude(), 'f', -1, 64))
	params.Set("zoom", strconv.Itoa(c.zoom))
	params.Set("addressdetails", "1")
	if c.language != "" {
		params.Set("accept-language", c.language)
	}
	return fmt.Sprintf("%s/reverse?%s", c.baseURL, params.Encode())
}

// StatusError is returned for any non-200 answer from the server.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (s *StatusError) Error() string {
	return fmt.Sprintf("nominatim returned %s", s.Status)
}

// --- Nominatim jsonv2 response ---

type reverseResponse struct {
	Error       string         `json:"error"`
	Lat         string         `json:"lat"`
	Lon         string         `json:"lon"`
	DisplayName string         `json:"display_name"`
	Address     reverseAddress `json:"address"`
}

type reverseAddress struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	Suburb      string `json:"suburb"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	County      string `json:"county"`
	State       string `json:"state"`
	Postcode    string `json:"postcode"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

func (r reverseResponse) toAddress(dir skyview.Direction) skyview.Address {
	if r.Error != "" || r.DisplayName == "" {
		return skyview.Address{Found: false, Latitude: dir.Latitude, Longitude: dir.Longitude, ProviderName: "nominatim"}
	}

	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		lat = dir.Latitude
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		lon = dir.Longitude
	}
	city := r.Address.City
	if city == "" {
		city = r.Address.Town
	}
	if city == "" {
		city = r.Address.Village
	}
	return skyview.Address{
		Found:        true,
		Latitude:     lat,
		Longitude:    lon,
		DisplayName:  r.DisplayName,
		Country:      r.Address.Country,
		CountryCode:  r.Address.CountryCode,
		State:        r.Address.State,
		County:       r.Address.County,
		City:         city,
		Suburb:       r.Address.Suburb,
		Road:         r.Address.Road,
		HouseNumber:  r.Address.HouseNumber,
		Postcode:     r.Address.Postcode,
		ProviderName: "nominatim",
	}
}
