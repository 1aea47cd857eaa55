// Package geocoding resolves conference coordinates to a city name.
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoCity is returned when the lookup succeeded but the place has no city,
// town or village (open sea, wilderness).
var ErrNoCity = errors.New("no city at coordinates")

// Geocoder turns coordinates into a city name.
type Geocoder interface {
	ReverseCity(ctx context.Context, lat, lon float64) (string, error)
}

// NominatimClient talks to an OpenStreetMap Nominatim instance. Nominatim's usage
// policy asks for an identifying User-Agent and at most one request per second,
// so every call waits on the limiter first.
type NominatimClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	RPS       float64
}

func NewNominatimClient(cfg NominatimConfig) *NominatimClient {
	rps := cfg.RPS
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NominatimClient{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type reverseResponse struct {
	Error   string `json:"error"`
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
	} `json:"address"`
}

func (c *NominatimClient) ReverseCity(ctx context.Context, lat, lon float64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("geocoding rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build reverse request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse request: unexpected status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode reverse response: %w", err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrNoCity, body.Error)
	}

	switch {
	case body.Address.City != "":
		return body.Address.City, nil
	case body.Address.Town != "":
		return body.Address.Town, nil
	case body.Address.Village != "":
		return body.Address.Village, nil
	}
	return "", ErrNoCity
}
