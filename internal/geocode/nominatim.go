// Package geocode resolves park addresses to coordinates and
// coordinates back to states using Nominatim.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"parkatlas/internal/models"
	"parkatlas/internal/normalize"
)

// MinImportance is the confidence floor below which a forward-geocode
// hit is treated as a miss. Nominatim happily returns a vaguely
// related town for garbage input.
const MinImportance = 0.7

// Geocoder handles geocoding using Nominatim
type Geocoder struct {
	client    *http.Client
	userAgent string
	baseURL   string
}

// NominatimResult represents one Nominatim hit
type NominatimResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
	Address     struct {
		State string `json:"state"`
	} `json:"address"`
}

// NewGeocoder creates a Nominatim geocoder against the public instance
func NewGeocoder() *Geocoder {
	return &Geocoder{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		userAgent: "ParkAtlas/1.0 (protected-area data pipeline)",
		baseURL:   "https://nominatim.openstreetmap.org",
	}
}

// Geocode converts an address to coordinates. Results below
// MinImportance are rejected.
func (g *Geocoder) Geocode(ctx context.Context, address string) (lat, lng float64, err error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("countrycodes", "us")

	var results []NominatimResult
	if err := g.get(ctx, "/search", params, &results); err != nil {
		return 0, 0, err
	}

	if len(results) == 0 {
		return 0, 0, fmt.Errorf("no results found for address: %s", address)
	}

	result := results[0]
	if result.Importance < MinImportance {
		return 0, 0, fmt.Errorf("low-confidence match for %s (importance %.2f)", address, result.Importance)
	}

	if _, err := fmt.Sscanf(result.Lat, "%f", &lat); err != nil {
		return 0, 0, fmt.Errorf("failed to parse latitude: %w", err)
	}
	if _, err := fmt.Sscanf(result.Lon, "%f", &lng); err != nil {
		return 0, 0, fmt.Errorf("failed to parse longitude: %w", err)
	}

	return lat, lng, nil
}

// ReverseGeocode converts coordinates to a two-letter state code, or
// models.StateUnknown when the point resolves outside any state.
func (g *Geocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lng))
	params.Set("format", "json")

	var result NominatimResult
	if err := g.get(ctx, "/reverse", params, &result); err != nil {
		return "", err
	}

	if result.Address.State == "" {
		return models.StateUnknown, nil
	}
	return normalize.State(result.Address.State), nil
}

func (g *Geocoder) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s%s?%s", g.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Nominatim requires a valid User-Agent
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
