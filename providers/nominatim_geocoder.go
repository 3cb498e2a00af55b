package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"skycast.app/config"
	"skycast.app/errors"
	"skycast.app/models"
)

// userAgent identifies the service to the geocoding API, which rejects
// anonymous clients.
const userAgent = "skycast-weather-service/1.0"

// NominatimGeocoder implements Geocoder against the OpenStreetMap Nominatim
// API
type NominatimGeocoder struct {
	baseURL string
	client  *http.Client
}

func NewNominatimGeocoder(cfg *config.GeocoderConfig) *NominatimGeocoder {
	return &NominatimGeocoder{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
	} `json:"address"`
}

// placeName prefers the most specific settlement name over the full
// comma-separated display name.
func (p nominatimPlace) placeName() string {
	switch {
	case p.Address.City != "":
		return p.Address.City
	case p.Address.Town != "":
		return p.Address.Town
	case p.Address.Village != "":
		return p.Address.Village
	default:
		return p.DisplayName
	}
}

// Forward geocodes a place name to coordinates
func (g *NominatimGeocoder) Forward(ctx context.Context, placeName string) (models.Location, error) {
	if placeName == "" {
		return models.Location{}, errors.NewValidationError("place name cannot be empty")
	}

	query := url.Values{}
	query.Set("q", placeName)
	query.Set("format", "json")
	query.Set("limit", "1")

	var places []nominatimPlace
	if err := g.get(ctx, "/search", query, &places); err != nil {
		return models.Location{}, err
	}

	if len(places) == 0 {
		return models.Location{}, errors.NewNotFoundError(
			fmt.Sprintf("no location found for %q", placeName))
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return models.Location{}, errors.NewFetchError("invalid latitude in geocoding response", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return models.Location{}, errors.NewFetchError("invalid longitude in geocoding response", err)
	}

	return models.Location{
		Latitude:  lat,
		Longitude: lon,
		Name:      places[0].placeName(),
	}, nil
}

// Reverse geocodes coordinates to a display name
func (g *NominatimGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lon))
	query.Set("format", "json")

	var place nominatimPlace
	if err := g.get(ctx, "/reverse", query, &place); err != nil {
		return "", err
	}

	name := place.placeName()
	if name == "" {
		return "", errors.NewNotFoundError("no place name for coordinates")
	}
	return name, nil
}

func (g *NominatimGeocoder) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s%s?%s", g.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.NewFetchError("failed to build geocoding request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.NewFetchError("geocoding request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.NewFetchError(
			fmt.Sprintf("geocoding API returned status code %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewFetchError("failed to decode geocoding response", err)
	}
	return nil
}
