package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"
	"skycast.app/errors"
	"skycast.app/models"
)

// GoogleGeocoder implements Geocoder against the Google Geocoding API.
// The underlying library holds the API key in package state, so only one
// GoogleGeocoder should exist per process.
type GoogleGeocoder struct{}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{}
}

// Forward geocodes a place name to coordinates
func (g *GoogleGeocoder) Forward(ctx context.Context, placeName string) (models.Location, error) {
	if placeName == "" {
		return models.Location{}, errors.NewValidationError("place name cannot be empty")
	}

	location, err := geocoder.Geocoding(geocoder.Address{City: placeName})
	if err != nil {
		return models.Location{}, errors.NewNotFoundError(
			fmt.Sprintf("no location found for %q", placeName))
	}

	return models.Location{
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
		Name:      placeName,
	}, nil
}

// Reverse geocodes coordinates to a display name
func (g *GoogleGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	addresses, err := geocoder.GeocodingReverse(geocoder.Location{
		Latitude:  lat,
		Longitude: lon,
	})
	if err != nil {
		return "", errors.NewFetchError("reverse geocoding failed", err)
	}
	if len(addresses) == 0 {
		return "", errors.NewNotFoundError("no place name for coordinates")
	}

	address := addresses[0]
	if address.City != "" {
		return address.City, nil
	}

	parts := make([]string, 0, 2)
	if address.State != "" {
		parts = append(parts, address.State)
	}
	if address.Country != "" {
		parts = append(parts, address.Country)
	}
	if len(parts) == 0 {
		return "", errors.NewNotFoundError("no place name for coordinates")
	}
	return strings.Join(parts, ", "), nil
}
