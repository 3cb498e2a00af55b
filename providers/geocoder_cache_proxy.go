package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"skycast.app/cache"
	"skycast.app/errors"
	"skycast.app/models"
)

// GeocoderCacheProxy caches geocoding results through a cache coordinator.
// Place names change rarely, so entries live far longer than weather data.
type GeocoderCacheProxy struct {
	realGeocoder Geocoder
	coordinator  *cache.Coordinator
}

func NewGeocoderCacheProxy(realGeocoder Geocoder, coordinator *cache.Coordinator) Geocoder {
	return &GeocoderCacheProxy{
		realGeocoder: realGeocoder,
		coordinator:  coordinator,
	}
}

// Forward resolves a place name through the cache
func (p *GeocoderCacheProxy) Forward(ctx context.Context, placeName string) (models.Location, error) {
	key := "fwd:" + strings.ToLower(strings.TrimSpace(placeName))

	payload, err := p.coordinator.GetData(ctx, key, func(ctx context.Context) ([]byte, error) {
		location, fwdErr := p.realGeocoder.Forward(ctx, placeName)
		if fwdErr != nil {
			return nil, fwdErr
		}
		return json.Marshal(location)
	})
	if err != nil {
		return models.Location{}, err
	}
	if payload == nil {
		return models.Location{}, errors.NewFetchError("geocoding unavailable offline", nil)
	}

	var location models.Location
	if jsonErr := json.Unmarshal(payload, &location); jsonErr != nil {
		slog.Warn("discarding unreadable cached geocode entry", "error", jsonErr, "key", key)
		return p.realGeocoder.Forward(ctx, placeName)
	}
	return location, nil
}

// Reverse resolves coordinates to a display name through the cache
func (p *GeocoderCacheProxy) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("rev:%.4f:%.4f", lat, lon)

	payload, err := p.coordinator.GetData(ctx, key, func(ctx context.Context) ([]byte, error) {
		name, revErr := p.realGeocoder.Reverse(ctx, lat, lon)
		if revErr != nil {
			return nil, revErr
		}
		return json.Marshal(name)
	})
	if err != nil {
		return "", err
	}
	if payload == nil {
		return "", errors.NewFetchError("geocoding unavailable offline", nil)
	}

	var name string
	if jsonErr := json.Unmarshal(payload, &name); jsonErr != nil {
		slog.Warn("discarding unreadable cached geocode entry", "error", jsonErr, "key", key)
		return p.realGeocoder.Reverse(ctx, lat, lon)
	}
	return name, nil
}
