package providers

import (
	"context"
	"time"

	"skycast.app/models"
)

// WeatherProvider defines the interface for upstream weather data providers
type WeatherProvider interface {
	FetchCurrent(ctx context.Context, lat, lon float64) (*models.CurrentConditions, error)

	// FetchDaily returns at most days forecast days starting at startDate.
	// Returning fewer days than requested means the provider has no more
	// data for the range.
	FetchDaily(ctx context.Context, lat, lon float64, days int, startDate time.Time) ([]models.DailyForecast, error)

	FetchHourly(ctx context.Context, lat, lon float64, hours int) ([]models.HourlyForecast, error)
}

// Geocoder resolves place names to coordinates and back
type Geocoder interface {
	// Forward returns coordinates for a place name, or a NotFoundError
	// when the name matches nothing.
	Forward(ctx context.Context, placeName string) (models.Location, error)

	// Reverse returns a best-effort display name for coordinates.
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// LocationSource supplies the device or home coordinates used when a
// consumer initializes without an explicit location
type LocationSource interface {
	// CurrentLocation returns coordinates, or a PermissionDeniedError when
	// no location is available.
	CurrentLocation(ctx context.Context) (lat, lon float64, err error)
}
