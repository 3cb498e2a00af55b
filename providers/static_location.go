package providers

import (
	"context"

	"skycast.app/config"
	"skycast.app/errors"
)

// StaticLocationSource serves the configured home location. A server has no
// device GPS; clients normally pass explicit coordinates, and this source
// only backs the initialize-without-location path.
type StaticLocationSource struct {
	latitude  float64
	longitude float64
	set       bool
}

func NewStaticLocationSource(cfg *config.LocationConfig) *StaticLocationSource {
	return &StaticLocationSource{
		latitude:  cfg.DefaultLatitude,
		longitude: cfg.DefaultLongitude,
		set:       cfg.IsSet(),
	}
}

func (s *StaticLocationSource) CurrentLocation(ctx context.Context) (float64, float64, error) {
	if !s.set {
		return 0, 0, errors.NewPermissionDeniedError("no location configured and none supplied")
	}
	return s.latitude, s.longitude, nil
}
