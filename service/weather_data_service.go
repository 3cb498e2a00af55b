// Package service implements the weather data aggregator: it orchestrates
// the current/daily/hourly fetches for a location, exposes derived views,
// and owns the loading/error state consumers observe.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"skycast.app/cache"
	"skycast.app/config"
	"skycast.app/errors"
	"skycast.app/models"
	"skycast.app/providers"
)

// Status is the aggregator's consumer-visible state. Ready and Error are
// both sticky until the next request; there is no automatic retry.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusLoading       Status = "loading"
	StatusReady         Status = "ready"
	StatusError         Status = "error"
)

// Options configures a WeatherDataService.
type Options struct {
	Provider       providers.WeatherProvider
	Geocoder       providers.Geocoder
	LocationSource providers.LocationSource
	Snapshots      *cache.Coordinator
	Weather        *config.WeatherConfig
	ReverseTimeout time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// WeatherDataService populates a WeatherSnapshot for one location at a time
// and fans it out to all consumers. Mutation happens only inside the
// service; consumers read through the accessor methods.
type WeatherDataService struct {
	provider       providers.WeatherProvider
	geocoder       providers.Geocoder
	locationSource providers.LocationSource
	snapshots      *cache.Coordinator
	weather        *config.WeatherConfig
	reverseTimeout time.Duration
	now            func() time.Time

	mu       sync.RWMutex
	status   Status
	lastErr  error
	location models.Location
	snapshot *models.WeatherSnapshot
	months   []models.MonthForecast

	// coords is the most recently requested location with real coordinates.
	// Nil until the first RefreshForLocation, and in particular after a
	// permission-denied Initialize, where there is nothing to refresh.
	coords *models.Location

	// seq numbers refresh requests. A completion whose number is below the
	// latest issued one belongs to a superseded request and must not write.
	seq uint64
}

func NewWeatherDataService(opts Options) *WeatherDataService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	reverseTimeout := opts.ReverseTimeout
	if reverseTimeout <= 0 {
		reverseTimeout = 8 * time.Second
	}

	return &WeatherDataService{
		provider:       opts.Provider,
		geocoder:       opts.Geocoder,
		locationSource: opts.LocationSource,
		snapshots:      opts.Snapshots,
		weather:        opts.Weather,
		reverseTimeout: reverseTimeout,
		now:            now,
		status:         StatusUninitialized,
	}
}

// Initialize resolves the device/home location, reverse-geocodes a display
// name, and performs the first refresh.
func (s *WeatherDataService) Initialize(ctx context.Context) error {
	lat, lon, err := s.locationSource.CurrentLocation(ctx)
	if err != nil {
		s.mu.Lock()
		s.status = StatusError
		s.lastErr = err
		s.location = models.Location{Name: "Location Off"}
		s.mu.Unlock()
		return err
	}

	location := models.Location{
		Latitude:  lat,
		Longitude: lon,
		Name:      s.resolveDisplayName(ctx, lat, lon),
	}

	return s.RefreshForLocation(ctx, location)
}

// RefreshForLocation fetches a complete snapshot for the location and
// atomically replaces the current one. On any failure the previous snapshot
// stays untouched; consumers keep seeing last-known data.
func (s *WeatherDataService) RefreshForLocation(ctx context.Context, location models.Location) error {
	return s.refreshLocation(ctx, location, false)
}

func (s *WeatherDataService) refreshLocation(ctx context.Context, location models.Location, force bool) error {
	seq := s.beginLocationRequest(location)

	getData := s.snapshots.GetData
	if force {
		getData = s.snapshots.ForceRefresh
	}

	payload, err := getData(ctx, location.Key(), func(ctx context.Context) ([]byte, error) {
		snapshot, fetchErr := s.fetchSnapshot(ctx, location)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return json.Marshal(snapshot)
	})
	if err != nil {
		s.completeError(seq, err)
		return err
	}
	if payload == nil {
		// Offline with nothing cached for this location.
		offlineErr := errors.NewFetchError("offline and no cached data for location", nil)
		s.completeError(seq, offlineErr)
		return offlineErr
	}

	var snapshot models.WeatherSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		decodeErr := errors.NewStorageError("unreadable cached snapshot", err)
		s.completeError(seq, decodeErr)
		return decodeErr
	}

	// A cached snapshot may predate the display name the caller resolved.
	if location.Name != "" {
		snapshot.Location.Name = location.Name
	}

	s.completeSuccess(seq, &snapshot)
	return nil
}

// ChangeLocation forward-geocodes a user-entered place name and refreshes
// for the match. When the name matches nothing, the error state is set and
// the existing snapshot and displayed location stay unchanged.
func (s *WeatherDataService) ChangeLocation(ctx context.Context, placeName string) error {
	seq := s.beginRequest()

	location, err := s.geocoder.Forward(ctx, placeName)
	if err != nil {
		s.completeError(seq, err)
		return err
	}
	if location.Name == "" {
		location.Name = placeName
	}

	return s.RefreshForLocation(ctx, location)
}

// Refresh forces a refetch for the current location, ignoring the cache TTL.
// Mirrors the consumer-triggered pull-to-refresh. The cached entry is only
// replaced when the forced fetch succeeds; a failure keeps serving the
// last-known data. Without usable coordinates there is nothing to refresh:
// a permission-denied initialization stays denied until the consumer
// supplies a location.
func (s *WeatherDataService) Refresh(ctx context.Context) error {
	s.mu.RLock()
	coords := s.coords
	lastErr := s.lastErr
	initialized := s.status != StatusUninitialized
	s.mu.RUnlock()

	if !initialized {
		return errors.NewValidationError("refresh before initialization")
	}
	if coords == nil {
		if lastErr != nil {
			return lastErr
		}
		return errors.NewValidationError("no location to refresh")
	}

	return s.refreshLocation(ctx, *coords, true)
}

// Snapshot returns the current snapshot, or false before the first
// successful refresh.
func (s *WeatherDataService) Snapshot() (models.WeatherSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return models.WeatherSnapshot{}, false
	}
	return *s.snapshot, true
}

// Months returns the calendar-grouped view of the daily series.
func (s *WeatherDataService) Months() []models.MonthForecast {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.months
}

// Location returns the location consumers should display.
func (s *WeatherDataService) Location() models.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

// Status returns the aggregator state.
func (s *WeatherDataService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Loading reports whether a refresh is in flight. While true, consumers may
// keep displaying the previous snapshot but must not trust it to match the
// requested location yet.
func (s *WeatherDataService) Loading() bool {
	return s.Status() == StatusLoading
}

// Err returns the error from the most recent failed request, or nil.
func (s *WeatherDataService) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// fetchSnapshot issues the three fetches in sequence: current conditions,
// daily pages until the horizon (a short page ends the loop), then hourly.
func (s *WeatherDataService) fetchSnapshot(ctx context.Context, location models.Location) (*models.WeatherSnapshot, error) {
	current, err := s.provider.FetchCurrent(ctx, location.Latitude, location.Longitude)
	if err != nil {
		return nil, err
	}

	var daily []models.DailyForecast
	startDate := s.now()
	for len(daily) < s.weather.DailyHorizonDays {
		fetchDays := s.weather.DailyHorizonDays - len(daily)
		if fetchDays > s.weather.DailyPageSize {
			fetchDays = s.weather.DailyPageSize
		}

		page, err := s.provider.FetchDaily(ctx, location.Latitude, location.Longitude, fetchDays, startDate)
		if err != nil {
			return nil, err
		}

		daily = append(daily, page...)
		if len(page) < fetchDays {
			// Provider has no more data; stop paging rather than retry.
			break
		}
		startDate = startDate.AddDate(0, 0, fetchDays)
	}

	hourly, err := s.provider.FetchHourly(ctx, location.Latitude, location.Longitude, s.weather.HourlyHorizon)
	if err != nil {
		return nil, err
	}

	return &models.WeatherSnapshot{
		Location:  location,
		FetchedAt: s.now(),
		Current:   current,
		Daily:     daily,
		Hourly:    hourly,
	}, nil
}

// resolveDisplayName races reverse geocoding against its deadline and falls
// back to the raw coordinates. The timeout is never surfaced as a failure.
func (s *WeatherDataService) resolveDisplayName(ctx context.Context, lat, lon float64) string {
	fallback := models.Location{Latitude: lat, Longitude: lon}.CoordinateString()

	ctx, cancel := context.WithTimeout(ctx, s.reverseTimeout)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		name, err := s.geocoder.Reverse(ctx, lat, lon)
		done <- result{name: name, err: err}
	}()

	select {
	case <-ctx.Done():
		slog.Warn("reverse geocoding timed out", "lat", lat, "lon", lon)
		return fallback
	case r := <-done:
		if r.err != nil || r.name == "" {
			slog.Warn("reverse geocoding failed", "error", r.err, "lat", lat, "lon", lon)
			return fallback
		}
		return r.name
	}
}

// beginRequest moves the state machine to Loading and issues the request's
// sequence number.
func (s *WeatherDataService) beginRequest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.status = StatusLoading
	return s.seq
}

// beginLocationRequest additionally records the requested coordinates; the
// latest issued request owns them even before it completes.
func (s *WeatherDataService) beginLocationRequest(location models.Location) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.status = StatusLoading
	s.coords = &location
	return s.seq
}

// completeSuccess atomically replaces the snapshot and its derived views,
// unless a newer request has been issued since seq.
func (s *WeatherDataService) completeSuccess(seq uint64, snapshot *models.WeatherSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		slog.Debug("discarding superseded refresh result", "seq", seq, "latest", s.seq)
		return
	}

	s.snapshot = snapshot
	s.months = models.GroupByMonth(snapshot.Daily)
	s.location = snapshot.Location
	s.status = StatusReady
	s.lastErr = nil
}

// completeError records the failure, leaving the previous snapshot and
// displayed location untouched.
func (s *WeatherDataService) completeError(seq uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		slog.Debug("discarding superseded refresh failure", "seq", seq, "latest", s.seq)
		return
	}

	s.status = StatusError
	s.lastErr = err
}
