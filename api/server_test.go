package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"skycast.app/cache"
	"skycast.app/config"
	skyerr "skycast.app/errors"
	"skycast.app/models"
	"skycast.app/service"
	"skycast.app/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProvider struct {
	mu           sync.Mutex
	currentCalls int
	fail         error

	// blockLat makes fetches for that latitude park on release, so tests
	// can overlap two in-flight requests deterministically.
	blockLat  float64
	started   chan struct{}
	release   chan struct{}
	startOnce sync.Once
}

func (p *fakeProvider) FetchCurrent(ctx context.Context, lat, lon float64) (*models.CurrentConditions, error) {
	p.mu.Lock()
	p.currentCalls++
	fail := p.fail
	block := p.blockLat != 0 && lat == p.blockLat
	p.mu.Unlock()

	if block {
		p.startOnce.Do(func() { close(p.started) })
		<-p.release
	}

	if fail != nil {
		return nil, fail
	}
	return &models.CurrentConditions{Temperature: lat, Description: "clear sky"}, nil
}

func (p *fakeProvider) FetchDaily(ctx context.Context, lat, lon float64, days int, startDate time.Time) ([]models.DailyForecast, error) {
	if p.fail != nil {
		return nil, p.fail
	}
	daily := make([]models.DailyForecast, days)
	for i := range daily {
		daily[i] = models.DailyForecast{Date: startDate.AddDate(0, 0, i), TempMax: lat}
	}
	return daily, nil
}

func (p *fakeProvider) FetchHourly(ctx context.Context, lat, lon float64, hours int) ([]models.HourlyForecast, error) {
	if p.fail != nil {
		return nil, p.fail
	}
	hourly := make([]models.HourlyForecast, hours)
	for i := range hourly {
		hourly[i] = models.HourlyForecast{Timestamp: time.Now().Add(time.Duration(i) * time.Hour), Temperature: lat}
	}
	return hourly, nil
}

type fakeGeocoder struct{}

func (g *fakeGeocoder) Forward(ctx context.Context, placeName string) (models.Location, error) {
	if placeName == "Nowhereville" {
		return models.Location{}, skyerr.NewNotFoundError("no location found for place name")
	}
	return models.Location{Latitude: 5.6037, Longitude: -0.187, Name: placeName}, nil
}

func (g *fakeGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	return "Accra", nil
}

type fakeOnline struct {
	online bool
}

func (f *fakeOnline) IsOnline() bool { return f.online }

type apiFixture struct {
	router   *gin.Engine
	provider *fakeProvider
	store    *store.MemoryStore
}

func newAPIFixture() *apiFixture {
	f := &apiFixture{
		provider: &fakeProvider{},
		store:    store.NewMemoryStore(),
	}
	online := &fakeOnline{online: true}

	cfg := &config.Config{}
	cfg.Server.Port = 8080
	cfg.Weather = config.WeatherConfig{
		APIKey:             "test-key",
		DailyHorizonDays:   3,
		DailyPageSize:      15,
		HourlyHorizon:      2,
		SnapshotTTLMinutes: 30,
	}

	snapshots := cache.NewCoordinator(cache.Options{
		Store:  f.store,
		Online: online,
		TTL:    cfg.Weather.SnapshotTTL(),
	})
	geocodeCache := cache.NewCoordinator(cache.Options{
		Store:  f.store,
		Online: online,
		TTL:    24 * time.Hour,
	})

	geocoder := &fakeGeocoder{}
	weatherService := service.NewWeatherDataService(service.Options{
		Provider:  f.provider,
		Geocoder:  geocoder,
		Snapshots: snapshots,
		Weather:   &cfg.Weather,
	})

	server := NewServer(Options{
		Config:         cfg,
		WeatherService: weatherService,
		Geocoder:       geocoder,
		Snapshots:      snapshots,
		GeocodeCache:   geocodeCache,
		Store:          f.store,
	})
	f.router = server.GetRouter()
	return f
}

func (f *apiFixture) request(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture()

	w := f.request(t, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRequestIDHeader(t *testing.T) {
	f := newAPIFixture()

	t.Run("generated when absent", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/healthz", "")
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("echoed when supplied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-ID", "client-id-123")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, "client-id-123", w.Header().Get("X-Request-ID"))
	})
}

func TestGetCurrentWeather(t *testing.T) {
	f := newAPIFixture()

	t.Run("success", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/weather/current?lat=5.6037&lon=-0.187", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"temperature":5.6037`)
		assert.Contains(t, w.Body.String(), "clear sky")
	})

	t.Run("second call served from cache", func(t *testing.T) {
		f.request(t, http.MethodGet, "/api/weather/current?lat=5.6037&lon=-0.187", "")
		assert.Equal(t, 1, f.provider.currentCalls)
	})

	t.Run("missing coordinates", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/weather/current", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "lat and lon")
	})

	t.Run("invalid latitude", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/weather/current?lat=91&lon=0", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetForecastEndpoints(t *testing.T) {
	f := newAPIFixture()
	query := "?lat=5.6037&lon=-0.187"

	t.Run("daily", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/weather/daily"+query, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"daily"`)
	})

	t.Run("hourly", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/weather/hourly"+query, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"hourly"`)
	})

	t.Run("months", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/weather/months"+query, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"months"`)
	})

	t.Run("all", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/weather/all"+query, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"current"`)
		assert.Contains(t, w.Body.String(), `"daily"`)
		assert.Contains(t, w.Body.String(), `"hourly"`)
	})
}

func TestUpstreamFailureMapsToServiceUnavailable(t *testing.T) {
	f := newAPIFixture()
	f.provider.fail = skyerr.NewFetchError("upstream unavailable", nil)

	w := f.request(t, http.MethodGet, "/api/weather/current?lat=5.6037&lon=-0.187", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Upstream service unavailable")
}

func TestFailedRefreshServesStaleSnapshot(t *testing.T) {
	f := newAPIFixture()
	query := "?lat=5.6037&lon=-0.187"

	w := f.request(t, http.MethodGet, "/api/weather/current"+query, "")
	require.Equal(t, http.StatusOK, w.Code)

	// Drop the cache so the next request must refetch, then fail upstream.
	w = f.request(t, http.MethodDelete, "/api/cache/clear", "")
	require.Equal(t, http.StatusOK, w.Code)
	f.provider.fail = skyerr.NewFetchError("upstream unavailable", nil)

	w = f.request(t, http.MethodGet, "/api/weather/current"+query, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"temperature":5.6037`)
}

func TestSupersededRequestServesNoForeignSnapshot(t *testing.T) {
	f := newAPIFixture()
	f.provider.blockLat = 6.6885
	f.provider.started = make(chan struct{})
	f.provider.release = make(chan struct{})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- f.request(t, http.MethodGet, "/api/weather/current?lat=6.6885&lon=-1.6244", "")
	}()

	<-f.provider.started

	// A request for another location completes while the first is still
	// fetching, superseding it.
	w := f.request(t, http.MethodGet, "/api/weather/current?lat=5.6037&lon=-0.187", "")
	require.Equal(t, http.StatusOK, w.Code)

	close(f.provider.release)
	blocked := <-done

	// The superseded request must not be answered with the other
	// location's snapshot.
	assert.Equal(t, http.StatusServiceUnavailable, blocked.Code)
	assert.NotContains(t, blocked.Body.String(), "5.6037")
}

func TestRefreshEndpoint(t *testing.T) {
	f := newAPIFixture()

	t.Run("before any location", func(t *testing.T) {
		w := f.request(t, http.MethodPost, "/api/weather/refresh", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("after a location is known", func(t *testing.T) {
		f.request(t, http.MethodGet, "/api/weather/current?lat=5.6037&lon=-0.187", "")

		w := f.request(t, http.MethodPost, "/api/weather/refresh", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, f.provider.currentCalls)
	})
}

func TestGeocodeEndpoint(t *testing.T) {
	f := newAPIFixture()

	t.Run("match", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/location/geocode?city=Accra", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Accra")
		assert.Contains(t, w.Body.String(), "5.6037")
	})

	t.Run("no match", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/location/geocode?city=Nowhereville", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing city", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/location/geocode", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("blank city", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/location/geocode?city=%20%20", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReverseGeocodeEndpoint(t *testing.T) {
	f := newAPIFixture()

	w := f.request(t, http.MethodGet, "/api/location/reverse?lat=5.6037&lon=-0.187", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Accra")
}

func TestChangeLocationEndpoint(t *testing.T) {
	f := newAPIFixture()

	t.Run("success", func(t *testing.T) {
		w := f.request(t, http.MethodPost, "/api/location/change", `{"city":"Accra"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Accra")
	})

	t.Run("unknown place", func(t *testing.T) {
		w := f.request(t, http.MethodPost, "/api/location/change", `{"city":"Nowhereville"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing city", func(t *testing.T) {
		w := f.request(t, http.MethodPost, "/api/location/change", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCacheEndpoints(t *testing.T) {
	f := newAPIFixture()

	t.Run("stats", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/cache/stats", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "caches")
	})

	t.Run("clear forces refetch", func(t *testing.T) {
		query := "?lat=5.6037&lon=-0.187"
		f.request(t, http.MethodGet, "/api/weather/current"+query, "")
		require.Equal(t, 1, f.provider.currentCalls)

		w := f.request(t, http.MethodDelete, "/api/cache/clear", "")
		assert.Equal(t, http.StatusOK, w.Code)

		f.request(t, http.MethodGet, "/api/weather/current"+query, "")
		assert.Equal(t, 2, f.provider.currentCalls)
	})
}
