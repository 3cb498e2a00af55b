package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"skycast.app/config"
	"skycast.app/errors"
)

func newWeatherbitTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/current", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"data":[{
			"ts": 1780315200,
			"temp": 28.5,
			"app_temp": 31.2,
			"rh": 74,
			"wind_spd": 3.1,
			"pres": 1012,
			"weather": {"description": "Scattered clouds", "icon": "c02d"}
		}]}`))
	})
	mux.HandleFunc("/forecast/daily", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("days"))
		w.Write([]byte(`{"data":[
			{"valid_date": "2026-06-01", "min_temp": 24, "max_temp": 31, "precip": 0.4, "pop": 20,
			 "rh": 70, "wind_spd": 2.5, "weather": {"description": "Light rain", "icon": "r01d"}},
			{"valid_date": "2026-06-02", "min_temp": 23, "max_temp": 30, "precip": 0, "pop": 5,
			 "rh": 65, "wind_spd": 2.0, "weather": {"description": "Clear sky", "icon": "c01d"}}
		]}`))
	})
	mux.HandleFunc("/forecast/hourly", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("hours"))
		w.Write([]byte(`{"data":[
			{"timestamp_utc": "2026-06-01T13:00:00", "temp": 29, "app_temp": 32, "precip": 0,
			 "pop": 10, "wind_spd": 3.0, "weather": {"description": "Clear sky", "icon": "c01d"}},
			{"timestamp_utc": "2026-06-01T14:00:00", "temp": 30, "app_temp": 33, "precip": 0,
			 "pop": 10, "wind_spd": 3.2, "weather": {"description": "Clear sky", "icon": "c01d"}}
		]}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestWeatherbitProvider(baseURL string) *WeatherbitProvider {
	return NewWeatherbitProvider(&config.WeatherConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
	})
}

func TestWeatherbitFetchCurrent(t *testing.T) {
	server := newWeatherbitTestServer(t)
	provider := newTestWeatherbitProvider(server.URL)

	current, err := provider.FetchCurrent(context.Background(), 5.6037, -0.187)

	require.NoError(t, err)
	assert.Equal(t, 28.5, current.Temperature)
	assert.Equal(t, 31.2, current.FeelsLike)
	assert.Equal(t, 74.0, current.Humidity)
	assert.Equal(t, "Scattered clouds", current.Description)
	assert.Equal(t, "c02d", current.IconCode)
	assert.Equal(t, time.Unix(1780315200, 0).UTC(), current.ObservedAt)
}

func TestWeatherbitFetchDaily(t *testing.T) {
	server := newWeatherbitTestServer(t)
	provider := newTestWeatherbitProvider(server.URL)

	start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	daily, err := provider.FetchDaily(context.Background(), 5.6037, -0.187, 2, start)

	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, start, daily[0].Date)
	assert.Equal(t, 24.0, daily[0].TempMin)
	assert.Equal(t, 31.0, daily[0].TempMax)
	assert.Equal(t, 20, daily[0].PrecipChance)
	assert.Equal(t, "Light rain", daily[0].Description)
	assert.Equal(t, start.AddDate(0, 0, 1), daily[1].Date)
}

func TestWeatherbitFetchHourly(t *testing.T) {
	server := newWeatherbitTestServer(t)
	provider := newTestWeatherbitProvider(server.URL)

	hourly, err := provider.FetchHourly(context.Background(), 5.6037, -0.187, 2)

	require.NoError(t, err)
	require.Len(t, hourly, 2)
	assert.Equal(t, 29.0, hourly[0].Temperature)
	assert.Equal(t, time.Date(2026, time.June, 1, 13, 0, 0, 0, time.UTC), hourly[0].Timestamp)
}

func TestWeatherbitErrorResponses(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()
		provider := newTestWeatherbitProvider(server.URL)

		_, err := provider.FetchCurrent(context.Background(), 5.6037, -0.187)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.FetchError))
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("empty data array", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[]}`))
		}))
		defer server.Close()
		provider := newTestWeatherbitProvider(server.URL)

		_, err := provider.FetchCurrent(context.Background(), 5.6037, -0.187)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.FetchError))
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()
		provider := newTestWeatherbitProvider(server.URL)

		_, err := provider.FetchHourly(context.Background(), 5.6037, -0.187, 2)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.FetchError))
	})

	t.Run("invalid forecast date", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[{"valid_date": "June 1st"}]}`))
		}))
		defer server.Close()
		provider := newTestWeatherbitProvider(server.URL)

		_, err := provider.FetchDaily(context.Background(), 5.6037, -0.187, 1, time.Time{})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.FetchError))
	})
}
