package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"skycast.app/config"
	"skycast.app/errors"
	"skycast.app/models"
)

// WeatherbitProvider implements WeatherProvider for the Weatherbit API
type WeatherbitProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	backoff BackoffConfig
}

// NewWeatherbitProvider creates a new Weatherbit provider
func NewWeatherbitProvider(cfg *config.WeatherConfig) *WeatherbitProvider {
	return &WeatherbitProvider{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: newBreaker("weatherbit"),
		backoff: DefaultBackoff(),
	}
}

type weatherbitWeather struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type weatherbitCurrent struct {
	ObservedTS  int64             `json:"ts"`
	Temperature float64           `json:"temp"`
	FeelsLike   float64           `json:"app_temp"`
	Humidity    float64           `json:"rh"`
	WindSpeed   float64           `json:"wind_spd"`
	Pressure    float64           `json:"pres"`
	Weather     weatherbitWeather `json:"weather"`
}

type weatherbitDaily struct {
	ValidDate    string            `json:"valid_date"`
	TempMin      float64           `json:"min_temp"`
	TempMax      float64           `json:"max_temp"`
	Precip       float64           `json:"precip"`
	PrecipChance int               `json:"pop"`
	Humidity     float64           `json:"rh"`
	WindSpeed    float64           `json:"wind_spd"`
	Weather      weatherbitWeather `json:"weather"`
}

type weatherbitHourly struct {
	TimestampUTC string            `json:"timestamp_utc"`
	Temperature  float64           `json:"temp"`
	FeelsLike    float64           `json:"app_temp"`
	Precip       float64           `json:"precip"`
	PrecipChance int               `json:"pop"`
	WindSpeed    float64           `json:"wind_spd"`
	Weather      weatherbitWeather `json:"weather"`
}

// FetchCurrent retrieves current conditions for the coordinates
func (p *WeatherbitProvider) FetchCurrent(ctx context.Context, lat, lon float64) (*models.CurrentConditions, error) {
	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lon))

	var payload struct {
		Data []weatherbitCurrent `json:"data"`
	}
	if err := p.get(ctx, "/current", query, &payload); err != nil {
		return nil, err
	}

	if len(payload.Data) == 0 {
		return nil, errors.NewFetchError("current conditions response contained no data", nil)
	}

	obs := payload.Data[0]
	return &models.CurrentConditions{
		ObservedAt:  time.Unix(obs.ObservedTS, 0).UTC(),
		Temperature: obs.Temperature,
		FeelsLike:   obs.FeelsLike,
		Humidity:    obs.Humidity,
		WindSpeed:   obs.WindSpeed,
		Pressure:    obs.Pressure,
		Description: obs.Weather.Description,
		IconCode:    obs.Weather.Icon,
	}, nil
}

// FetchDaily retrieves one page of the daily forecast starting at startDate
func (p *WeatherbitProvider) FetchDaily(ctx context.Context, lat, lon float64, days int, startDate time.Time) ([]models.DailyForecast, error) {
	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lon))
	query.Set("days", fmt.Sprintf("%d", days))
	if !startDate.IsZero() {
		query.Set("start_date", startDate.Format("2006-01-02"))
	}

	var payload struct {
		Data []weatherbitDaily `json:"data"`
	}
	if err := p.get(ctx, "/forecast/daily", query, &payload); err != nil {
		return nil, err
	}

	forecast := make([]models.DailyForecast, 0, len(payload.Data))
	for _, day := range payload.Data {
		date, err := time.Parse("2006-01-02", day.ValidDate)
		if err != nil {
			return nil, errors.NewFetchError(
				fmt.Sprintf("invalid forecast date: %s", day.ValidDate), err)
		}
		forecast = append(forecast, models.DailyForecast{
			Date:          date,
			TempMin:       day.TempMin,
			TempMax:       day.TempMax,
			Precipitation: day.Precip,
			PrecipChance:  day.PrecipChance,
			Humidity:      day.Humidity,
			WindSpeed:     day.WindSpeed,
			Description:   day.Weather.Description,
			IconCode:      day.Weather.Icon,
		})
	}
	return forecast, nil
}

// FetchHourly retrieves the hourly forecast for the horizon in one call
func (p *WeatherbitProvider) FetchHourly(ctx context.Context, lat, lon float64, hours int) ([]models.HourlyForecast, error) {
	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lon))
	query.Set("hours", fmt.Sprintf("%d", hours))

	var payload struct {
		Data []weatherbitHourly `json:"data"`
	}
	if err := p.get(ctx, "/forecast/hourly", query, &payload); err != nil {
		return nil, err
	}

	forecast := make([]models.HourlyForecast, 0, len(payload.Data))
	for _, hour := range payload.Data {
		ts, err := time.Parse("2006-01-02T15:04:05", hour.TimestampUTC)
		if err != nil {
			return nil, errors.NewFetchError(
				fmt.Sprintf("invalid forecast timestamp: %s", hour.TimestampUTC), err)
		}
		forecast = append(forecast, models.HourlyForecast{
			Timestamp:     ts,
			Temperature:   hour.Temperature,
			FeelsLike:     hour.FeelsLike,
			Precipitation: hour.Precip,
			PrecipChance:  hour.PrecipChance,
			WindSpeed:     hour.WindSpeed,
			Description:   hour.Weather.Description,
			IconCode:      hour.Weather.Icon,
		})
	}
	return forecast, nil
}

func (p *WeatherbitProvider) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	query.Set("key", p.apiKey)
	endpoint := fmt.Sprintf("%s%s?%s", p.baseURL, path, query.Encode())

	resp, err := doWithResilience(ctx, p.client, p.breaker, p.backoff, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return errors.NewFetchError("failed to get weather data", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.NewFetchError(
			fmt.Sprintf("weather API returned status code %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewFetchError("failed to decode weather data", err)
	}
	return nil
}
