package providers

import (
	"context"
	"log/slog"
	"time"

	"skycast.app/models"
)

// WeatherLoggerDecorator wraps a WeatherProvider and logs every call with
// its duration and outcome.
type WeatherLoggerDecorator struct {
	wrappedProvider WeatherProvider
	providerName    string
}

func NewWeatherLoggerDecorator(provider WeatherProvider, providerName string) WeatherProvider {
	return &WeatherLoggerDecorator{
		wrappedProvider: provider,
		providerName:    providerName,
	}
}

func (d *WeatherLoggerDecorator) FetchCurrent(ctx context.Context, lat, lon float64) (*models.CurrentConditions, error) {
	start := time.Now()
	current, err := d.wrappedProvider.FetchCurrent(ctx, lat, lon)
	d.log("current", start, err, "lat", lat, "lon", lon)
	return current, err
}

func (d *WeatherLoggerDecorator) FetchDaily(ctx context.Context, lat, lon float64, days int, startDate time.Time) ([]models.DailyForecast, error) {
	start := time.Now()
	daily, err := d.wrappedProvider.FetchDaily(ctx, lat, lon, days, startDate)
	d.log("daily", start, err, "lat", lat, "lon", lon, "days", days)
	return daily, err
}

func (d *WeatherLoggerDecorator) FetchHourly(ctx context.Context, lat, lon float64, hours int) ([]models.HourlyForecast, error) {
	start := time.Now()
	hourly, err := d.wrappedProvider.FetchHourly(ctx, lat, lon, hours)
	d.log("hourly", start, err, "lat", lat, "lon", lon, "hours", hours)
	return hourly, err
}

func (d *WeatherLoggerDecorator) log(operation string, start time.Time, err error, attrs ...any) {
	attrs = append(attrs,
		"provider", d.providerName,
		"operation", operation,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		slog.Error("provider request failed", append(attrs, "error", err)...)
		return
	}
	slog.Debug("provider request completed", attrs...)
}
