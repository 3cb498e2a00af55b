// Package models defines data structures used throughout the application
package models

import (
	"fmt"
	"time"
)

// Location identifies the place a snapshot was fetched for. A new Location
// supersedes the old one and triggers a full refetch; the struct itself is
// never mutated after construction.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
}

// Key returns a stable cache key for the location. Coordinates are rounded
// to four decimal places (~11m) so GPS jitter maps to the same key.
func (l Location) Key() string {
	return fmt.Sprintf("%.4f:%.4f", l.Latitude, l.Longitude)
}

// CoordinateString is the display-name fallback used when reverse geocoding
// fails or times out.
func (l Location) CoordinateString() string {
	return fmt.Sprintf("%.4f, %.4f", l.Latitude, l.Longitude)
}

// CurrentConditions represents the latest observed weather for a location.
type CurrentConditions struct {
	ObservedAt  time.Time `json:"observed_at"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"`
	Pressure    float64   `json:"pressure"`
	Description string    `json:"description"`
	IconCode    string    `json:"icon_code"`
}

// DailyForecast represents one forecast day.
type DailyForecast struct {
	Date          time.Time `json:"date"`
	TempMin       float64   `json:"temp_min"`
	TempMax       float64   `json:"temp_max"`
	Precipitation float64   `json:"precipitation"`
	PrecipChance  int       `json:"precip_chance"`
	Humidity      float64   `json:"humidity"`
	WindSpeed     float64   `json:"wind_speed"`
	Description   string    `json:"description"`
	IconCode      string    `json:"icon_code"`
}

// HourlyForecast represents one forecast hour.
type HourlyForecast struct {
	Timestamp     time.Time `json:"timestamp"`
	Temperature   float64   `json:"temperature"`
	FeelsLike     float64   `json:"feels_like"`
	Precipitation float64   `json:"precipitation"`
	PrecipChance  int       `json:"precip_chance"`
	WindSpeed     float64   `json:"wind_speed"`
	Description   string    `json:"description"`
	IconCode      string    `json:"icon_code"`
}

// WeatherSnapshot is the complete, internally consistent set of weather data
// for one location at one point in time. It is always replaced as a whole;
// consumers never observe a mix of data from two locations.
type WeatherSnapshot struct {
	Location  Location         `json:"location"`
	FetchedAt time.Time        `json:"fetched_at"`
	Current   *CurrentConditions `json:"current"`
	Daily     []DailyForecast  `json:"daily"`
	Hourly    []HourlyForecast `json:"hourly"`
}

// MonthForecast is one calendar month of the daily series, used for
// calendar-style presentation. Derived from WeatherSnapshot.Daily, never
// stored independently.
type MonthForecast struct {
	Name  string          `json:"name"`
	Year  int             `json:"year"`
	Month time.Month      `json:"month"`
	Days  []DailyForecast `json:"days"`
}

// CachedEntry is the persisted form of one cache cell, keyed by location.
// Stored through the relational PersistentStore backend.
type CachedEntry struct {
	Key       string    `json:"key" gorm:"primaryKey;size:128"`
	Blob      []byte    `json:"-" gorm:"type:blob"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CoordinatesRequest carries the lat/lon query parameters of the weather
// endpoints.
type CoordinatesRequest struct {
	Latitude  *float64 `form:"lat" binding:"required,latitude"`
	Longitude *float64 `form:"lon" binding:"required,longitude"`
}

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}
