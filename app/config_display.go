package app

import (
	"log"
	"strings"

	"skycast.app/config"
)

// ConfigDisplayer handles configuration display for startup debugging
type ConfigDisplayer struct{}

// NewConfigDisplayer creates a new configuration displayer
func NewConfigDisplayer() *ConfigDisplayer {
	return &ConfigDisplayer{}
}

// PrintConfig prints all fields in the configuration
func (cd *ConfigDisplayer) PrintConfig(cfg *config.Config) {
	log.Println("==== APPLICATION CONFIGURATION ====")

	log.Printf("SERVER:\n")
	log.Printf("  Port: %d\n", cfg.Server.Port)

	log.Printf("\nWEATHER API:\n")
	log.Printf("  API Key: %s\n", cd.maskString(cfg.Weather.APIKey))
	log.Printf("  Base URL: %s\n", cfg.Weather.BaseURL)
	log.Printf("  Daily Horizon: %d days (pages of %d)\n", cfg.Weather.DailyHorizonDays, cfg.Weather.DailyPageSize)
	log.Printf("  Hourly Horizon: %d hours\n", cfg.Weather.HourlyHorizon)
	log.Printf("  Snapshot TTL: %d minutes\n", cfg.Weather.SnapshotTTLMinutes)

	log.Printf("\nGEOCODER:\n")
	log.Printf("  Backend: %s\n", cfg.Geocoder.Backend)
	log.Printf("  Base URL: %s\n", cfg.Geocoder.BaseURL)
	log.Printf("  Reverse Timeout: %s\n", cfg.Geocoder.ReverseTimeout)

	log.Printf("\nCACHE:\n")
	log.Printf("  Type: %s\n", cfg.Cache.Type)
	log.Printf("  Redis Addr: %s\n", cfg.Cache.RedisAddr)

	log.Printf("\nSTORAGE:\n")
	log.Printf("  Driver: %s\n", cfg.Storage.Driver)

	log.Printf("\nSCHEDULER:\n")
	log.Printf("  Refresh Interval: %d minutes\n", cfg.Scheduler.RefreshInterval)

	log.Println("===================================")
}

// maskString hides all but the first and last characters of sensitive values
func (cd *ConfigDisplayer) maskString(s string) string {
	if len(s) <= 2 {
		return strings.Repeat("*", len(s))
	}
	return s[:1] + strings.Repeat("*", len(s)-2) + s[len(s)-1:]
}
