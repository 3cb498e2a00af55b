package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"skycast.app/api"
	"skycast.app/cache"
	"skycast.app/config"
	"skycast.app/connectivity"
	"skycast.app/metrics"
	"skycast.app/providers"
	"skycast.app/scheduler"
	"skycast.app/service"
	"skycast.app/store"
)

// Application represents the main application with all its dependencies
type Application struct {
	config         *config.Config
	monitor        *connectivity.Monitor
	store          store.PersistentStore
	weatherService *service.WeatherDataService
	server         *api.Server
	scheduler      *scheduler.Scheduler
}

// NewApplication creates and initializes a new application instance
func NewApplication() (*Application, error) {
	app := &Application{}

	if err := app.loadConfiguration(); err != nil {
		return nil, err
	}

	if err := app.initializeStore(); err != nil {
		return nil, err
	}

	if err := app.initializeServices(); err != nil {
		return nil, err
	}

	return app, nil
}

func (app *Application) loadConfiguration() error {
	slog.Info("Loading configuration...")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("load application configuration: %w", err)
	}

	app.config = cfg
	slog.Info("Configuration loaded successfully")
	return nil
}

// initializeStore selects the persistent store backend: Redis when the
// cache is configured for it, otherwise the relational store, otherwise
// memory.
func (app *Application) initializeStore() error {
	slog.Info("Initializing persistent store...")

	if app.config.Cache.Type == "redis" {
		redisStore, err := store.NewRedisStore(&app.config.Cache)
		if err != nil {
			slog.Error("Failed to connect to redis", "error", err)
			return fmt.Errorf("initialize redis store: %w", err)
		}
		app.store = redisStore
		return nil
	}

	if app.config.Storage.Driver != "none" {
		gormStore, err := store.NewGormStore(&app.config.Storage)
		if err != nil {
			slog.Error("Failed to open storage database", "error", err)
			return fmt.Errorf("initialize relational store: %w", err)
		}
		app.store = gormStore
		return nil
	}

	app.store = store.NewMemoryStore()
	return nil
}

func (app *Application) initializeServices() error {
	slog.Info("Initializing services...")

	app.monitor = connectivity.NewMonitor()

	snapshots := cache.NewCoordinator(cache.Options{
		Store:     app.store,
		Online:    app.monitor,
		TTL:       app.config.Weather.SnapshotTTL(),
		KeyPrefix: "skycast:snapshot:",
		Metrics:   metrics.NewCacheMetrics("snapshot"),
	})
	geocodeCache := cache.NewCoordinator(cache.Options{
		Store:     app.store,
		Online:    app.monitor,
		TTL:       time.Duration(app.config.Geocoder.CacheTTLHours) * time.Hour,
		KeyPrefix: "skycast:geocode:",
		Metrics:   metrics.NewCacheMetrics("geocode"),
	})

	weatherProvider := providers.NewWeatherLoggerDecorator(
		providers.NewWeatherbitProvider(&app.config.Weather), "weatherbit")

	geocoder, err := app.createGeocoder()
	if err != nil {
		return err
	}
	geocoder = providers.NewGeocoderCacheProxy(geocoder, geocodeCache)

	app.weatherService = service.NewWeatherDataService(service.Options{
		Provider:       weatherProvider,
		Geocoder:       geocoder,
		LocationSource: providers.NewStaticLocationSource(&app.config.Location),
		Snapshots:      snapshots,
		Weather:        &app.config.Weather,
		ReverseTimeout: app.config.Geocoder.ReverseTimeout,
	})

	app.server = api.NewServer(api.Options{
		Config:         app.config,
		WeatherService: app.weatherService,
		Geocoder:       geocoder,
		Snapshots:      snapshots,
		GeocodeCache:   geocodeCache,
		Store:          app.store,
	})
	app.scheduler = scheduler.NewScheduler(app.weatherService, &app.config.Scheduler)

	slog.Info("Services initialized successfully")
	return nil
}

func (app *Application) createGeocoder() (providers.Geocoder, error) {
	switch app.config.Geocoder.Backend {
	case "google":
		return providers.NewGoogleGeocoder(app.config.Geocoder.GoogleAPIKey), nil
	default:
		return providers.NewNominatimGeocoder(&app.config.Geocoder), nil
	}
}

// Monitor returns the connectivity monitor so platform integrations can
// feed network events into it.
func (app *Application) Monitor() *connectivity.Monitor {
	return app.monitor
}

// warmUp performs the first refresh for the configured home location so the
// cache is populated before the first request arrives. Skipped when no home
// location is set; a failure is logged, not fatal.
func (app *Application) warmUp(ctx context.Context) {
	if !app.config.Location.IsSet() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := app.weatherService.Initialize(ctx); err != nil {
		slog.Warn("home location warm-up failed", "error", err)
		return
	}
	slog.Info("home location warmed up", "location", app.weatherService.Location().Name)
}

// Start starts the application
func (app *Application) Start() error {
	slog.Info("Starting application...")

	app.warmUp(context.Background())

	if err := app.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	slog.Info("Starting HTTP server", "port", app.config.Server.Port)
	return app.server.Start()
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	slog.Info("Shutting down application...")

	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	if redisStore, ok := app.store.(*store.RedisStore); ok {
		if err := redisStore.Close(); err != nil {
			slog.Warn("Error closing redis store", "error", err)
		}
	}

	slog.Info("Application shutdown complete")
	return nil
}

// Config returns the application configuration
func (app *Application) Config() *config.Config {
	return app.config
}
