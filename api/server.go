// Package api exposes the REST surface the mobile client consumes.
package api

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"skycast.app/cache"
	"skycast.app/config"
	skyerr "skycast.app/errors"
	"skycast.app/metrics"
	"skycast.app/models"
	"skycast.app/providers"
	"skycast.app/service"
	"skycast.app/store"
)

// Server represents the HTTP server and API handler
type Server struct {
	router         *gin.Engine
	config         *config.Config
	weatherService *service.WeatherDataService
	geocoder       providers.Geocoder
	snapshots      *cache.Coordinator
	geocodeCache   *cache.Coordinator
	store          store.PersistentStore
}

// Options bundles the server's dependencies.
type Options struct {
	Config         *config.Config
	WeatherService *service.WeatherDataService
	Geocoder       providers.Geocoder
	Snapshots      *cache.Coordinator
	GeocodeCache   *cache.Coordinator
	Store          store.PersistentStore
}

// GeocodeRequest carries the city query parameter of the geocode endpoint
type GeocodeRequest struct {
	City string `form:"city" binding:"required,placename"`
}

// NewServer creates and configures a new HTTP server
func NewServer(opts Options) *Server {
	router := gin.Default()
	router.Use(requestID())

	registerValidations()

	server := &Server{
		router:         router,
		config:         opts.Config,
		weatherService: opts.WeatherService,
		geocoder:       opts.Geocoder,
		snapshots:      opts.Snapshots,
		geocodeCache:   opts.GeocodeCache,
		store:          opts.Store,
	}

	server.setupRoutes()
	return server
}

// registerValidations adds the placename rule used by GeocodeRequest.
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("placename", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	}
}

// requestID tags every request for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		weather := api.Group("/weather")
		{
			weather.GET("/current", s.getCurrentWeather)
			weather.GET("/daily", s.getDailyForecast)
			weather.GET("/hourly", s.getHourlyForecast)
			weather.GET("/months", s.getMonthlyForecast)
			weather.GET("/all", s.getAllWeatherData)
			weather.POST("/refresh", s.refresh)
		}

		location := api.Group("/location")
		{
			location.GET("/geocode", s.geocodeLocation)
			location.GET("/reverse", s.reverseGeocode)
			location.POST("/change", s.changeLocation)
		}

		cacheGroup := api.Group("/cache")
		{
			cacheGroup.GET("/stats", s.getCacheStats)
			cacheGroup.DELETE("/clear", s.clearCache)
		}
	}

	s.router.GET("/healthz", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start begins the HTTP server
func (s *Server) Start() error {
	return s.router.Run(fmt.Sprintf(":%d", s.config.Server.Port))
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// ensureSnapshot refreshes the aggregator for the requested coordinates.
// Within the snapshot TTL this is served from cache without a fetch.
func (s *Server) ensureSnapshot(c *gin.Context) (models.WeatherSnapshot, bool) {
	var req models.CoordinatesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		s.handleError(c, skyerr.NewValidationError("lat and lon query parameters are required"))
		return models.WeatherSnapshot{}, false
	}

	location := models.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if err := s.weatherService.RefreshForLocation(c.Request.Context(), location); err != nil {
		snapshot, ok := s.weatherService.Snapshot()
		if ok && snapshot.Location.Key() == location.Key() {
			// Stale data beats no data; the refresh failure is state the
			// client can read from the error field elsewhere.
			return snapshot, true
		}
		s.handleError(c, err)
		return models.WeatherSnapshot{}, false
	}

	snapshot, ok := s.weatherService.Snapshot()
	if !ok || snapshot.Location.Key() != location.Key() {
		// A concurrent request for another location superseded this one;
		// never hand its snapshot out under these coordinates.
		s.handleError(c, skyerr.NewFetchError("no snapshot available for requested location", nil))
		return models.WeatherSnapshot{}, false
	}
	return snapshot, true
}

func (s *Server) getCurrentWeather(c *gin.Context) {
	snapshot, ok := s.ensureSnapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": snapshot.Location, "current": snapshot.Current})
}

func (s *Server) getDailyForecast(c *gin.Context) {
	snapshot, ok := s.ensureSnapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": snapshot.Location, "daily": snapshot.Daily})
}

func (s *Server) getHourlyForecast(c *gin.Context) {
	snapshot, ok := s.ensureSnapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": snapshot.Location, "hourly": snapshot.Hourly})
}

func (s *Server) getMonthlyForecast(c *gin.Context) {
	snapshot, ok := s.ensureSnapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"location": snapshot.Location,
		"months":   models.GroupByMonth(snapshot.Daily),
	})
}

func (s *Server) getAllWeatherData(c *gin.Context) {
	snapshot, ok := s.ensureSnapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) refresh(c *gin.Context) {
	if err := s.weatherService.Refresh(c.Request.Context()); err != nil {
		s.handleError(c, err)
		return
	}
	snapshot, _ := s.weatherService.Snapshot()
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) geocodeLocation(c *gin.Context) {
	var req GeocodeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		s.handleError(c, skyerr.NewValidationError("city query parameter is required"))
		return
	}

	location, err := s.geocoder.Forward(c.Request.Context(), req.City)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, location)
}

func (s *Server) reverseGeocode(c *gin.Context) {
	var req models.CoordinatesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		s.handleError(c, skyerr.NewValidationError("lat and lon query parameters are required"))
		return
	}

	name, err := s.geocoder.Reverse(c.Request.Context(), *req.Latitude, *req.Longitude)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Location{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Name:      name,
	})
}

func (s *Server) changeLocation(c *gin.Context) {
	var req struct {
		City string `json:"city" form:"city" binding:"required,placename"`
	}
	if err := c.ShouldBind(&req); err != nil {
		s.handleError(c, skyerr.NewValidationError("city is required"))
		return
	}

	if err := s.weatherService.ChangeLocation(c.Request.Context(), req.City); err != nil {
		s.handleError(c, err)
		return
	}

	snapshot, _ := s.weatherService.Snapshot()
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) getCacheStats(c *gin.Context) {
	stats := []metrics.Stats{
		s.snapshots.Stats(),
		s.geocodeCache.Stats(),
	}
	c.JSON(http.StatusOK, gin.H{"caches": stats})
}

func (s *Server) clearCache(c *gin.Context) {
	s.snapshots.Reset()
	s.geocodeCache.Reset()
	if err := s.store.Clear(c.Request.Context()); err != nil {
		s.handleError(c, err)
		return
	}

	slog.Info("all caches cleared")
	c.JSON(http.StatusOK, gin.H{"message": "All caches cleared successfully"})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleError maps application errors to HTTP statuses
func (s *Server) handleError(c *gin.Context, err error) {
	var appErr *skyerr.AppError
	var statusCode int
	var message string

	if stderrors.As(err, &appErr) {
		switch appErr.Type {
		case skyerr.ValidationError:
			statusCode = http.StatusBadRequest
			message = appErr.Message
		case skyerr.NotFoundError:
			statusCode = http.StatusNotFound
			message = appErr.Message
		case skyerr.PermissionDeniedError:
			statusCode = http.StatusForbidden
			message = appErr.Message
		case skyerr.FetchError, skyerr.TimeoutError:
			statusCode = http.StatusServiceUnavailable
			message = "Upstream service unavailable"
		case skyerr.StorageError:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		default:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		}
	} else {
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	}

	slog.Error("request failed", "error", err, "status", statusCode, "request_id", c.GetString("request_id"))
	c.JSON(statusCode, models.ErrorResponse{Error: message})
}
