// ABOUTME: Gin engine construction with request-id, logging, and metrics middleware
// ABOUTME: Registers every location route plus /metrics and the HTML index

package api

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

const requestIDHeader = "X-Request-ID"

// RequestObserver records per-request latency.
type RequestObserver interface {
	ObserveRequest(method, route string, code int, duration time.Duration)
}

// RouterOptions configures NewRouter. Nil fields disable the matching feature.
type RouterOptions struct {
	Metrics        RequestObserver
	MetricsHandler http.Handler
}

func requestID(c *gin.Context) string {
	return c.GetString("request_id")
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func loggingMiddleware(logger zerolog.Logger, metrics RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		status := c.Writer.Status()

		if metrics != nil {
			metrics.ObserveRequest(c.Request.Method, c.FullPath(), status, elapsed)
		}

		ev := logger.Debug()
		if status >= http.StatusInternalServerError {
			ev = logger.Warn()
		}
		ev.Str("request_id", requestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("http request")
	}
}

// NewRouter builds the gin engine for h.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestIDMiddleware(), loggingMiddleware(h.logger, opts.Metrics))

	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))
	r.GET("/", h.Index)

	api := r.Group("/api")
	{
		api.POST("/locations", h.CreateLocation)
		api.GET("/locations", h.ListLocations)
		api.GET("/locations/recent", h.RecentLocations)
		api.GET("/locations/range", h.LocationsInRange)
		api.GET("/locations/device/:deviceId", h.DeviceLocations)
		api.GET("/locations/device/:deviceId/latest", h.LatestForDevice)
		api.GET("/locations/device/:deviceId/geojson", h.DeviceGeoJSON)
		api.GET("/locations/:id", h.GetLocation)
		api.DELETE("/locations/:id", h.DeleteLocation)
		api.GET("/stats", h.Stats)
	}

	if opts.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	return r
}
