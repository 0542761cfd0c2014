// ABOUTME: Gin handlers for the location REST API and HTML index
// ABOUTME: Maps façade results and errors onto HTTP status codes

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/harper/tagtrack/internal/geojson"
	"github.com/harper/tagtrack/internal/locations"
	"github.com/harper/tagtrack/internal/models"
	"github.com/harper/tagtrack/internal/storage"
	"github.com/harper/tagtrack/internal/ui"
)

// Handler serves the location API on top of the query façade.
type Handler struct {
	service *locations.Service
	logger  zerolog.Logger
	display *time.Location
}

// NewHandler creates a Handler. display is the zone used by the HTML index (UTC when nil).
func NewHandler(service *locations.Service, logger zerolog.Logger, display *time.Location) *Handler {
	if display == nil {
		display = time.UTC
	}
	return &Handler{
		service: service,
		logger:  logger.With().Str("component", "api").Logger(),
		display: display,
	}
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error().Err(err).Str("request_id", requestID(c)).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg + ": " + err.Error()})
}

// CreateLocation handles POST /api/locations.
func (h *Handler) CreateLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	rec, err := h.service.SubmitLocation(c.Request.Context(), req.Submission())
	if err != nil {
		var ve *locations.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, ve.Fields)
			return
		}
		h.internalError(c, "failed to store location", err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// ListLocations handles GET /api/locations.
func (h *Handler) ListLocations(c *gin.Context) {
	records, err := h.service.AllLocations(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to list locations", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// RecentLocations handles GET /api/locations/recent.
func (h *Handler) RecentLocations(c *gin.Context) {
	records, err := h.service.RecentLocations(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to list recent locations", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id: " + c.Param("id")})
		return 0, false
	}
	return id, true
}

// GetLocation handles GET /api/locations/:id.
func (h *Handler) GetLocation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rec, found, err := h.service.LocationByID(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "failed to get location", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeviceLocations handles GET /api/locations/device/:deviceId.
func (h *Handler) DeviceLocations(c *gin.Context) {
	records, err := h.service.DeviceLocations(c.Request.Context(), c.Param("deviceId"))
	if err != nil {
		h.internalError(c, "failed to list device locations", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// LatestForDevice handles GET /api/locations/device/:deviceId/latest.
func (h *Handler) LatestForDevice(c *gin.Context) {
	rec, found, err := h.service.LatestForDevice(c.Request.Context(), c.Param("deviceId"))
	if err != nil {
		h.internalError(c, "failed to get latest location", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no locations for device"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeviceGeoJSON handles GET /api/locations/device/:deviceId/geojson.
// ?geometry=line returns the device track instead of individual points.
func (h *Handler) DeviceGeoJSON(c *gin.Context) {
	records, err := h.service.DeviceLocations(c.Request.Context(), c.Param("deviceId"))
	if err != nil {
		h.internalError(c, "failed to list device locations", err)
		return
	}

	var fc *geojson.FeatureCollection
	switch c.DefaultQuery("geometry", "points") {
	case "points":
		fc = geojson.ToPointsFeatureCollection(records)
	case "line":
		fc = geojson.ToLineFeatureCollection(records)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "geometry must be points or line"})
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

// LocationsInRange handles GET /api/locations/range?startTime=&endTime=.
func (h *Handler) LocationsInRange(c *gin.Context) {
	startStr, endStr := c.Query("startTime"), c.Query("endTime")
	if startStr == "" || endStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startTime and endTime are required"})
		return
	}
	start, err := locations.ParseTimestamp(startStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startTime: " + err.Error()})
		return
	}
	end, err := locations.ParseTimestamp(endStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endTime: " + err.Error()})
		return
	}

	records, err := h.service.LocationsInRange(c.Request.Context(), start, end)
	if errors.Is(err, storage.ErrInvalidRange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.internalError(c, "failed to list locations in range", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// DeleteLocation handles DELETE /api/locations/:id.
func (h *Handler) DeleteLocation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	deleted, err := h.service.DeleteLocation(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "failed to delete location", err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "location deleted"})
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to compute stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// indexRow is one table row on the index page.
type indexRow struct {
	ID        int64
	DeviceID  string
	Latitude  float64
	Longitude float64
	Altitude  string
	RSSI      string
	Observed  string
}

func newIndexRow(r models.LocationRecord, loc *time.Location) indexRow {
	row := indexRow{
		ID:        r.ID,
		DeviceID:  r.DeviceID,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Altitude:  "-",
		RSSI:      "-",
		Observed:  r.ObservedAt.In(loc).Format(ui.TimestampLayout),
	}
	if r.Altitude != nil {
		row.Altitude = strconv.FormatFloat(*r.Altitude, 'f', 1, 64)
	}
	if r.SignalStrength != nil {
		row.RSSI = strconv.Itoa(*r.SignalStrength)
	}
	return row
}

// Index handles GET / with the recent records rendered in the display zone.
func (h *Handler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	records, err := h.service.RecentLocations(ctx)
	if err != nil {
		h.internalError(c, "failed to list recent locations", err)
		return
	}
	devices, err := h.service.DeviceCount(ctx)
	if err != nil {
		h.internalError(c, "failed to count devices", err)
		return
	}

	rows := make([]indexRow, len(records))
	for i, r := range records {
		rows[i] = newIndexRow(r, h.display)
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Locations":     rows,
		"LocationCount": len(rows),
		"DeviceCount":   devices,
		"Zone":          h.display.String(),
	})
}
