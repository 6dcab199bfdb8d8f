package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/anusthan12/owntracker/module/core/domain"
)

const (
	msgMissingFields  = "Missing required fields"
	msgDeviceNotFound = "device not found"
	msgInternal       = "internal server error"
)

var (
	errEmptyBody    = errors.New("request body is empty")
	errTrailingData = errors.New("unexpected data after JSON body")
)

type locationService interface {
	Record(ctx context.Context, source domain.Source, report *domain.LocationReport) error
	History(ctx context.Context, deviceID string) []domain.Location
	Latest(ctx context.Context, deviceID string) (*domain.Location, error)
	Devices(ctx context.Context) []domain.Device
}

type LocationHandler struct {
	locationSvc locationService
	logger      zerolog.Logger
}

func NewLocationHandler(locationSvc locationService, logger zerolog.Logger) *LocationHandler {
	return &LocationHandler{locationSvc: locationSvc, logger: logger}
}

func (h *LocationHandler) Register(r *gin.RouterGroup) {
	r.POST("/api/location", h.PostLocation)
	r.GET("/api/location/:deviceId", h.GetHistory)
	r.GET("/api/location/:deviceId/latest", h.GetLatest)
	r.GET("/api/devices", h.GetDevices)
}

func (h *LocationHandler) PostLocation(c *gin.Context) {
	var report domain.LocationReport
	// A body that is not a single JSON object, or carries wrongly typed
	// fields, is reported the same way as a missing field.
	if err := decodeJSONBody(c.Request, &report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingFields})
		return
	}

	err := h.locationSvc.Record(c.Request.Context(), domain.SourceHTTP, &report)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingFields})
	default:
		h.logger.Error().Err(err).Str("device_id", report.DeviceID).Msg("record location failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}

func (h *LocationHandler) GetHistory(c *gin.Context) {
	deviceID := c.Param("deviceId")
	c.JSON(http.StatusOK, h.locationSvc.History(c.Request.Context(), deviceID))
}

func (h *LocationHandler) GetLatest(c *gin.Context) {
	deviceID := c.Param("deviceId")

	loc, err := h.locationSvc.Latest(c.Request.Context(), deviceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": msgDeviceNotFound})
			return
		}
		h.logger.Error().Err(err).Str("device_id", deviceID).Msg("latest location failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	c.JSON(http.StatusOK, loc)
}

func (h *LocationHandler) GetDevices(c *gin.Context) {
	c.JSON(http.StatusOK, h.locationSvc.Devices(c.Request.Context()))
}

// decodeJSONBody decodes exactly one JSON value; anything but whitespace
// after it is an error.
func decodeJSONBody(req *http.Request, v any) error {
	if req.Body == nil {
		return errEmptyBody
	}
	dec := json.NewDecoder(req.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}
