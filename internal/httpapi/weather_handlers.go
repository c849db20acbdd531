package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/weathervault/weathervault/internal/weather"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

type createSnapshotRequest struct {
	Time                time.Time `json:"time" binding:"required"`
	Interval            int       `json:"interval" binding:"required"`
	Temperature2M       float64   `json:"temperature_2m"`
	IsDay               bool      `json:"is_day"`
	RelativeHumidity2M  float64   `json:"relative_humidity_2m"`
	ApparentTemperature float64   `json:"apparent_temperature"`
	WeatherCode         int       `json:"weather_code"`
	Precipitation       float64   `json:"precipitation"`
	WindSpeed10M        float64   `json:"wind_speed_10m"`
	WindDirection10M    float64   `json:"wind_direction_10m"`
	WindGusts10M        float64   `json:"wind_gusts_10m"`
}

// HandleCreateSnapshot stores one snapshot. Protected by the API-key guard.
func HandleCreateSnapshot(service *weather.Service, logger *zap.Logger, environment string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		var inbound createSnapshotRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			writeBadRequest(contextGin, "Validation failed", []string{bindErr.Error()})
			return
		}

		_, createErr := service.Create(contextGin.Request.Context(), weather.Snapshot{
			Time:                inbound.Time,
			Interval:            inbound.Interval,
			Temperature2M:       inbound.Temperature2M,
			IsDay:               inbound.IsDay,
			RelativeHumidity2M:  inbound.RelativeHumidity2M,
			ApparentTemperature: inbound.ApparentTemperature,
			WeatherCode:         inbound.WeatherCode,
			Precipitation:       inbound.Precipitation,
			WindSpeed10M:        inbound.WindSpeed10M,
			WindDirection10M:    inbound.WindDirection10M,
			WindGusts10M:        inbound.WindGusts10M,
		})
		if createErr != nil {
			writeInternal(contextGin, environment, createErr.Error())
			return
		}
		writeMessage(contextGin, http.StatusCreated, "Snapshot created")
	}
}

// HandleListSnapshots returns one page of snapshots plus the total count.
func HandleListSnapshots(service *weather.Service, logger *zap.Logger, environment string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		page, limit := paginationParams(contextGin)
		snapshots, total, listErr := service.List(contextGin.Request.Context(), page, limit)
		if listErr != nil {
			writeInternal(contextGin, environment, listErr.Error())
			return
		}
		if snapshots == nil {
			snapshots = []weather.Snapshot{}
		}
		writePagination(contextGin, "Snapshots fetched", snapshots, total, page, limit)
	}
}

// HandleGetSnapshot returns one snapshot by id.
func HandleGetSnapshot(service *weather.Service, logger *zap.Logger, environment string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		snapshotID, parseErr := uuid.Parse(contextGin.Param("id"))
		if parseErr != nil {
			writeBadRequest(contextGin, "Invalid snapshot id", nil)
			return
		}
		snapshot, findErr := service.Get(contextGin.Request.Context(), snapshotID)
		if findErr != nil {
			if errors.Is(findErr, weather.ErrSnapshotNotFound) {
				writeNotFound(contextGin, "Snapshot not found")
				return
			}
			writeInternal(contextGin, environment, findErr.Error())
			return
		}
		writeData(contextGin, http.StatusOK, "Snapshot fetched", snapshot)
	}
}

// HandleDeleteSnapshot removes one snapshot by id.
func HandleDeleteSnapshot(service *weather.Service, logger *zap.Logger, environment string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		snapshotID, parseErr := uuid.Parse(contextGin.Param("id"))
		if parseErr != nil {
			writeBadRequest(contextGin, "Invalid snapshot id", nil)
			return
		}
		deleteErr := service.Delete(contextGin.Request.Context(), snapshotID)
		if deleteErr != nil {
			if errors.Is(deleteErr, weather.ErrSnapshotNotFound) {
				writeNotFound(contextGin, "Snapshot not found")
				return
			}
			writeInternal(contextGin, environment, deleteErr.Error())
			return
		}
		writeMessage(contextGin, http.StatusOK, "Snapshot deleted")
	}
}

func paginationParams(contextGin *gin.Context) (int, int) {
	page := defaultPage
	if parsed, parseErr := strconv.Atoi(contextGin.DefaultQuery("page", strconv.Itoa(defaultPage))); parseErr == nil && parsed > 0 {
		page = parsed
	}
	limit := defaultLimit
	if parsed, parseErr := strconv.Atoi(contextGin.DefaultQuery("limit", strconv.Itoa(defaultLimit))); parseErr == nil && parsed > 0 {
		limit = parsed
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
