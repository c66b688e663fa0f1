package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/surgimedia/casesync/internal/models"
	"github.com/surgimedia/casesync/internal/observability"
	"github.com/surgimedia/casesync/internal/scheduler"
	"github.com/surgimedia/casesync/internal/services"
	"github.com/surgimedia/casesync/internal/store"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// ErrorResponse is the error body returned by all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SyncHandlers handles sync-related HTTP requests
type SyncHandlers struct {
	service   *services.SyncService
	scheduler *scheduler.Scheduler
	schedules store.ScheduleStore
	history   store.HistoryStore
}

// NewSyncHandlers creates a new sync handlers instance
func NewSyncHandlers(service *services.SyncService, sched *scheduler.Scheduler, schedules store.ScheduleStore, history store.HistoryStore) *SyncHandlers {
	return &SyncHandlers{
		service:   service,
		scheduler: sched,
		schedules: schedules,
		history:   history,
	}
}

// TriggerSync godoc
// @Summary Trigger a catalog sync
// @Description Starts a full catalog sync in the background. Returns 409 when a run is already active.
// @Tags sync
// @Produce json
// @Security ApiKeyAuth
// @Success 202 {object} map[string]interface{} "Sync accepted"
// @Failure 401 {object} ErrorResponse "Missing token"
// @Failure 403 {object} ErrorResponse "Invalid token"
// @Failure 409 {object} ErrorResponse "Another sync is already running"
// @Router /sync/trigger [post]
func (h *SyncHandlers) TriggerSync(c *gin.Context) {
	_, span := otel.Tracer("").Start(c.Request.Context(), "TriggerSync")
	defer span.End()

	if !h.service.TriggerAsync(models.SourceRESTAPI) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "a sync is already running"})
		return
	}

	observability.Logger().Info("sync triggered via API", zap.String("ip", c.ClientIP()))
	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "sync started"})
}

// StartSync godoc
// @Summary Start a sync from the operator surface
// @Description Same pipeline as trigger, recorded with the manual source.
// @Tags sync
// @Produce json
// @Security ApiKeyAuth
// @Success 202 {object} map[string]interface{} "Sync accepted"
// @Failure 409 {object} map[string]interface{} "Another sync is already running"
// @Router /sync/start [post]
func (h *SyncHandlers) StartSync(c *gin.Context) {
	if !h.service.TriggerAsync(models.SourceManual) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "a sync is already running"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "sync started"})
}

// StopSync godoc
// @Summary Request a sync stop
// @Description Raises the cooperative stop flag. The active run stops at the next batch boundary.
// @Tags sync
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{} "Stop requested"
// @Failure 500 {object} ErrorResponse "Failed to set stop flag"
// @Router /sync/stop [post]
func (h *SyncHandlers) StopSync(c *gin.Context) {
	if err := h.service.RequestStop(c.Request.Context()); err != nil {
		observability.Logger().Error("failed to request stop", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to request stop"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stop requested"})
}

// GetStatus godoc
// @Summary Get sync status
// @Description Returns run state, schedule, coordinator job, and the latest history entry. Passing sync_day and sync_time updates the weekly schedule in the same call.
// @Tags sync
// @Produce json
// @Param sync_day query int false "Weekly run day (0=Sunday..6=Saturday)"
// @Param sync_time query string false "Weekly run time, HH:MM 24h"
// @Success 200 {object} map[string]interface{} "Status"
// @Failure 400 {object} ErrorResponse "Invalid schedule parameters"
// @Router /sync/status [get]
func (h *SyncHandlers) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	dayParam := c.Query("sync_day")
	timeParam := c.Query("sync_time")
	if dayParam != "" || timeParam != "" {
		config, err := h.schedules.LoadSchedule(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load schedule"})
			return
		}
		if dayParam != "" {
			day, err := strconv.Atoi(dayParam)
			if err != nil {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "sync_day must be an integer 0-6"})
				return
			}
			config.DayOfWeek = day
		}
		if timeParam != "" {
			config.TimeOfDay = timeParam
		}
		config.Enabled = true
		if _, err := h.scheduler.Apply(ctx, config); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, h.service.Status(ctx))
}

// GetProgress godoc
// @Summary Get live sync progress
// @Description Returns the in-flight progress snapshot, or an idle snapshot when no run is active.
// @Tags sync
// @Produce json
// @Success 200 {object} models.ProgressSnapshot "Progress snapshot"
// @Router /sync/progress [get]
func (h *SyncHandlers) GetProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Progress(c.Request.Context()))
}

// GetSchedule godoc
// @Summary Get the weekly schedule
// @Tags schedule
// @Produce json
// @Success 200 {object} models.ScheduleConfig "Schedule"
// @Router /sync/schedule [get]
func (h *SyncHandlers) GetSchedule(c *gin.Context) {
	config, err := h.schedules.LoadSchedule(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load schedule"})
		return
	}
	c.JSON(http.StatusOK, config)
}

// UpdateSchedule godoc
// @Summary Update the weekly schedule
// @Description Saves the schedule and, when enabled, computes and registers the next run.
// @Tags schedule
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param schedule body models.ScheduleConfig true "Schedule configuration"
// @Success 200 {object} map[string]interface{} "Schedule saved"
// @Failure 400 {object} ErrorResponse "Invalid schedule"
// @Router /sync/schedule [put]
func (h *SyncHandlers) UpdateSchedule(c *gin.Context) {
	var config models.ScheduleConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid schedule payload"})
		return
	}

	next, err := h.scheduler.Apply(c.Request.Context(), &config)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	response := gin.H{"schedule": config}
	if !next.IsZero() {
		response["next_run"] = next
	}
	c.JSON(http.StatusOK, response)
}

// ListHistory godoc
// @Summary List sync history
// @Description Returns sync log records, most recent first.
// @Tags history
// @Produce json
// @Param limit query int false "Maximum records to return (default 100)"
// @Success 200 {array} models.SyncLogRecord "History records"
// @Router /sync/history [get]
func (h *SyncHandlers) ListHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	records, err := h.history.List(c.Request.Context(), limit)
	if err != nil {
		observability.Logger().Error("failed to list sync history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list history"})
		return
	}
	c.JSON(http.StatusOK, records)
}

// DeleteHistoryRecord godoc
// @Summary Delete one history record
// @Tags history
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Record ID"
// @Success 200 {object} map[string]interface{} "Deleted"
// @Failure 404 {object} ErrorResponse "Record not found"
// @Router /sync/history/{id} [delete]
func (h *SyncHandlers) DeleteHistoryRecord(c *gin.Context) {
	id := c.Param("id")

	err := h.history.Delete(c.Request.Context(), id)
	if errors.Is(err, models.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "record not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete record"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// DeleteAllHistory godoc
// @Summary Delete all history records
// @Tags history
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{} "Deleted count"
// @Router /sync/history [delete]
func (h *SyncHandlers) DeleteAllHistory(c *gin.Context) {
	count, err := h.history.DeleteAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": count})
}
