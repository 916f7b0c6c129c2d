package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sis-sync-api/internal/models"
	"github.com/noah-isme/sis-sync-api/internal/repository"
	syncpkg "github.com/noah-isme/sis-sync-api/internal/sync"
	appErrors "github.com/noah-isme/sis-sync-api/pkg/errors"
	"github.com/noah-isme/sis-sync-api/pkg/response"
)

// SyncHandler exposes the worker's operational surface: manual triggers,
// aggregate lookups, and observability endpoints.
type SyncHandler struct {
	client    *redis.Client
	queueName string
	metrics   *syncpkg.Metrics
	docs      *repository.DocumentRepository
}

// NewSyncHandler constructs a sync handler.
func NewSyncHandler(client *redis.Client, queueName string, metrics *syncpkg.Metrics, docs *repository.DocumentRepository) *SyncHandler {
	return &SyncHandler{client: client, queueName: queueName, metrics: metrics, docs: docs}
}

// TriggerRequest names the run to enqueue.
type TriggerRequest struct {
	Job      string `json:"job" binding:"required"`
	LMS      string `json:"lms" binding:"required"`
	SchoolID string `json:"school_id"`
}

// Trigger enqueues a dispatch message. Manual triggers travel the same queue
// as scheduled ones, so the router applies identical routing and bounds.
func (h *SyncHandler) Trigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid trigger payload"))
		return
	}

	job, ok := models.ParseSyncJob(req.Job)
	if !ok {
		response.Error(c, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("unknown sync job %q", req.Job)))
		return
	}
	lms, ok := models.ParseLMSName(req.LMS)
	if !ok {
		response.Error(c, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("unknown lms %q", req.LMS)))
		return
	}

	payload, err := json.Marshal(models.DispatchMessage{Job: job, LMS: lms, SchoolID: req.SchoolID})
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.client.LPush(c.Request.Context(), h.queueName, payload).Err(); err != nil {
		response.Error(c, appErrors.Wrap(err, "QUEUE_ERROR", http.StatusInternalServerError, "failed to enqueue sync trigger"))
		return
	}

	response.Accepted(c, gin.H{"job": job, "lms": lms, "school_id": req.SchoolID})
}

// Aggregate returns the computed class aggregate document.
func (h *SyncHandler) Aggregate(c *gin.Context) {
	agg, err := h.docs.GetAggregate(c.Request.Context(), c.Param("classID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, agg)
}

// Prometheus serves the sync subsystem's metrics registry.
func (h *SyncHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *SyncHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports readiness once the backing stores answer.
func (h *SyncHandler) Ready(c *gin.Context) {
	if err := h.client.Ping(c.Request.Context()).Err(); err != nil {
		response.Error(c, appErrors.Wrap(err, "NOT_READY", http.StatusServiceUnavailable, "redis unavailable"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
