// Package handler exposes the queue processing trigger used by cron callers.
package handler

import (
	"context"
	"net/http"

	"medtour_backend/internal/notification/dispatch"
	"medtour_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Processor drains one batch of due notifications.
type Processor interface {
	ProcessBatch(ctx context.Context) (dispatch.Result, error)
}

// Handler serves the notification queue trigger.
type Handler struct {
	processor Processor
}

type processResponse struct {
	Success   bool `json:"success"`
	Processed int  `json:"processed"`
	Failed    int  `json:"failed"`
}

// New creates a notification trigger handler.
func New(processor Processor) *Handler {
	return &Handler{processor: processor}
}

// RegisterRoutes mounts the trigger. The group is expected to carry the
// bearer secret guard.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/process", h.Process)
	rg.GET("/process", h.Process)
}

// Process drains one batch and reports how many notifications were sent or failed.
func (h *Handler) Process(c *gin.Context) {
	res, err := h.processor.ProcessBatch(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusOK, processResponse{Success: true, Processed: res.Processed, Failed: res.Failed})
}
