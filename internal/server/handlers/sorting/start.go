package sorting

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartbin/internal/orchestrator"
)

// Start 触发一次分类投放，流程在后台执行
// POST /start
func (h *SortingHandler) Start(c *gin.Context) {
	err := h.svc.StartClassification(c.Request.Context())
	switch {
	case err == nil:
		c.String(http.StatusOK, "Started")
	case errors.Is(err, orchestrator.ErrBusy), errors.Is(err, orchestrator.ErrCooldown):
		h.logger.Infof(c.Request.Context(), "[Sorting] Start rejected: %v", err)
		c.String(http.StatusTooManyRequests, "Already processing")
	default:
		_ = c.Error(err)
	}
}
