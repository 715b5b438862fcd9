package sorting

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartbin/internal/orchestrator"
)

// EmptyCheckAll 管理员清空后复测全部桶，同步返回结果
// POST /empty_check_all
func (h *SortingHandler) EmptyCheckAll(c *gin.Context) {
	// 客户端断开不应中断设备动作
	res, err := h.svc.ConfirmAllEmpty(context.WithoutCancel(c.Request.Context()))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, orchestrator.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"status": "busy"})
	default:
		h.logger.Errorf(c.Request.Context(), "[Sorting] Empty check failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
	}
}
