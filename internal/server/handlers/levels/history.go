package levels

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"smartbin/pkg/ginx"
)

// DeleteImageRequest /api/logs/delete 请求
type DeleteImageRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// DeleteLevelRequest /api/levels/delete 请求
type DeleteLevelRequest struct {
	ID int64 `json:"id" binding:"required,min=1"`
}

func limitOf(c *gin.Context) int {
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		return v
	}
	return defaultLogLimit
}

// ImageLogs 图片历史，新记录在前
// GET /api/logs?limit=
func (h *LevelsHandler) ImageLogs(c *gin.Context) {
	logs, err := h.svc.ImageLogs(c.Request.Context(), limitOf(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// DeleteImageLog POST /api/logs/delete
func (h *LevelsHandler) DeleteImageLog(c *gin.Context) {
	var req DeleteImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}
	ok, err := h.svc.DeleteImageLog(c.Request.Context(), req.Filename)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		ginx.NotFound(c, "log not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Stats GET /api/stats
func (h *LevelsHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AlertLogs 满桶告警记录
// GET /api/alerts?limit=
func (h *LevelsHandler) AlertLogs(c *gin.Context) {
	alerts, err := h.svc.AlertLogs(c.Request.Context(), limitOf(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// LevelLogs 测量历史
// GET /api/levels/logs?limit=
func (h *LevelsHandler) LevelLogs(c *gin.Context) {
	logs, err := h.svc.LevelLogs(c.Request.Context(), limitOf(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// DeleteLevelLog POST /api/levels/delete
func (h *LevelsHandler) DeleteLevelLog(c *gin.Context) {
	var req DeleteLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}
	ok, err := h.svc.DeleteLevelLog(c.Request.Context(), req.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		ginx.NotFound(c, "level log not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResetLevels 清空后全部置 0
// POST /api/levels/reset
func (h *LevelsHandler) ResetLevels(c *gin.Context) {
	if err := h.svc.ResetLevels(c.Request.Context()); err != nil {
		_ = c.Error(err)
		return
	}
	h.logger.Infof(c.Request.Context(), "[Registry] Levels reset by admin")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
