package levels

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartbin/internal/fillregistry"
	"smartbin/pkg/ginx"
)

// Update 上报单个分类的测量值
// POST /update
func (h *LevelsHandler) Update(c *gin.Context) {
	var req fillregistry.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}
	if err := h.svc.Update(c.Request.Context(), req); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusOK)
}

// Data 实时状态
// GET /data
func (h *LevelsHandler) Data(c *gin.Context) {
	data, err := h.svc.Data(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// Levels 各分类最新满溢度
// GET /api/levels
func (h *LevelsHandler) Levels(c *gin.Context) {
	levels, err := h.svc.Levels(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, levels)
}

// Begin 记录开始处理
// POST /begin
func (h *LevelsHandler) Begin(c *gin.Context) {
	at, err := h.svc.Begin(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"beginTime": at})
}

// AlertRequest /alert 请求
type AlertRequest struct {
	Type    string `json:"type" binding:"required"`
	Message string `json:"message" binding:"required,max=255"`
}

// Alert 手动告警
// POST /alert
func (h *LevelsHandler) Alert(c *gin.Context) {
	var req AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}
	if err := h.svc.Alert(c.Request.Context(), req.Type, req.Message); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusOK)
}
