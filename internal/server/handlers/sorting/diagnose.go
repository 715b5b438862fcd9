package sorting

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultTestMessage = "test"

// TestArduinoRequest 诊断请求
type TestArduinoRequest struct {
	Message string `json:"message" binding:"max=64"`
}

// TestArduino 透传一条原始命令到执行器
// POST /test_arduino
func (h *SortingHandler) TestArduino(c *gin.Context) {
	var req TestArduinoRequest
	// 空请求体使用默认消息
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		msg = defaultTestMessage
	}

	if err := h.svc.Diagnose(c.Request.Context(), msg); err != nil {
		h.logger.Errorf(c.Request.Context(), "[Sorting] Test command '%s' failed: %v", msg, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": msg})
}
