package sorting

import (
	"github.com/gin-gonic/gin"

	"smartbin/internal/orchestrator"
	"smartbin/pkg/ginx"
)

// StatusResponse 运行状态
type StatusResponse struct {
	Busy        bool                  `json:"busy"`
	Locked      bool                  `json:"locked"`
	LastOutcome *orchestrator.Outcome `json:"last_outcome,omitempty"`
}

// Status 当前是否忙碌、入口是否封锁、最近一次结果
// GET /status
func (h *SortingHandler) Status(c *gin.Context) {
	ginx.Success(c, StatusResponse{
		Busy:        h.svc.Busy(),
		Locked:      h.svc.Locked(),
		LastOutcome: h.svc.LastOutcome(),
	})
}
