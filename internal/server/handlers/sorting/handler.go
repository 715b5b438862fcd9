package sorting

import (
	"context"

	"smartbin/internal/orchestrator"
	"smartbin/pkg/logger"
)

// Service 编排器对外能力
type Service interface {
	StartClassification(ctx context.Context) error
	ConfirmAllEmpty(ctx context.Context) (*orchestrator.ConfirmResult, error)
	Diagnose(ctx context.Context, message string) error
	Busy() bool
	Locked() bool
	LastOutcome() *orchestrator.Outcome
}

// SortingHandler 分类投放 HTTP 处理器
type SortingHandler struct {
	svc    Service
	logger logger.Logger
}

// NewSortingHandler 创建处理器实例
func NewSortingHandler(svc Service, log logger.Logger) *SortingHandler {
	return &SortingHandler{svc: svc, logger: log}
}
