package levels

import (
	"context"

	"smartbin/internal/entity"
	"smartbin/internal/fillregistry"
	"smartbin/internal/registry"
	"smartbin/pkg/logger"
)

const defaultLogLimit = 200

// Service 登记服务对外能力
type Service interface {
	Update(ctx context.Context, req fillregistry.UpdateRequest) error
	Data(ctx context.Context) (map[string]int64, error)
	Levels(ctx context.Context) ([]registry.LevelEntry, error)
	Begin(ctx context.Context) (int64, error)
	Upload(ctx context.Context, in fillregistry.UploadInput) (*entity.ImageRecord, error)
	Alert(ctx context.Context, alertType, message string) error
	ResetLevels(ctx context.Context) error
	LevelLogs(ctx context.Context, limit int) ([]entity.LevelLog, error)
	DeleteLevelLog(ctx context.Context, id int64) (bool, error)
	ImageLogs(ctx context.Context, limit int) ([]entity.ImageRecord, error)
	DeleteImageLog(ctx context.Context, storedName string) (bool, error)
	Stats(ctx context.Context) ([]entity.ClassCount, error)
	AlertLogs(ctx context.Context, limit int) ([]entity.AlertRecord, error)
}

// EventSource 实时事件订阅
type EventSource interface {
	Listen(ctx context.Context, channels ...string) (<-chan entity.Event, error)
}

// LevelsHandler 满溢度登记 HTTP 处理器
type LevelsHandler struct {
	svc    Service
	events EventSource
	logger logger.Logger
}

// NewLevelsHandler 创建处理器实例，events 为 nil 时 /api/events 不可用
func NewLevelsHandler(svc Service, events EventSource, log logger.Logger) *LevelsHandler {
	return &LevelsHandler{svc: svc, events: events, logger: log}
}
