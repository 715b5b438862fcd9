// Package alerting 满桶告警任务处理：落库并推送到管理端频道。
package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartbin/internal/binclass"
	"smartbin/internal/entity"
	"smartbin/internal/framework"
	"smartbin/pkg/logger"
)

// errMalformed 任务内容无法处理，重试无意义
var errMalformed = errors.New("malformed alert job")

// AlertStore 告警记录存储，按 job_id 幂等
type AlertStore interface {
	InsertAlert(ctx context.Context, rec *entity.AlertRecord) error
}

// Publisher 管理端推送
type Publisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// Handler 告警任务处理器
type Handler struct {
	store   AlertStore
	pub     Publisher
	channel string
	now     func() time.Time
	logger  logger.Logger
}

// NewHandler 创建处理器
func NewHandler(store AlertStore, pub Publisher, channel string, log logger.Logger) *Handler {
	return &Handler{store: store, pub: pub, channel: channel, now: time.Now, logger: log}
}

// Process 实现 framework.Proc：格式错误 Bury，存储或推送失败 Release
func (h *Handler) Process(ctx context.Context, msg *framework.Message) (resp *framework.JobResp) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorf(ctx, "[Alerting] handler panic on %s: %v", msg.ID, r)
			resp = framework.Bury(fmt.Errorf("panic: %v", r))
		}
	}()

	var (
		alert entity.BinFullAlert
		rec   *entity.AlertRecord
	)
	err := framework.NewChain(
		func(context.Context) error {
			return decode(msg.Data, &alert)
		},
		func(ctx context.Context) error {
			rec = h.record(msg.ID, alert)
			return h.store.InsertAlert(ctx, rec)
		},
		func(ctx context.Context) error {
			return h.pub.Publish(ctx, h.channel, entity.AdminAlert{
				Type:      rec.Class,
				Level:     rec.Level,
				Message:   rec.Message,
				Timestamp: rec.RaisedAt.UTC().Format(time.RFC3339),
			})
		},
	).Run(ctx)

	switch {
	case err == nil:
		h.logger.Infof(ctx, "[Alerting] %s recorded and pushed to %s", rec.JobID, h.channel)
		return framework.Success()
	case errors.Is(err, errMalformed):
		return framework.Bury(err)
	default:
		return framework.Release(err)
	}
}

func decode(data []byte, alert *entity.BinFullAlert) error {
	if err := json.Unmarshal(data, alert); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	class, err := binclass.Parse(alert.Class)
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	alert.Class = class.String()
	if !binclass.ValidLevel(alert.Level) {
		return fmt.Errorf("%w: level %d", errMalformed, alert.Level)
	}
	return nil
}

func (h *Handler) record(jobID string, alert entity.BinFullAlert) *entity.AlertRecord {
	if alert.ID != "" {
		jobID = alert.ID
	}
	raisedAt := alert.At
	if raisedAt.IsZero() {
		raisedAt = h.now()
	}
	msg := alert.Message
	if msg == "" {
		msg = fmt.Sprintf("%s bin is %d%% full", alert.Class, alert.Level)
	}
	deviceID := alert.DeviceID
	if deviceID == "" {
		deviceID = "unknown"
	}
	return &entity.AlertRecord{
		JobID:     jobID,
		Class:     alert.Class,
		Level:     alert.Level,
		DeviceID:  deviceID,
		Message:   msg,
		RaisedAt:  raisedAt,
		CreatedAt: h.now(),
	}
}
