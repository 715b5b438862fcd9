// Package fillregistry 满溢度登记服务：最新值、历史记录、上传图片与满桶告警。
package fillregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"smartbin/internal/binclass"
	"smartbin/internal/entity"
	"smartbin/internal/registry"
	"smartbin/pkg/errorutil"
	"smartbin/pkg/logger"
)

// 推送频道
const (
	ChannelLevelUpdate = "level_update"
	ChannelAdminAlert  = "admin_alert"
	ChannelLogUpdate   = "log_update"
	ChannelStatUpdate  = "stat_update"
	ChannelAlertLog    = "alert_log" // 告警 Worker 落库后推送
)

// Channels 管理端订阅的全部频道
var Channels = []string{ChannelLevelUpdate, ChannelAdminAlert, ChannelLogUpdate, ChannelStatUpdate, ChannelAlertLog}

const resetDeviceID = "admin"

// LevelStore 每个分类只保存最新值
type LevelStore interface {
	SetLevel(ctx context.Context, class string, level int, at time.Time) error
	Levels(ctx context.Context) (map[string]int, error)
	SetBegin(ctx context.Context, at time.Time) error
	UpdatedAt(ctx context.Context) (int64, error)
	BeginAt(ctx context.Context) (int64, error)
}

// History 只追加的历史记录
type History interface {
	AppendLevel(ctx context.Context, log *entity.LevelLog) error
	RecentLevels(ctx context.Context, limit int) ([]entity.LevelLog, error)
	DeleteLevel(ctx context.Context, id int64) (bool, error)
	AppendImage(ctx context.Context, rec *entity.ImageRecord) error
	RecentImages(ctx context.Context, limit int) ([]entity.ImageRecord, error)
	DeleteImage(ctx context.Context, storedName string) (bool, error)
	ClassStats(ctx context.Context) ([]entity.ClassCount, error)
	RecentAlerts(ctx context.Context, limit int) ([]entity.AlertRecord, error)
}

// ImageStorage 上传图片存储
type ImageStorage interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// Publisher 实时推送
type Publisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// AlertQueue 满桶告警任务队列
type AlertQueue interface {
	Enqueue(ctx context.Context, alert entity.BinFullAlert) error
}

// UpdateRequest /update 请求
type UpdateRequest struct {
	Class    string `json:"class" binding:"required"`
	Level    *int   `json:"level" binding:"required,min=-1,max=100"`
	DeviceID string `json:"device_id"`
}

// UploadInput 上传的图片及元数据
type UploadInput struct {
	OriginalName string
	Body         io.Reader
	Size         int64
	ContentType  string
	Class        string
	Angle        int
	DeviceID     string
}

// uploadMeta 上传时的附加信息，存入 ImageRecord.Extra
type uploadMeta struct {
	ContentType      string `json:"content_type"`
	Size             int64  `json:"size"`
	ReportedDeviceID string `json:"reported_device_id,omitempty"`
}

// Options 服务参数
type Options struct {
	Threshold int
	Now       func() time.Time
}

// Service 登记服务
type Service struct {
	store   LevelStore
	history History
	images  ImageStorage
	pub     Publisher
	alerts  AlertQueue
	opts    Options
	logger  logger.Logger
}

// NewService 创建服务，alerts 为 nil 时不投递告警任务
func NewService(store LevelStore, history History, images ImageStorage, pub Publisher, alerts AlertQueue, opts Options, log logger.Logger) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 80
	}
	return &Service{
		store:   store,
		history: history,
		images:  images,
		pub:     pub,
		alerts:  alerts,
		opts:    opts,
		logger:  log,
	}
}

// Update 记录一次测量：覆盖最新值、追加历史、推送，达到阈值时告警
func (s *Service) Update(ctx context.Context, req UpdateRequest) error {
	class, err := binclass.Parse(req.Class)
	if err != nil {
		return errorutil.NonRetriable(err.Error())
	}
	if req.Level == nil {
		return errorutil.NonRetriable("level is required")
	}
	level := *req.Level
	if level != binclass.Sentinel && !binclass.ValidLevel(level) {
		return errorutil.NonRetriable(fmt.Sprintf("level out of range: %d", level))
	}
	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = "unknown"
	}
	ctx = logger.WithClass(ctx, class.String())
	now := s.opts.Now()

	if err := s.store.SetLevel(ctx, class.String(), level, now); err != nil {
		return err
	}
	if err := s.history.AppendLevel(ctx, &entity.LevelLog{
		DeviceID:   deviceID,
		Class:      class.String(),
		Level:      level,
		MeasuredAt: now,
	}); err != nil {
		return err
	}
	s.logger.Infof(ctx, "[Registry] %s=%d%% from %s", class, level, deviceID)
	s.publish(ctx, ChannelLevelUpdate, map[string]interface{}{"class": class.String(), "level": level})

	if level >= s.opts.Threshold {
		s.raiseFull(ctx, class, level, deviceID, now)
	}
	return nil
}

func (s *Service) raiseFull(ctx context.Context, class binclass.BinClass, level int, deviceID string, now time.Time) {
	msg := fmt.Sprintf("%s bin is %d%% full", class, level)
	s.logger.Warnf(ctx, "[Registry] Admin alert: %s", msg)
	s.publish(ctx, ChannelAdminAlert, entity.AdminAlert{
		Type:      class.String(),
		Level:     level,
		Message:   msg,
		Timestamp: now.UTC().Format(time.RFC3339),
	})

	if s.alerts == nil {
		return
	}
	alert := entity.BinFullAlert{
		ID:       uuid.NewString(),
		Class:    class.String(),
		Level:    level,
		DeviceID: deviceID,
		Message:  msg,
		At:       now,
	}
	if err := s.alerts.Enqueue(ctx, alert); err != nil {
		s.logger.Errorf(ctx, "[Registry] Enqueue bin full alert failed: %v", err)
	}
}

// Data 实时状态：有记录分类的最新值以及 lastUpdated / lastBegin（毫秒）
// 未测量过的分类不输出
func (s *Service) Data(ctx context.Context) (map[string]int64, error) {
	levels, err := s.store.Levels(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(binclass.All)+2)
	for _, c := range binclass.All {
		if level, ok := levels[c.String()]; ok {
			out[c.String()] = int64(level)
		}
	}
	if out["lastUpdated"], err = s.store.UpdatedAt(ctx); err != nil {
		return nil, err
	}
	if out["lastBegin"], err = s.store.BeginAt(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// Levels 按转盘顺序返回有记录的分类
func (s *Service) Levels(ctx context.Context) ([]registry.LevelEntry, error) {
	levels, err := s.store.Levels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]registry.LevelEntry, 0, len(levels))
	for _, c := range binclass.All {
		if level, ok := levels[c.String()]; ok {
			out = append(out, registry.LevelEntry{Type: c.String(), Level: level})
		}
	}
	return out, nil
}

// Begin 记录开始处理时间
func (s *Service) Begin(ctx context.Context) (int64, error) {
	now := s.opts.Now()
	if err := s.store.SetBegin(ctx, now); err != nil {
		return 0, err
	}
	s.logger.Infof(ctx, "[Registry] Processing begin at %d", now.UnixMilli())
	return now.UnixMilli(), nil
}

// Upload 保存分类结果图片并记录
func (s *Service) Upload(ctx context.Context, in UploadInput) (*entity.ImageRecord, error) {
	class, err := binclass.Parse(in.Class)
	if err != nil {
		return nil, errorutil.NonRetriable(err.Error())
	}
	if in.Body == nil || in.OriginalName == "" {
		return nil, errorutil.NonRetriable("image is required")
	}
	deviceID := in.DeviceID
	if deviceID == "" {
		deviceID = "jetson"
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	now := s.opts.Now()
	stem := strings.TrimSuffix(filepath.Base(in.OriginalName), filepath.Ext(in.OriginalName))
	stored := fmt.Sprintf("id-%s_%d.jpg", stem, now.UnixMilli())

	extra, err := json.Marshal(uploadMeta{ContentType: contentType, Size: in.Size, ReportedDeviceID: in.DeviceID})
	if err != nil {
		return nil, err
	}
	location, err := s.images.Save(ctx, stored, in.Body, in.Size, contentType)
	if err != nil {
		return nil, err
	}

	rec := &entity.ImageRecord{
		OriginalName: in.OriginalName,
		StoredName:   stored,
		Location:     location,
		Class:        class.String(),
		Angle:        in.Angle,
		DeviceID:     deviceID,
		Extra:        datatypes.JSON(extra),
		CreatedAt:    now,
	}
	if err := s.history.AppendImage(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Infof(ctx, "[Registry] Upload %s -> %s", in.OriginalName, location)
	s.publish(ctx, ChannelLogUpdate, map[string]string{"filename": stored})
	s.publish(ctx, ChannelStatUpdate, map[string]string{"class": class.String()})
	return rec, nil
}

// Alert 管理端手动告警
func (s *Service) Alert(ctx context.Context, alertType, message string) error {
	if alertType == "" || message == "" {
		return errorutil.NonRetriable("type and message are required")
	}
	s.logger.Warnf(ctx, "[Registry] Manual alert %s: %s", alertType, message)
	return s.pub.Publish(ctx, ChannelAdminAlert, entity.AdminAlert{Type: alertType, Message: message})
}

// ResetLevels 清空后把所有分类记为 0
func (s *Service) ResetLevels(ctx context.Context) error {
	zero := 0
	for _, c := range binclass.All {
		if err := s.Update(ctx, UpdateRequest{Class: c.String(), Level: &zero, DeviceID: resetDeviceID}); err != nil {
			return err
		}
	}
	return nil
}

// LevelLogs 测量历史
func (s *Service) LevelLogs(ctx context.Context, limit int) ([]entity.LevelLog, error) {
	return s.history.RecentLevels(ctx, limit)
}

// DeleteLevelLog 删除单条测量历史
func (s *Service) DeleteLevelLog(ctx context.Context, id int64) (bool, error) {
	return s.history.DeleteLevel(ctx, id)
}

// ImageLogs 图片历史
func (s *Service) ImageLogs(ctx context.Context, limit int) ([]entity.ImageRecord, error) {
	return s.history.RecentImages(ctx, limit)
}

// DeleteImageLog 删除单条图片历史
func (s *Service) DeleteImageLog(ctx context.Context, storedName string) (bool, error) {
	return s.history.DeleteImage(ctx, storedName)
}

// Stats 按分类统计图片数
func (s *Service) Stats(ctx context.Context) ([]entity.ClassCount, error) {
	return s.history.ClassStats(ctx)
}

// AlertLogs 告警 Worker 记录的满桶告警，新记录在前
func (s *Service) AlertLogs(ctx context.Context, limit int) ([]entity.AlertRecord, error) {
	return s.history.RecentAlerts(ctx, limit)
}

// publish 推送失败不影响主流程
func (s *Service) publish(ctx context.Context, channel string, payload interface{}) {
	if err := s.pub.Publish(ctx, channel, payload); err != nil {
		s.logger.Warnf(ctx, "[Registry] Publish %s failed: %v", channel, err)
	}
}
