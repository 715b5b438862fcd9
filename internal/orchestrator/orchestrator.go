// Package orchestrator 跨设备编排：分类投放流程与清空确认流程。
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/atomic"

	"smartbin/internal/binclass"
	"smartbin/internal/device/actuator"
	"smartbin/internal/registry"
	"smartbin/internal/vision"
	"smartbin/pkg/logger"
)

// Classifier 目标检测
type Classifier interface {
	Detect(ctx context.Context, frame image.Image) ([]vision.Detection, error)
}

// Camera 拍摄
type Camera interface {
	Capture(ctx context.Context) (image.Image, error)
}

// Actuator 执行器命令通道
type Actuator interface {
	Send(ctx context.Context, cmd actuator.Command) error
}

// SensorTrigger 触发传感站测量
type SensorTrigger interface {
	Trigger(ctx context.Context, command string) error
}

// FillRegistry 读取最新满溢度
type FillRegistry interface {
	Level(ctx context.Context, class binclass.BinClass) (int, error)
}

// Uploader 上传标注图
type Uploader interface {
	Upload(ctx context.Context, imagePath string, meta registry.UploadMeta) error
}

// Notifier 通知 UI 开始处理
type Notifier interface {
	Begin(ctx context.Context) error
}

// FrameStore 保存原图和标注图，返回标注图路径
type FrameStore interface {
	Save(ts time.Time, raw, annotated image.Image) (string, error)
}

// Config 编排配置
type Config struct {
	Timing         Timing `mapstructure:"timing"`
	BlockThreshold int    `mapstructure:"block_threshold"`
	DeviceID       string `mapstructure:"device_id"`
	// RehomeOnAbort 转动成功后流程中止时，尽力发送回原点命令
	RehomeOnAbort bool `mapstructure:"rehome_on_abort"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Timing:         DefaultTiming(),
		BlockThreshold: 80,
		DeviceID:       "jetson",
	}
}

// Validate 校验
func (c Config) Validate() error {
	if c.BlockThreshold < 1 || c.BlockThreshold > 100 {
		return fmt.Errorf("block_threshold must be in [1,100], got %d", c.BlockThreshold)
	}
	return c.Timing.Validate()
}

// Deps 外部协作方
type Deps struct {
	Classifier Classifier
	Camera     Camera
	Actuator   Actuator
	Trigger    SensorTrigger
	Registry   FillRegistry
	Uploader   Uploader
	Notifier   Notifier
	Frames     FrameStore
	Sleeper    Sleeper
	Now        func() time.Time
}

func (d *Deps) check() error {
	missing := map[string]bool{
		"classifier": d.Classifier == nil,
		"camera":     d.Camera == nil,
		"actuator":   d.Actuator == nil,
		"trigger":    d.Trigger == nil,
		"registry":   d.Registry == nil,
		"uploader":   d.Uploader == nil,
		"frames":     d.Frames == nil,
	}
	for name, isMissing := range missing {
		if isMissing {
			return fmt.Errorf("orchestrator: %s is required", name)
		}
	}
	if d.Sleeper == nil {
		d.Sleeper = TimerSleeper{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return nil
}

// Orchestrator 编排器
type Orchestrator struct {
	cfg    Config
	deps   Deps
	gate   *Gate
	locked *atomic.Bool
	logger logger.Logger

	mu   sync.RWMutex
	last *Outcome

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New 创建编排器
func New(cfg Config, deps Deps, log logger.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.check(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		gate:    NewGate(cfg.Timing.Cooldown),
		locked:  atomic.NewBool(false),
		logger:  log,
		baseCtx: ctx,
		cancel:  cancel,
	}, nil
}

// Busy 是否有流程在执行
func (o *Orchestrator) Busy() bool {
	return o.gate.Busy()
}

// Locked 入口是否处于封锁状态
func (o *Orchestrator) Locked() bool {
	return o.locked.Load()
}

// LastOutcome 最近一次分类流程结果
func (o *Orchestrator) LastOutcome() *Outcome {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.last == nil {
		return nil
	}
	out := *o.last
	return &out
}

// Diagnose 透传原始命令到执行器（诊断用）
func (o *Orchestrator) Diagnose(ctx context.Context, message string) error {
	return o.deps.Actuator.Send(ctx, actuator.Raw(message))
}

// Close 取消后台流程并等待退出
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// Wait 等待后台流程结束（测试用）
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return o.deps.Sleeper.Sleep(ctx, d)
}

// readLevel 读取失败或分类缺失按哨兵值处理
func (o *Orchestrator) readLevel(ctx context.Context, class binclass.BinClass) int {
	level, err := o.deps.Registry.Level(ctx, class)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			o.logger.Warnf(ctx, "[Orchestrator] No level recorded for %s", class)
		} else {
			o.logger.Warnf(ctx, "[Orchestrator] Read level for %s failed: %v", class, err)
		}
		return binclass.Sentinel
	}
	return level
}

func (o *Orchestrator) send(ctx context.Context, cmd actuator.Command) error {
	if err := o.deps.Actuator.Send(ctx, cmd); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}
	return nil
}

func (o *Orchestrator) setLast(out *Outcome) {
	o.mu.Lock()
	o.last = out
	o.mu.Unlock()
}
