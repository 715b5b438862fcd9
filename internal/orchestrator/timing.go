package orchestrator

import (
	"context"
	"fmt"
	"time"

	"smartbin/internal/binclass"
)

// Timing 流程中所有等待时长
type Timing struct {
	Cooldown           time.Duration `mapstructure:"cooldown"`
	RotateSettle       time.Duration `mapstructure:"rotate_settle"`
	MeasureWait        time.Duration `mapstructure:"measure_wait"`
	MeasureWaitGeneral time.Duration `mapstructure:"measure_wait_general"`
	PollAttempts       int           `mapstructure:"poll_attempts"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	BlockSettle        time.Duration `mapstructure:"block_settle"`
	UnblockSettle      time.Duration `mapstructure:"unblock_settle"`
	CheckSettle        time.Duration `mapstructure:"check_settle"`
	CheckSettleGeneral time.Duration `mapstructure:"check_settle_general"`
	CheckMeasureWait   time.Duration `mapstructure:"check_measure_wait"`
	HomeSettle         time.Duration `mapstructure:"home_settle"`
	StillFullSettle    time.Duration `mapstructure:"still_full_settle"`
}

// DefaultTiming 与现场设备标定一致的默认值
func DefaultTiming() Timing {
	return Timing{
		Cooldown:           3 * time.Second,
		RotateSettle:       2500 * time.Millisecond,
		MeasureWait:        5 * time.Second,
		MeasureWaitGeneral: 4 * time.Second,
		PollAttempts:       5,
		PollInterval:       2 * time.Second,
		BlockSettle:        3 * time.Second,
		UnblockSettle:      2 * time.Second,
		CheckSettle:        time.Second,
		CheckSettleGeneral: 500 * time.Millisecond,
		CheckMeasureWait:   3 * time.Second,
		HomeSettle:         1500 * time.Millisecond,
		StillFullSettle:    2 * time.Second,
	}
}

// Validate 校验
func (t Timing) Validate() error {
	if t.PollAttempts < 1 {
		return fmt.Errorf("poll_attempts must be >= 1, got %d", t.PollAttempts)
	}
	durations := map[string]time.Duration{
		"cooldown":             t.Cooldown,
		"rotate_settle":        t.RotateSettle,
		"measure_wait":         t.MeasureWait,
		"measure_wait_general": t.MeasureWaitGeneral,
		"poll_interval":        t.PollInterval,
		"block_settle":         t.BlockSettle,
		"unblock_settle":       t.UnblockSettle,
		"check_settle":         t.CheckSettle,
		"check_settle_general": t.CheckSettleGeneral,
		"check_measure_wait":   t.CheckMeasureWait,
		"home_settle":          t.HomeSettle,
		"still_full_settle":    t.StillFullSettle,
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	return nil
}

func (t Timing) rotateSettle(c binclass.BinClass) time.Duration {
	if !c.NeedsRotation() {
		return 0
	}
	return t.RotateSettle
}

func (t Timing) measureWait(c binclass.BinClass) time.Duration {
	if !c.NeedsRotation() {
		return t.MeasureWaitGeneral
	}
	return t.MeasureWait
}

func (t Timing) checkSettle(c binclass.BinClass) time.Duration {
	if !c.NeedsRotation() {
		return t.CheckSettleGeneral
	}
	return t.CheckSettle
}

// Sleeper 等待抽象，测试中记录等待而不真正睡眠
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc 函数适配
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep 实现 Sleeper
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper 基于 time.Timer，ctx 取消时提前返回
type TimerSleeper struct{}

// Sleep 实现 Sleeper
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
