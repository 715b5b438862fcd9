package orchestrator

import (
	"context"

	"smartbin/internal/binclass"
	"smartbin/internal/device/actuator"
	"smartbin/pkg/logger"
)

const (
	ConfirmCleared   = "cleared"
	ConfirmStillFull = "still_full"
)

// ConfirmResult 清空确认结果
type ConfirmResult struct {
	Status string         `json:"status"`
	Levels map[string]int `json:"levels"`
}

// ConfirmAllEmpty 管理员清空后逐桶复测；全部低于阈值则解除封锁，否则继续封锁
func (o *Orchestrator) ConfirmAllEmpty(ctx context.Context) (*ConfirmResult, error) {
	sess, err := o.gate.Acquire(KindConfirm, o.deps.Now())
	if err != nil {
		return nil, err
	}
	defer o.gate.Release(sess)

	ctx = logger.WithSession(ctx, sess.ID, string(KindConfirm))
	t := o.cfg.Timing

	if err := o.send(ctx, actuator.UnblockEntrance()); err != nil {
		o.logger.Errorf(ctx, "[Orchestrator] Unblock failed: %v", err)
	}
	if err := o.sleep(ctx, t.UnblockSettle); err != nil {
		return nil, err
	}

	levels := make(map[string]int, len(binclass.All))
	for _, class := range binclass.All {
		level, err := o.checkOne(logger.WithClass(ctx, class.String()), class)
		if err != nil {
			return nil, err
		}
		levels[class.String()] = level
	}

	if err := o.send(ctx, actuator.ReturnHome()); err != nil {
		o.logger.Errorf(ctx, "[Orchestrator] Return home failed: %v", err)
	}
	if err := o.sleep(ctx, t.HomeSettle); err != nil {
		return nil, err
	}

	res := &ConfirmResult{Status: ConfirmCleared, Levels: levels}
	if !o.allClear(levels) {
		res.Status = ConfirmStillFull
		if err := o.send(ctx, actuator.BlockEntrance()); err != nil {
			o.logger.Errorf(ctx, "[Orchestrator] Block failed: %v", err)
		}
		o.locked.Store(true)
		if err := o.sleep(ctx, t.StillFullSettle); err != nil {
			return res, err
		}
	} else {
		o.locked.Store(false)
	}

	o.logger.Infof(ctx, "[Orchestrator] Empty check %s: %v", res.Status, levels)
	return res, nil
}

// checkOne 单桶复测；设备故障记为哨兵值继续，仅 ctx 取消时返回错误
func (o *Orchestrator) checkOne(ctx context.Context, class binclass.BinClass) (int, error) {
	t := o.cfg.Timing

	if err := o.send(ctx, actuator.Check(class)); err != nil {
		o.logger.Errorf(ctx, "[Orchestrator] Check rotate failed: %v", err)
		return binclass.Sentinel, nil
	}
	if err := o.sleep(ctx, t.checkSettle(class)); err != nil {
		return binclass.Sentinel, err
	}
	if err := o.deps.Trigger.Trigger(ctx, "check:"+class.String()); err != nil {
		o.logger.Errorf(ctx, "[Orchestrator] Trigger check failed: %v", err)
		return binclass.Sentinel, nil
	}
	if err := o.sleep(ctx, t.CheckMeasureWait); err != nil {
		return binclass.Sentinel, err
	}
	return o.readLevel(ctx, class), nil
}

func (o *Orchestrator) allClear(levels map[string]int) bool {
	for _, level := range levels {
		if level < 0 || level >= o.cfg.BlockThreshold {
			return false
		}
	}
	return true
}
