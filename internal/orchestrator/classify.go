package orchestrator

import (
	"context"
	"fmt"
	"image"
	"time"

	"smartbin/internal/binclass"
	"smartbin/internal/device/actuator"
	"smartbin/internal/registry"
	"smartbin/internal/vision"
	"smartbin/pkg/logger"
)

// Status 流程结果状态
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Outcome 一次分类投放流程的结果
type Outcome struct {
	SessionID  string            `json:"session_id"`
	Class      binclass.BinClass `json:"class"`
	Confidence float64           `json:"confidence"`
	Detected   bool              `json:"detected"`
	OldLevel   int               `json:"old_level"`
	FinalLevel int               `json:"final_level"`
	Polls      int               `json:"polls"`
	Blocked    bool              `json:"blocked"`
	Angle      int               `json:"angle"`
	Status     Status            `json:"status"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Err        error             `json:"-"`
}

// ClassifyAndRoute 对一帧执行完整的分类投放流程（同步）
func (o *Orchestrator) ClassifyAndRoute(ctx context.Context, frame image.Image) (*Outcome, error) {
	sess, err := o.gate.Acquire(KindClassify, o.deps.Now())
	if err != nil {
		return nil, err
	}
	defer o.gate.Release(sess)

	return o.runClassify(logger.WithSession(ctx, sess.ID, string(KindClassify)), sess, frame), nil
}

// StartClassification 同步获取会话门，随后在后台拍摄并执行流程，立即返回
func (o *Orchestrator) StartClassification(ctx context.Context) error {
	sess, err := o.gate.Acquire(KindClassify, o.deps.Now())
	if err != nil {
		return err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.gate.Release(sess)

		flowCtx := logger.WithSession(o.baseCtx, sess.ID, string(KindClassify))
		if o.deps.Notifier != nil {
			if err := o.deps.Notifier.Begin(flowCtx); err != nil {
				o.logger.Warnf(flowCtx, "[Orchestrator] Notify begin failed: %v", err)
			}
		}

		frame, err := o.deps.Camera.Capture(flowCtx)
		if err != nil {
			out := &Outcome{SessionID: sess.ID, StartedAt: sess.StartedAt, OldLevel: binclass.Sentinel, FinalLevel: binclass.Sentinel}
			o.fail(flowCtx, out, fmt.Errorf("capture frame: %w", err))
			return
		}
		o.runClassify(flowCtx, sess, frame)
	}()
	return nil
}

func (o *Orchestrator) runClassify(ctx context.Context, sess *Session, frame image.Image) *Outcome {
	t := o.cfg.Timing
	out := &Outcome{
		SessionID:  sess.ID,
		StartedAt:  sess.StartedAt,
		OldLevel:   binclass.Sentinel,
		FinalLevel: binclass.Sentinel,
	}

	dets, err := o.deps.Classifier.Detect(ctx, frame)
	if err != nil {
		return o.fail(ctx, out, fmt.Errorf("classify: %w", err))
	}
	res := vision.Interpret(frame, dets)
	if !res.Detected {
		o.logger.Infof(ctx, "[Orchestrator] No object detected, routing to %s", res.Class)
	}

	class := res.Class
	angle, err := binclass.RotationAngle(class)
	if err != nil {
		return o.fail(ctx, out, err)
	}
	out.Class, out.Confidence, out.Detected, out.Angle = class, res.Confidence, res.Detected, angle
	ctx = logger.WithClass(ctx, class.String())
	o.logger.Infof(ctx, "[Orchestrator] Classified '%s' as %s (confidence %.2f), angle %d", res.Label, class, res.Confidence, angle)

	out.OldLevel = o.readLevel(ctx, class)

	if err := o.send(ctx, actuator.Rotate(class)); err != nil {
		return o.fail(ctx, out, err)
	}
	if err := o.sleep(ctx, t.rotateSettle(class)); err != nil {
		return o.abortAfterRotate(ctx, out, err)
	}

	if err := o.deps.Trigger.Trigger(ctx, class.String()); err != nil {
		return o.abortAfterRotate(ctx, out, fmt.Errorf("trigger station: %w", err))
	}
	if err := o.sleep(ctx, t.measureWait(class)); err != nil {
		return o.abortAfterRotate(ctx, out, err)
	}

	final, polls, err := o.pollLevel(ctx, class, out.OldLevel)
	out.FinalLevel, out.Polls = final, polls
	if err != nil {
		return o.abortAfterRotate(ctx, out, err)
	}
	o.logger.Infof(ctx, "[Orchestrator] Level %d -> %d after %d reads", out.OldLevel, final, polls)

	if final >= o.cfg.BlockThreshold {
		if err := o.send(ctx, actuator.BlockEntrance()); err != nil {
			return o.fail(ctx, out, err)
		}
		out.Blocked = true
		o.locked.Store(true)
		o.logger.Warnf(ctx, "[Orchestrator] %s bin at %d%%, entrance blocked", class, final)
		if err := o.sleep(ctx, t.BlockSettle); err != nil {
			return o.fail(ctx, out, err)
		}
	}

	o.publish(ctx, frame, res, angle)

	out.Status = StatusCompleted
	out.FinishedAt = o.deps.Now()
	o.setLast(out)
	return out
}

// pollLevel 最多读取 PollAttempts 次，读数变化即停；返回最后一次读数和读取次数
func (o *Orchestrator) pollLevel(ctx context.Context, class binclass.BinClass, old int) (int, int, error) {
	t := o.cfg.Timing
	last := old
	for i := 0; i < t.PollAttempts; i++ {
		if i > 0 {
			if err := o.sleep(ctx, t.PollInterval); err != nil {
				return last, i, err
			}
		}
		last = o.readLevel(ctx, class)
		if last != old {
			return last, i + 1, nil
		}
	}
	return last, t.PollAttempts, nil
}

// publish 保存图片并上传，失败只记录日志
func (o *Orchestrator) publish(ctx context.Context, frame image.Image, res vision.ClassificationResult, angle int) {
	annotated := vision.Annotate(frame, res)
	path, err := o.deps.Frames.Save(o.deps.Now(), frame, annotated)
	if err != nil {
		o.logger.Errorf(ctx, "[Orchestrator] Save frames failed: %v", err)
		return
	}
	meta := registry.UploadMeta{Class: res.Class, Angle: angle, DeviceID: o.cfg.DeviceID}
	if err := o.deps.Uploader.Upload(ctx, path, meta); err != nil {
		o.logger.Errorf(ctx, "[Orchestrator] Upload %s failed: %v", path, err)
		return
	}
	o.logger.Infof(ctx, "[Orchestrator] Uploaded %s", path)
}

func (o *Orchestrator) abortAfterRotate(ctx context.Context, out *Outcome, err error) *Outcome {
	if o.cfg.RehomeOnAbort {
		// ctx 可能已取消，回原点使用独立的 ctx
		if herr := o.deps.Actuator.Send(context.WithoutCancel(ctx), actuator.ReturnHome()); herr != nil {
			o.logger.Warnf(ctx, "[Orchestrator] Return home after abort failed: %v", herr)
		}
	}
	return o.fail(ctx, out, err)
}

func (o *Orchestrator) fail(ctx context.Context, out *Outcome, err error) *Outcome {
	out.Status = StatusFailed
	out.Err = err
	out.Error = err.Error()
	out.FinishedAt = o.deps.Now()
	o.logger.Errorf(ctx, "[Orchestrator] Classification aborted: %v", err)
	o.setLast(out)
	return out
}
