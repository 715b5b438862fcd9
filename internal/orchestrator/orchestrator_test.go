package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartbin/internal/binclass"
	"smartbin/internal/device/actuator"
	"smartbin/internal/registry"
	"smartbin/internal/vision"
	"smartbin/pkg/logger"
)

// recorder 按顺序记录所有外部交互
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) with(prefix string) []string {
	var out []string
	for _, e := range r.all() {
		if strings.HasPrefix(e, prefix) {
			out = append(out, e)
		}
	}
	return out
}

type fakeClassifier struct {
	dets []vision.Detection
	err  error
}

func (f *fakeClassifier) Detect(ctx context.Context, frame image.Image) ([]vision.Detection, error) {
	return f.dets, f.err
}

type fakeCamera struct{ err error }

func (f *fakeCamera) Capture(ctx context.Context) (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return image.NewRGBA(image.Rect(0, 0, 16, 16)), nil
}

type fakeActuator struct {
	rec   *recorder
	fail  map[actuator.Kind]error
	block chan struct{}
}

func (f *fakeActuator) Send(ctx context.Context, cmd actuator.Command) error {
	if f.block != nil {
		<-f.block
	}
	f.rec.add("send:%s", cmd.Wire())
	return f.fail[cmd.Kind]
}

type fakeTrigger struct {
	rec  *recorder
	fail map[string]error
}

func (f *fakeTrigger) Trigger(ctx context.Context, command string) error {
	f.rec.add("trigger:%s", command)
	return f.fail[command]
}

// fakeRegistry 每个分类按顺序返回读数，耗尽后重复最后一个
type fakeRegistry struct {
	rec  *recorder
	mu   sync.Mutex
	seq  map[binclass.BinClass][]int
	errs map[binclass.BinClass]error
}

func (f *fakeRegistry) Level(ctx context.Context, class binclass.BinClass) (int, error) {
	f.rec.add("level:%s", class)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[class]; err != nil {
		return binclass.Sentinel, err
	}
	s, ok := f.seq[class]
	if !ok || len(s) == 0 {
		return binclass.Sentinel, registry.ErrNotFound
	}
	v := s[0]
	if len(s) > 1 {
		f.seq[class] = s[1:]
	}
	return v, nil
}

type fakeUploader struct {
	rec   *recorder
	metas []registry.UploadMeta
}

func (f *fakeUploader) Upload(ctx context.Context, path string, meta registry.UploadMeta) error {
	f.rec.add("upload:%s", path)
	f.metas = append(f.metas, meta)
	return nil
}

type fakeFrames struct{ rec *recorder }

func (f *fakeFrames) Save(ts time.Time, raw, annotated image.Image) (string, error) {
	f.rec.add("save")
	return "/frames/" + ts.Format("20060102_150405") + "_result.jpg", nil
}

type harness struct {
	orch     *Orchestrator
	rec      *recorder
	cls      *fakeClassifier
	act      *fakeActuator
	trig     *fakeTrigger
	reg      *fakeRegistry
	uploader *fakeUploader
	now      time.Time
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	rec := &recorder{}
	h := &harness{
		rec:      rec,
		cls:      &fakeClassifier{},
		act:      &fakeActuator{rec: rec, fail: map[actuator.Kind]error{}},
		trig:     &fakeTrigger{rec: rec, fail: map[string]error{}},
		reg:      &fakeRegistry{rec: rec, seq: map[binclass.BinClass][]int{}, errs: map[binclass.BinClass]error{}},
		uploader: &fakeUploader{rec: rec},
		now:      time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	orch, err := New(cfg, Deps{
		Classifier: h.cls,
		Camera:     &fakeCamera{},
		Actuator:   h.act,
		Trigger:    h.trig,
		Registry:   h.reg,
		Uploader:   h.uploader,
		Frames:     &fakeFrames{rec: rec},
		Sleeper: SleeperFunc(func(ctx context.Context, d time.Duration) error {
			rec.add("sleep:%s", d)
			return nil
		}),
		Now: func() time.Time { return h.now },
	}, logger.NewNop())
	require.NoError(t, err)
	h.orch = orch
	return h
}

func frame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 16, 16))
}

func TestClassifyPlasticScenario(t *testing.T) {
	h := newHarness(t, nil)
	h.cls.dets = []vision.Detection{{Label: "plastic", Confidence: 0.92, Box: vision.Box{1, 1, 8, 8}}}
	h.reg.seq[binclass.Plastic] = []int{30, 30, 45}

	out, err := h.orch.ClassifyAndRoute(context.Background(), frame())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, binclass.Plastic, out.Class)
	assert.Equal(t, 90, out.Angle)
	assert.Equal(t, 30, out.OldLevel)
	assert.Equal(t, 45, out.FinalLevel)
	assert.Equal(t, 2, out.Polls)
	assert.False(t, out.Blocked)

	assert.Equal(t, []string{
		"level:plastic",
		"send:plastic",
		"sleep:2.5s",
		"trigger:plastic",
		"sleep:5s",
		"level:plastic",
		"sleep:2s",
		"level:plastic",
		"save",
		"upload:/frames/20250501_100000_result.jpg",
	}, h.rec.all())
	require.Len(t, h.uploader.metas, 1)
	assert.Equal(t, registry.UploadMeta{Class: binclass.Plastic, Angle: 90, DeviceID: "jetson"}, h.uploader.metas[0])
	assert.False(t, h.orch.Busy())
}

func TestClassifyNoDetectionScenario(t *testing.T) {
	h := newHarness(t, nil)
	h.reg.seq[binclass.GeneralTrash] = []int{10, 20}

	out, err := h.orch.ClassifyAndRoute(context.Background(), frame())
	require.NoError(t, err)

	assert.False(t, out.Detected)
	assert.Equal(t, binclass.GeneralTrash, out.Class)
	assert.Equal(t, 0, out.Angle)
	assert.Equal(t, []string{
		"level:general trash",
		"send:general trash",
		"trigger:general trash",
		"sleep:4s",
		"level:general trash",
		"save",
		"upload:/frames/20250501_100000_result.jpg",
	}, h.rec.all())
}

func TestPollIsBoundedAndReturnsLastValue(t *testing.T) {
	h := newHarness(t, nil)
	h.cls.dets = []vision.Detection{{Label: "metal", Confidence: 0.6}}
	h.reg.seq[binclass.Metal] = []int{50}

	out, err := h.orch.ClassifyAndRoute(context.Background(), frame())
	require.NoError(t, err)

	assert.Equal(t, 50, out.FinalLevel)
	assert.Equal(t, 5, out.Polls)
	// 1 次读取旧值 + 5 次轮询
	assert.Len(t, h.rec.with("level:"), 6)
	assert.Equal(t, []string{"sleep:2.5s", "sleep:5s", "sleep:2s", "sleep:2s", "sleep:2s", "sleep:2s"}, h.rec.with("sleep:"))
}

func TestThresholdBlocksExactlyOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.cls.dets = []vision.Detection{{Label: "glass", Confidence: 0.7}}
	h.reg.seq[binclass.Glass] = []int{70, 80}

	out, err := h.orch.ClassifyAndRoute(context.Background(), frame())
	require.NoError(t, err)

	assert.True(t, out.Blocked)
	assert.True(t, h.orch.Locked())
	assert.Equal(t, []string{"send:glass", "send:block_entrance"}, h.rec.with("send:"))
	assert.Contains(t, h.rec.all(), "sleep:3s")
}

func TestBelowThresholdDoesNotBlock(t *testing.T) {
	h := newHarness(t, nil)
	h.cls.dets = []vision.Detection{{Label: "glass", Confidence: 0.7}}
	h.reg.seq[binclass.Glass] = []int{70, 79}

	out, err := h.orch.ClassifyAndRoute(context.Background(), frame())
	require.NoError(t, err)
	assert.False(t, out.Blocked)
	assert.Equal(t, []string{"send:glass"}, h.rec.with("send:"))
}

func TestRegistryFailureUsesSentinelAndContinues(t *testing.T) {
	h := newHarness(t, nil)
	h.cls.dets = []vision.Detection{{Label: "metal", Confidence: 0.9}}
	h.reg.errs[binclass.Metal] = errors.New("connection refused")

	out, err := h.orch.ClassifyAndRoute(context.Background(), frame())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, binclass.Sentinel, out.OldLevel)
	assert.Equal(t, binclass.Sentinel, out.FinalLevel)
	assert.Equal(t, []string{"send:metal"}, h.rec.with("send:"))
	assert.Len(t, h.rec.with("trigger:"), 1)
}

func TestRotateFailureAbortsWithoutUpload(t *testing.T) {
	h := newHarness(t, nil)
	h.cls.dets = []vision.Detection{{Label: "plastic", Confidence: 0.9}}
	h.act.fail[actuator.KindRotate] = errors.New("serial gone")

	out, err := h.orch.ClassifyAndRoute(context.Background(), frame())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Error(t, out.Err)
	assert.Empty(t, h.rec.with("trigger:"))
	assert.Empty(t, h.rec.with("upload:"))
	assert.False(t, h.orch.Busy())
	assert.Equal(t, StatusFailed, h.orch.LastOutcome().Status)
}

func TestTriggerFailureAborts(t *testing.T) {
	h := newHarness(t, nil)
	h.cls.dets = []vision.Detection{{Label: "plastic", Confidence: 0.9}}
	h.trig.fail["plastic"] = errors.New("no route to host")

	out, err := h.orch.ClassifyAndRoute(context.Background(), frame())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, []string{"send:plastic"}, h.rec.with("send:"))
	assert.Empty(t, h.rec.with("upload:"))
}

func TestBlockFailureEndsFlowFailed(t *testing.T) {
	h := newHarness(t, nil)
	h.cls.dets = []vision.Detection{{Label: "glass", Confidence: 0.7}}
	h.reg.seq[binclass.Glass] = []int{70, 85}
	h.act.fail[actuator.KindBlock] = errors.New("write timeout")

	out, err := h.orch.ClassifyAndRoute(context.Background(), frame())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Error(t, out.Err)
	assert.False(t, out.Blocked)
	assert.False(t, h.orch.Locked())
	assert.Equal(t, []string{"send:glass", "send:block_entrance"}, h.rec.with("send:"))
	assert.Empty(t, h.rec.with("save"))
	assert.Empty(t, h.rec.with("upload:"))
	assert.False(t, h.orch.Busy())
	assert.Equal(t, StatusFailed, h.orch.LastOutcome().Status)
}

func TestRehomeOnAbort(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.RehomeOnAbort = true })
	h.cls.dets = []vision.Detection{{Label: "plastic", Confidence: 0.9}}
	h.trig.fail["plastic"] = errors.New("no route to host")

	out, err := h.orch.ClassifyAndRoute(context.Background(), frame())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, []string{"send:plastic", "send:empty_check_home"}, h.rec.with("send:"))
}

func TestClassifierErrorTerminatesFlow(t *testing.T) {
	h := newHarness(t, nil)
	h.cls.err = errors.New("model crashed")

	out, err := h.orch.ClassifyAndRoute(context.Background(), frame())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Empty(t, h.rec.all())
}

func TestCooldownRejectsSecondClassification(t *testing.T) {
	h := newHarness(t, nil)
	h.reg.seq[binclass.GeneralTrash] = []int{0, 1}

	_, err := h.orch.ClassifyAndRoute(context.Background(), frame())
	require.NoError(t, err)

	h.now = h.now.Add(2 * time.Second)
	_, err = h.orch.ClassifyAndRoute(context.Background(), frame())
	assert.ErrorIs(t, err, ErrCooldown)

	h.now = h.now.Add(time.Second)
	_, err = h.orch.ClassifyAndRoute(context.Background(), frame())
	assert.NoError(t, err)
}

func TestMutualExclusionWhileFlowRuns(t *testing.T) {
	h := newHarness(t, nil)
	h.reg.seq[binclass.GeneralTrash] = []int{0, 1}
	h.act.block = make(chan struct{})

	require.NoError(t, h.orch.StartClassification(context.Background()))
	assert.True(t, h.orch.Busy())

	assert.ErrorIs(t, h.orch.StartClassification(context.Background()), ErrBusy)
	_, err := h.orch.ConfirmAllEmpty(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(h.act.block)
	h.orch.Wait()
	assert.False(t, h.orch.Busy())
	assert.Len(t, h.rec.with("send:"), 1)
	assert.Equal(t, StatusCompleted, h.orch.LastOutcome().Status)
}

func TestStartClassificationCaptureFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.orch.deps.Camera = &fakeCamera{err: errors.New("camera offline")}

	require.NoError(t, h.orch.StartClassification(context.Background()))
	h.orch.Wait()

	last := h.orch.LastOutcome()
	require.NotNil(t, last)
	assert.Equal(t, StatusFailed, last.Status)
	assert.False(t, h.orch.Busy())
}

func TestConfirmAllEmptyCleared(t *testing.T) {
	h := newHarness(t, nil)
	for _, c := range binclass.All {
		h.reg.seq[c] = []int{5}
	}

	res, err := h.orch.ConfirmAllEmpty(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ConfirmCleared, res.Status)
	assert.Equal(t, map[string]int{"general trash": 5, "plastic": 5, "metal": 5, "glass": 5}, res.Levels)
	assert.False(t, h.orch.Locked())

	assert.Equal(t, []string{
		"send:unblock_entrance",
		"sleep:2s",
		"send:check:general trash",
		"sleep:500ms",
		"trigger:check:general trash",
		"sleep:3s",
		"level:general trash",
		"send:check:plastic",
		"sleep:1s",
		"trigger:check:plastic",
		"sleep:3s",
		"level:plastic",
		"send:check:metal",
		"sleep:1s",
		"trigger:check:metal",
		"sleep:3s",
		"level:metal",
		"send:check:glass",
		"sleep:1s",
		"trigger:check:glass",
		"sleep:3s",
		"level:glass",
		"send:empty_check_home",
		"sleep:1.5s",
	}, h.rec.all())
}

func TestConfirmAllEmptyStillFull(t *testing.T) {
	h := newHarness(t, nil)
	for _, c := range binclass.All {
		h.reg.seq[c] = []int{0}
	}
	h.reg.seq[binclass.Metal] = []int{80}

	res, err := h.orch.ConfirmAllEmpty(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ConfirmStillFull, res.Status)
	assert.True(t, h.orch.Locked())
	sends := h.rec.with("send:")
	assert.Equal(t, "send:block_entrance", sends[len(sends)-1])
	assert.Equal(t, "sleep:2s", h.rec.all()[len(h.rec.all())-1])
}

func TestConfirmSentinelIsNotCleared(t *testing.T) {
	h := newHarness(t, nil)
	for _, c := range binclass.All {
		h.reg.seq[c] = []int{0}
	}
	h.trig.fail["check:glass"] = errors.New("station down")

	res, err := h.orch.ConfirmAllEmpty(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ConfirmStillFull, res.Status)
	assert.Equal(t, binclass.Sentinel, res.Levels["glass"])
	assert.NotContains(t, h.rec.all(), "level:glass")
}

func TestConfirmCheckSendFailureRecordsSentinel(t *testing.T) {
	h := newHarness(t, nil)
	for _, c := range binclass.All {
		h.reg.seq[c] = []int{0}
	}
	h.act.fail[actuator.KindCheck] = errors.New("serial gone")

	res, err := h.orch.ConfirmAllEmpty(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ConfirmStillFull, res.Status)
	assert.Equal(t, map[string]int{"general trash": -1, "plastic": -1, "metal": -1, "glass": -1}, res.Levels)
	assert.Equal(t, []string{
		"send:unblock_entrance",
		"send:check:general trash",
		"send:check:plastic",
		"send:check:metal",
		"send:check:glass",
		"send:empty_check_home",
		"send:block_entrance",
	}, h.rec.with("send:"))
	assert.Empty(t, h.rec.with("trigger:"))
	assert.Empty(t, h.rec.with("level:"))
	assert.True(t, h.orch.Locked())
}

func TestConfirmUnblockFailureContinuesScan(t *testing.T) {
	h := newHarness(t, nil)
	for _, c := range binclass.All {
		h.reg.seq[c] = []int{0}
	}
	h.act.fail[actuator.KindUnblock] = errors.New("serial gone")

	res, err := h.orch.ConfirmAllEmpty(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ConfirmCleared, res.Status)
	assert.Len(t, h.rec.with("trigger:check:"), 4)
	assert.Len(t, h.rec.with("level:"), 4)
	assert.Equal(t, "send:empty_check_home", h.rec.with("send:")[5])
	assert.False(t, h.orch.Locked())
}

func TestConfirmDoesNotApplyCooldown(t *testing.T) {
	h := newHarness(t, nil)
	for _, c := range binclass.All {
		h.reg.seq[c] = []int{0, 1}
	}
	_, err := h.orch.ClassifyAndRoute(context.Background(), frame())
	require.NoError(t, err)

	_, err = h.orch.ConfirmAllEmpty(context.Background())
	assert.NoError(t, err)
}

func TestGateAcquireRelease(t *testing.T) {
	g := NewGate(3 * time.Second)
	now := time.Now()

	s, err := g.Acquire(KindConfirm, now)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, KindConfirm, g.Current().Kind)

	_, err = g.Acquire(KindClassify, now)
	assert.ErrorIs(t, err, ErrBusy)

	g.Release(s)
	assert.False(t, g.Busy())
	assert.Nil(t, g.Current())

	s, err = g.Acquire(KindClassify, now)
	require.NoError(t, err)
	g.Release(s)
	_, err = g.Acquire(KindClassify, now.Add(time.Second))
	assert.ErrorIs(t, err, ErrCooldown)
	assert.False(t, g.Busy())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Timing.PollAttempts = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.BlockThreshold = 0
	assert.Error(t, cfg.Validate())
}
