package orchestrator

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

var (
	// ErrBusy 已有流程在执行
	ErrBusy = errors.New("orchestrator busy")
	// ErrCooldown 距上次分类流程开始不足冷却时间
	ErrCooldown = errors.New("classification cooling down")
)

// Kind 流程类型
type Kind string

const (
	KindClassify Kind = "classify"
	KindConfirm  Kind = "confirm"
)

// Session 一次流程执行，由获取它的流程独占
type Session struct {
	ID        string
	Kind      Kind
	StartedAt time.Time
}

// Gate 单槽会话门，全系统同一时刻最多一个流程；拒绝的请求直接丢弃，不排队
type Gate struct {
	cooldown time.Duration
	busy     *atomic.Bool

	mu           sync.Mutex
	current      *Session
	lastClassify time.Time
}

// NewGate 创建会话门
func NewGate(cooldown time.Duration) *Gate {
	return &Gate{cooldown: cooldown, busy: atomic.NewBool(false)}
}

// Acquire 非阻塞获取；classify 额外检查冷却时间（从上次 classify 开始计）
func (g *Gate) Acquire(kind Kind, now time.Time) (*Session, error) {
	if !g.busy.CAS(false, true) {
		return nil, ErrBusy
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if kind == KindClassify {
		if !g.lastClassify.IsZero() && now.Sub(g.lastClassify) < g.cooldown {
			g.busy.Store(false)
			return nil, ErrCooldown
		}
		g.lastClassify = now
	}

	g.current = &Session{ID: uuid.NewString(), Kind: kind, StartedAt: now}
	return g.current, nil
}

// Release 无条件清空槽位
func (g *Gate) Release(_ *Session) {
	g.mu.Lock()
	g.current = nil
	g.mu.Unlock()
	g.busy.Store(false)
}

// Busy 是否有流程在执行
func (g *Gate) Busy() bool {
	return g.busy.Load()
}

// Current 当前会话（只读副本），空闲时返回 nil
func (g *Gate) Current() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return nil
	}
	s := *g.current
	return &s
}
