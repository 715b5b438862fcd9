package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"smartbin/internal/framework"
	"smartbin/pkg/config"
	"smartbin/pkg/logger"
)

// ProcFactory 按 Worker 配置构造业务处理函数
type ProcFactory func(cfg config.WorkerConfig) (framework.Proc, error)

// Manager Worker 管理器
type Manager struct {
	ctx        context.Context
	workerCfgs []config.WorkerConfig
	source     framework.MessageSource
	newProc    ProcFactory
	workers    []Worker
	closing    *atomic.Bool
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	logger     logger.Logger
}

// NewManager 创建 Manager
func NewManager(workerCfgs []config.WorkerConfig, source framework.MessageSource, newProc ProcFactory, log logger.Logger) (*Manager, error) {
	if len(workerCfgs) == 0 {
		return nil, fmt.Errorf("no workers configured")
	}
	return &Manager{
		ctx:        context.Background(),
		workerCfgs: workerCfgs,
		source:     source,
		newProc:    newProc,
		closing:    atomic.NewBool(false),
		shutdownCh: make(chan struct{}),
		logger:     log,
	}, nil
}

// Start 加载并启动所有 Worker，阻塞到 Shutdown
func (m *Manager) Start() error {
	m.logger.Infof(m.ctx, "[Manager] Starting...")

	m.mu.Lock()
	if m.closing.Load() {
		m.mu.Unlock()
		return nil
	}
	if err := m.loadWorkers(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to load workers: %w", err)
	}
	for _, worker := range m.workers {
		w := worker
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			w.Start()
		}()
		m.logger.Infof(m.ctx, "[Manager] Worker started: %s", w.GetName())
	}

	m.logger.Infof(m.ctx, "[Manager] Start success, workers: %d", len(m.workers))
	m.mu.Unlock()

	<-m.shutdownCh
	return nil
}

// Shutdown 优雅退出，可重复调用
func (m *Manager) Shutdown() {
	if !m.closing.CAS(false, true) {
		return
	}
	m.logger.Infof(m.ctx, "[Manager] Began to close")

	m.mu.Lock()
	workers := m.workers
	m.mu.Unlock()

	for _, worker := range workers {
		m.logger.Infof(m.ctx, "[Manager] Shutting down worker: %s", worker.GetName())
		worker.Shutdown()
	}
	m.wg.Wait()
	close(m.shutdownCh)

	m.logger.Infof(m.ctx, "[Manager] Shutdown complete")
}

func (m *Manager) loadWorkers() error {
	for _, wc := range m.workerCfgs {
		subCfg := &framework.SubscriberConfig{
			QueueName:    wc.QueueName,
			Concurrency:  wc.Subscriber.Threads,
			Rate:         wc.Subscriber.Rate,
			Timeout:      wc.Subscriber.Timeout,
			TTR:          wc.Subscriber.TTR,
			ErrorBackoff: wc.Subscriber.ErrorBackoff,
		}
		procCfg := &framework.ProcessorConfig{
			Concurrency: wc.Processor.Threads,
			BufferSize:  wc.Processor.BufferSize,
			Timeout:     wc.Processor.Timeout,
		}

		proc, err := m.newProc(wc)
		if err != nil {
			return fmt.Errorf("failed to create worker %s: %w", wc.Name, err)
		}
		m.workers = append(m.workers, NewWorkerInstance(m.ctx, wc.Name, subCfg, procCfg, m.source, proc, m.logger))
	}
	return nil
}
