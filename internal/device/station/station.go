// Package station 满溢度传感站：接收命令，执行一次测距并将结果上报登记服务。
package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"smartbin/internal/binclass"
	"smartbin/internal/registry"
	"smartbin/pkg/logger"
)

const (
	checkPrefix = "check:"
	maxCommand  = 1024
)

// Probe 测距驱动，返回距离（cm）
type Probe interface {
	Distance(ctx context.Context) (float64, error)
}

// Inserter 投放机构驱动（舵机投放序列）
type Inserter interface {
	Insert(ctx context.Context) error
}

// Reporter 结果上报
type Reporter interface {
	Report(ctx context.Context, report registry.LevelReport) error
}

// Config 传感站配置
type Config struct {
	Listen        string        `mapstructure:"listen"`
	DeviceID      string        `mapstructure:"device_id"`
	CheckSettle   time.Duration `mapstructure:"check_settle"`
	InsertSettle  time.Duration `mapstructure:"insert_settle"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	ReportRetries int           `mapstructure:"report_retries"`
	ReportBackoff time.Duration `mapstructure:"report_backoff"`
}

// Result 单次处理结果
type Result struct {
	Class     binclass.BinClass
	CheckOnly bool
	Distance  float64
	Level     int
}

// Station 传感站服务
type Station struct {
	cfg      Config
	probe    Probe
	inserter Inserter
	reporter Reporter
	logger   logger.Logger
	sleep    func(time.Duration)
}

// New 创建传感站
func New(cfg Config, probe Probe, inserter Inserter, reporter Reporter, log logger.Logger) *Station {
	return &Station{
		cfg:      cfg,
		probe:    probe,
		inserter: inserter,
		reporter: reporter,
		logger:   log,
		sleep:    time.Sleep,
	}
}

// Serve 逐个处理连接，ctx 取消后关闭监听
func (s *Station) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.logger.Infof(ctx, "[Station] Listening on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Infof(ctx, "[Station] Stopped")
				return nil
			}
			return fmt.Errorf("station accept: %w", err)
		}

		command, err := s.readCommand(conn)
		_ = conn.Close()
		if err != nil {
			s.logger.Warnf(ctx, "[Station] Read command from %s failed: %v", conn.RemoteAddr(), err)
			continue
		}
		s.logger.Infof(ctx, "[Station] Received '%s' from %s", command, conn.RemoteAddr())

		if _, err := s.Handle(ctx, command); err != nil {
			s.logger.Errorf(ctx, "[Station] Handle '%s' failed: %v", command, err)
		}
	}
}

func (s *Station) readCommand(conn net.Conn) (string, error) {
	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
	buf := make([]byte, maxCommand)
	n, err := conn.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	command := strings.TrimSpace(string(buf[:n]))
	if command == "" {
		return "", errors.New("empty command")
	}
	return command, nil
}

// Handle 处理一条命令：check:<分类> 只测量，<分类> 先投放再测量
func (s *Station) Handle(ctx context.Context, command string) (*Result, error) {
	checkOnly := strings.HasPrefix(command, checkPrefix)
	name := strings.TrimPrefix(command, checkPrefix)

	class, err := binclass.Parse(name)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithClass(ctx, class.String())

	res := &Result{Class: class, CheckOnly: checkOnly}
	if checkOnly {
		s.sleep(s.cfg.CheckSettle)
	} else {
		s.sleep(s.cfg.InsertSettle)
		if err := s.inserter.Insert(ctx); err != nil {
			// 投放失败仍然测量，让上游看到真实满溢度
			s.logger.Errorf(ctx, "[Station] Insert sequence failed: %v", err)
		}
	}

	dist, err := s.probe.Distance(ctx)
	if err != nil {
		s.logger.Warnf(ctx, "[Station] Distance measurement failed: %v", err)
		res.Distance = -1
		res.Level = binclass.Sentinel
	} else {
		res.Distance = dist
		res.Level = DistanceToPercent(dist)
		s.logger.Infof(ctx, "[Station] Distance %.2fcm -> %d%%", dist, res.Level)
	}

	if err := s.report(ctx, class, res.Level); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Station) report(ctx context.Context, class binclass.BinClass, level int) error {
	rep := registry.LevelReport{Class: class.String(), Level: level, DeviceID: s.cfg.DeviceID}

	retries := s.cfg.ReportRetries
	if retries < 0 {
		retries = 0
	}
	b := retry.WithMaxRetries(uint64(retries), retry.NewConstant(s.backoff()))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := s.reporter.Report(ctx, rep); err != nil {
			s.logger.Warnf(ctx, "[Station] Report failed, retrying: %v", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("report %s=%d: %w", class, level, err)
	}
	s.logger.Infof(ctx, "[Station] Reported %s=%d%%", class, level)
	return nil
}

func (s *Station) backoff() time.Duration {
	if s.cfg.ReportBackoff > 0 {
		return s.cfg.ReportBackoff
	}
	return 500 * time.Millisecond
}
