// Package actuator 与转盘执行器（Arduino）之间的点对点命令通道。
package actuator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartbin/internal/device/serialline"
	"smartbin/pkg/logger"
)

// ErrLinkClosed 通道未打开
var ErrLinkClosed = errors.New("actuator link not open")

// Config 执行器通道配置
type Config struct {
	Device      string        `mapstructure:"device"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	AckDelay    time.Duration `mapstructure:"ack_delay"`
	AckWait     time.Duration `mapstructure:"ack_wait"`
	BootDelay   time.Duration `mapstructure:"boot_delay"`
}

// Link 执行器通道
type Link struct {
	port   *serialline.Port
	cfg    Config
	logger logger.Logger
}

// Open 打开持久串口连接，失败时服务不可降级运行
func Open(ctx context.Context, cfg Config, log logger.Logger) (*Link, error) {
	port, err := serialline.Open(serialline.Config{
		Device:      cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}

	// Arduino 打开串口时会复位
	if cfg.BootDelay > 0 {
		time.Sleep(cfg.BootDelay)
	}

	link := NewLink(port, cfg, log)
	log.Infof(ctx, "[Actuator] Link opened on %s @%d", cfg.Device, cfg.Baud)

	if err := link.Send(ctx, Raw("test")); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("actuator handshake: %w", err)
	}
	return link, nil
}

// NewLink 基于已打开的串口构造
func NewLink(port *serialline.Port, cfg Config, log logger.Logger) *Link {
	return &Link{port: port, cfg: cfg, logger: log}
}

// Send 写入命令，等待片刻后尝试读取应答；应答只记录日志，不参与控制决策
func (l *Link) Send(ctx context.Context, cmd Command) error {
	if l == nil || !l.port.IsOpen() {
		l.logWarn(ctx, "[Actuator] Link not open, dropping command '%s'", cmd)
		return ErrLinkClosed
	}

	wire := cmd.Wire()
	if wire == "" {
		return fmt.Errorf("actuator: empty command")
	}

	reply, ok, err := l.port.Exchange(wire, l.cfg.AckDelay, l.cfg.AckWait)
	if err != nil {
		if errors.Is(err, serialline.ErrClosed) {
			return ErrLinkClosed
		}
		l.logger.Errorf(ctx, "[Actuator] Send '%s' failed: %v", wire, err)
		return fmt.Errorf("actuator send %q: %w", wire, err)
	}

	l.logger.Infof(ctx, "[Actuator] Sent '%s'", wire)
	if ok {
		l.logger.Infof(ctx, "[Actuator] Reply: %s", reply)
	}
	return nil
}

// Close 关闭串口
func (l *Link) Close() error {
	return l.port.Close()
}

func (l *Link) logWarn(ctx context.Context, format string, args ...interface{}) {
	if l != nil && l.logger != nil {
		l.logger.Warnf(ctx, format, args...)
	}
}
