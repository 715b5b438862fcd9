package station

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"smartbin/internal/device/serialline"
	"smartbin/pkg/errorutil"
)

// 传感站单片机行协议
const (
	cmdMeasure = "measure"
	cmdInsert  = "insert"
	replyError = "err"
)

// BoardConfig 传感站单片机串口配置
type BoardConfig struct {
	Device         string        `mapstructure:"device"`
	Baud           int           `mapstructure:"baud"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	MeasureTimeout time.Duration `mapstructure:"measure_timeout"`
	InsertTimeout  time.Duration `mapstructure:"insert_timeout"`
}

// Board 通过串口驱动超声波测距和投放舵机，同时实现 Probe 和 Inserter
type Board struct {
	port *serialline.Port
	cfg  BoardConfig
}

// OpenBoard 打开传感站串口
func OpenBoard(cfg BoardConfig) (*Board, error) {
	port, err := serialline.Open(serialline.Config{
		Device:      cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, errorutil.Device("open station board", err)
	}
	return NewBoard(port, cfg), nil
}

// NewBoard 使用已打开的串口构造
func NewBoard(port *serialline.Port, cfg BoardConfig) *Board {
	return &Board{port: port, cfg: cfg}
}

// Distance 执行一次测距，单片机应答距离（cm），err 表示回波超时
func (b *Board) Distance(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	reply, ok, err := b.port.Exchange(cmdMeasure, 0, b.cfg.MeasureTimeout)
	if err != nil {
		return 0, errorutil.Device("measure", err)
	}
	if !ok || reply == replyError {
		return 0, errorutil.Device("measure", fmt.Errorf("no echo (reply=%q)", reply))
	}
	d, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, errorutil.Device("measure", fmt.Errorf("bad reply %q: %w", reply, err))
	}
	return d, nil
}

// Insert 执行投放序列（舵机打开、停留、复位），单片机完成后应答 ok
func (b *Board) Insert(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reply, ok, err := b.port.Exchange(cmdInsert, 0, b.cfg.InsertTimeout)
	if err != nil {
		return errorutil.Device("insert", err)
	}
	if !ok {
		return errorutil.Device("insert", fmt.Errorf("no completion within %s", b.cfg.InsertTimeout))
	}
	if reply == replyError {
		return errorutil.Device("insert", fmt.Errorf("board reported failure"))
	}
	return nil
}

// Close 关闭串口
func (b *Board) Close() error {
	return b.port.Close()
}
