// Package serialline 按行收发的串口封装，执行器和传感站的单片机都使用这种协议。
package serialline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"
	"go.uber.org/atomic"
)

// ErrClosed 串口未打开或已关闭
var ErrClosed = errors.New("serial line closed")

// idleGap 底层读超时返回 0 字节时的等待间隔
const idleGap = 10 * time.Millisecond

// Config 串口配置
type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// Port 行协议串口
type Port struct {
	mu     sync.Mutex
	name   string
	rw     io.ReadWriteCloser
	buf    []byte
	closed *atomic.Bool
}

// Open 打开串口，失败由调用方决定是否致命
func Open(cfg Config) (*Port, error) {
	if cfg.ReadTimeout <= 0 {
		return nil, fmt.Errorf("serial %s: read timeout must be positive", cfg.Device)
	}
	sp, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Device, err)
	}
	return New(cfg.Device, sp), nil
}

// New 使用已有的读写端构造 Port（测试注入）
func New(name string, rw io.ReadWriteCloser) *Port {
	return &Port{
		name:   name,
		rw:     rw,
		closed: atomic.NewBool(false),
	}
}

// Name 串口设备名
func (p *Port) Name() string {
	return p.name
}

// IsOpen 串口是否可用
func (p *Port) IsOpen() bool {
	return p != nil && !p.closed.Load()
}

// Exchange 丢弃残留数据，写入一行，等待 gap 后在 timeout 内读取一行应答
// ok=false 表示超时内没有完整应答
func (p *Port) Exchange(line string, gap, timeout time.Duration) (reply string, ok bool, err error) {
	if !p.IsOpen() {
		return "", false, ErrClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = p.buf[:0]
	if err := p.writeLine(line); err != nil {
		return "", false, err
	}
	if gap > 0 {
		time.Sleep(gap)
	}
	return p.readLine(timeout)
}

// Close 关闭串口
func (p *Port) Close() error {
	if !p.closed.CAS(false, true) {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rw.Close()
}

func (p *Port) writeLine(line string) error {
	if _, err := p.rw.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("write %s: %w", p.name, err)
	}
	return nil
}

func (p *Port) readLine(timeout time.Duration) (string, bool, error) {
	deadline := time.Now().Add(timeout)
	chunk := make([]byte, 128)
	for {
		if i := bytes.IndexByte(p.buf, '\n'); i >= 0 {
			line := strings.TrimSpace(string(p.buf[:i]))
			p.buf = append(p.buf[:0], p.buf[i+1:]...)
			return line, true, nil
		}
		if !time.Now().Before(deadline) {
			return "", false, nil
		}

		n, err := p.rw.Read(chunk)
		if n > 0 {
			p.buf = append(p.buf, chunk[:n]...)
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", false, fmt.Errorf("read %s: %w", p.name, err)
		}
		time.Sleep(idleGap)
	}
}
