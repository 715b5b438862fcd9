package serialline

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
)

// FakeDevice 内存中的单片机模拟，用于测试
// Respond 返回空字符串表示不应答
type FakeDevice struct {
	mu       sync.Mutex
	Respond  func(line string) string
	WriteErr error
	lines    []string
	partial  []byte
	out      bytes.Buffer
	closed   bool
}

// Lines 已收到的命令行
func (f *FakeDevice) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func (f *FakeDevice) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errors.New("fake device closed")
	}
	if f.WriteErr != nil {
		return 0, f.WriteErr
	}

	f.partial = append(f.partial, b...)
	for {
		i := bytes.IndexByte(f.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(f.partial[:i]))
		f.partial = f.partial[i+1:]
		f.lines = append(f.lines, line)
		if f.Respond != nil {
			if reply := f.Respond(line); reply != "" {
				f.out.WriteString(reply + "\n")
			}
		}
	}
	return len(b), nil
}

func (f *FakeDevice) Read(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.out.Len() == 0 {
		return 0, io.EOF
	}
	return f.out.Read(b)
}

func (f *FakeDevice) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
