package fillregistry

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"smartbin/internal/entity"
	"smartbin/pkg/lmstfy"
)

// LocalStorage 本地目录存储
type LocalStorage struct {
	dir string
}

// NewLocalStorage 创建目录
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &LocalStorage{dir: dir}, nil
}

// Dir 存储目录（静态文件服务使用）
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Save 写入文件，返回 /images/<name>
func (s *LocalStorage) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return "/images/" + name, nil
}

// LmstfyAlertQueue 满桶告警投递到 lmstfy
type LmstfyAlertQueue struct {
	client *lmstfy.Client
	queue  string
	ttl    time.Duration
}

// NewLmstfyAlertQueue 创建
func NewLmstfyAlertQueue(client *lmstfy.Client, queue string, ttl time.Duration) *LmstfyAlertQueue {
	return &LmstfyAlertQueue{client: client, queue: queue, ttl: ttl}
}

// Enqueue 实现 AlertQueue
func (q *LmstfyAlertQueue) Enqueue(_ context.Context, alert entity.BinFullAlert) error {
	_, err := q.client.PublishJSON(q.queue, alert, q.ttl)
	return err
}
