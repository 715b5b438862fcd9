// Package registry Fill Registry（远程满溢度登记服务）的 HTTP 客户端。
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"smartbin/internal/binclass"
	"smartbin/pkg/errorutil"
)

// ErrNotFound 登记服务中没有该分类的数据
var ErrNotFound = errors.New("no level recorded for class")

// LevelEntry /api/levels 列表项
type LevelEntry struct {
	Type  string `json:"type"`
	Level int    `json:"level"`
}

// LevelReport /update 请求体
type LevelReport struct {
	Class    string `json:"class"`
	Level    int    `json:"level"`
	DeviceID string `json:"device_id,omitempty"`
}

// UploadMeta /upload 表单字段
type UploadMeta struct {
	Class    binclass.BinClass
	Angle    int
	DeviceID string
}

// Client 登记服务客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建客户端
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Levels 获取全部分类的最新满溢度
func (c *Client) Levels(ctx context.Context) ([]LevelEntry, error) {
	var entries []LevelEntry
	if err := c.getJSON(ctx, "/api/levels", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Level 获取单个分类的最新满溢度
func (c *Client) Level(ctx context.Context, class binclass.BinClass) (int, error) {
	entries, err := c.Levels(ctx)
	if err != nil {
		return binclass.Sentinel, err
	}
	for _, e := range entries {
		if e.Type == class.String() {
			return e.Level, nil
		}
	}
	return binclass.Sentinel, fmt.Errorf("%w: %s", ErrNotFound, class)
}

// Snapshot 获取 /data 实时状态（UI 用的扁平结构）
func (c *Client) Snapshot(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	if err := c.getJSON(ctx, "/data", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Report 上报单个分类的测量结果
func (c *Client) Report(ctx context.Context, report LevelReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/update", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

// Begin 通知 UI 开始处理
func (c *Client) Begin(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/begin", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Upload 上传标注后的图片以及分类、角度
func (c *Client) Upload(ctx context.Context, imagePath string, meta UploadMeta) error {
	f, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	fields := map[string]string{
		"class":     meta.Class.String(),
		"angle":     strconv.Itoa(meta.Angle),
		"device_id": meta.DeviceID,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errorutil.Registry(req.Method+" "+req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errorutil.Registry(req.Method+" "+req.URL.Path,
			fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errorutil.Registry("decode "+req.URL.Path, err)
	}
	return nil
}
