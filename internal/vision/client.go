package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"time"

	// 注册 png 解码，部分摄像头快照接口返回 png
	_ "image/png"

	"smartbin/pkg/errorutil"
)

// Camera HTTP 快照摄像头
type Camera struct {
	url        string
	warmup     int
	httpClient *http.Client
}

// NewCamera 创建摄像头客户端，warmup 为每次拍摄前丢弃的帧数（自动曝光稳定）
func NewCamera(url string, warmup int, timeout time.Duration) *Camera {
	if warmup < 0 {
		warmup = 0
	}
	return &Camera{url: url, warmup: warmup, httpClient: &http.Client{Timeout: timeout}}
}

// Capture 拍摄一帧
func (c *Camera) Capture(ctx context.Context) (image.Image, error) {
	var frame image.Image
	for i := 0; i <= c.warmup; i++ {
		img, err := c.snapshot(ctx)
		if err != nil {
			return nil, err
		}
		frame = img
	}
	return frame, nil
}

func (c *Camera) snapshot(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errorutil.Device("camera snapshot", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errorutil.Device("camera snapshot", fmt.Errorf("status=%d", resp.StatusCode))
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, errorutil.Device("decode camera frame", err)
	}
	return img, nil
}

// detectResponse 推理服务响应
type detectResponse struct {
	Detections []Detection `json:"detections"`
}

// Classifier 目标检测推理服务客户端
type Classifier struct {
	baseURL    string
	httpClient *http.Client
}

// NewClassifier 创建推理客户端
func NewClassifier(baseURL string, timeout time.Duration) *Classifier {
	return &Classifier{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ping 检查推理服务可用
func (c *Classifier) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errorutil.Classifier("classifier unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return errorutil.Classifier("classifier unhealthy", fmt.Errorf("status=%d", resp.StatusCode))
	}
	return nil
}

// Detect 对一帧执行检测，返回模型给出的全部检测（顺序保持不变）
func (c *Classifier) Detect(ctx context.Context, frame image.Image) ([]Detection, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errorutil.Classifier("detect", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errorutil.Classifier("detect", fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errorutil.Classifier("decode detections", err)
	}
	return out.Detections, nil
}
