package vision

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"
)

const (
	frameLayout   = "20060102_150405"
	jpegQuality   = 90
	resultSuffix  = "_result"
	frameFileMode = 0o755
)

// FrameStore 原图和标注图落盘目录
type FrameStore struct {
	dir string
}

// NewFrameStore 创建落盘目录
func NewFrameStore(dir string) (*FrameStore, error) {
	if err := os.MkdirAll(dir, frameFileMode); err != nil {
		return nil, fmt.Errorf("create frame dir %s: %w", dir, err)
	}
	return &FrameStore{dir: dir}, nil
}

// Save 写入 <ts>.jpg 和 <ts>_result.jpg，返回标注图路径
func (s *FrameStore) Save(ts time.Time, raw, annotated image.Image) (string, error) {
	name := ts.Format(frameLayout)
	if err := writeJPEG(filepath.Join(s.dir, name+".jpg"), raw); err != nil {
		return "", err
	}
	resultPath := filepath.Join(s.dir, name+resultSuffix+".jpg")
	if err := writeJPEG(resultPath, annotated); err != nil {
		return "", err
	}
	return resultPath, nil
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
