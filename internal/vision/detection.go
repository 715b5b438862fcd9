// Package vision 摄像头、目标检测模型客户端、结果标注与图片落盘。
package vision

import (
	"image"

	"smartbin/internal/binclass"
)

// Box 检测框 [x1, y1, x2, y2]
type Box [4]int

// Rect 转为 image.Rectangle
func (b Box) Rect() image.Rectangle {
	return image.Rect(b[0], b[1], b[2], b[3])
}

// Detection 模型输出的单个检测
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// ClassificationResult 一次分类的结论，创建后不再修改
type ClassificationResult struct {
	Class      binclass.BinClass
	Confidence float64
	Label      string
	Box        Box
	Frame      image.Image
	Detected   bool
}

// Best 取置信度最高的检测，相同置信度取先出现的
func Best(dets []Detection) (Detection, bool) {
	if len(dets) == 0 {
		return Detection{}, false
	}
	best := dets[0]
	for _, d := range dets[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	return best, true
}

// Interpret 根据检测列表得出分类；无检测时归为 general trash
func Interpret(frame image.Image, dets []Detection) ClassificationResult {
	best, ok := Best(dets)
	if !ok {
		return ClassificationResult{Class: binclass.GeneralTrash, Frame: frame}
	}
	return ClassificationResult{
		Class:      binclass.Normalize(best.Label),
		Confidence: best.Confidence,
		Label:      best.Label,
		Box:        best.Box,
		Frame:      frame,
		Detected:   true,
	}
}
