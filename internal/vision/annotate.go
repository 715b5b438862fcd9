package vision

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	// BoxColor 标注框颜色
	BoxColor = color.RGBA{R: 255, G: 0, B: 255, A: 255}

	// CaptionBackground 标签底色
	CaptionBackground = color.RGBA{A: 255}

	// CaptionColor 标签文字颜色
	CaptionColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

	// NoObjectColor 未检测到目标时的提示文字颜色
	NoObjectColor = color.RGBA{R: 255, A: 255}
)

const (
	boxThickness = 2
	noObjectText = "No Object Detected"
)

var captionFace = basicfont.Face7x13

// Annotate 在帧的副本上绘制检测框和 "<label> <conf>" 标签，原帧不变；
// 未检测到目标时在左上角标注 No Object Detected
func Annotate(frame image.Image, res ClassificationResult) *image.RGBA {
	bounds := frame.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, frame, bounds.Min, draw.Src)
	if !res.Detected {
		drawText(out, noObjectText, bounds.Min.Add(image.Pt(10, 30)), NoObjectColor)
		return out
	}

	box := res.Box.Rect().Canon()
	r := box.Intersect(bounds)
	if r.Empty() {
		return out
	}
	src := image.NewUniform(BoxColor)
	for i := 0; i < boxThickness; i++ {
		edges := []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y+i, r.Max.X, r.Min.Y+i+1),
			image.Rect(r.Min.X, r.Max.Y-i-1, r.Max.X, r.Max.Y-i),
			image.Rect(r.Min.X+i, r.Min.Y, r.Min.X+i+1, r.Max.Y),
			image.Rect(r.Max.X-i-1, r.Min.Y, r.Max.X-i, r.Max.Y),
		}
		for _, e := range edges {
			draw.Draw(out, e.Intersect(bounds), src, image.Point{}, draw.Src)
		}
	}
	drawCaption(out, Caption(res), box)
	return out
}

// Caption 标签文本，如 "plastic 0.92"
func Caption(res ClassificationResult) string {
	return fmt.Sprintf("%s %.2f", res.Label, res.Confidence)
}

// drawCaption 标签放在框上方，空间不足时放到框内
func drawCaption(dst *image.RGBA, label string, box image.Rectangle) {
	tw := font.MeasureString(captionFace, label).Ceil()
	th := captionFace.Metrics().Ascent.Ceil()
	textY := box.Min.Y - 10
	if textY <= th+4 {
		textY = box.Min.Y + th + 10
	}
	bg := image.Rect(box.Min.X, textY-th-4, box.Min.X+tw, textY).Intersect(dst.Bounds())
	draw.Draw(dst, bg, image.NewUniform(CaptionBackground), image.Point{}, draw.Src)
	drawText(dst, label, image.Pt(box.Min.X, textY-2), CaptionColor)
}

// drawText dot 为基线起点
func drawText(dst *image.RGBA, text string, dot image.Point, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: captionFace,
		Dot:  fixed.P(dot.X, dot.Y),
	}
	d.DrawString(text)
}
