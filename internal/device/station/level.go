package station

import "smartbin/internal/binclass"

const (
	// EmptyDistanceCM 距离不小于该值视为空桶
	EmptyDistanceCM = 28.0
	// FullDistanceCM 距离不大于该值视为满桶
	FullDistanceCM = 5.0
)

// DistanceToPercent 超声波距离（cm）转换为满溢度百分比，分段线性
// 负数距离表示测量失败，返回哨兵值
func DistanceToPercent(distanceCM float64) int {
	switch {
	case distanceCM < 0:
		return binclass.Sentinel
	case distanceCM >= EmptyDistanceCM:
		return 0
	case distanceCM <= FullDistanceCM:
		return 100
	}

	pct := int(100 - (distanceCM-FullDistanceCM)/(EmptyDistanceCM-FullDistanceCM)*100)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
