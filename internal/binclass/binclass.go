// Package binclass 定义垃圾分类（四个收集桶）及其固定的转盘布局。
package binclass

import (
	"fmt"
	"strings"
)

// BinClass 垃圾分类
type BinClass string

const (
	GeneralTrash BinClass = "general trash"
	Plastic      BinClass = "plastic"
	Metal        BinClass = "metal"
	Glass        BinClass = "glass"
)

// Sentinel 测量失败 / 数据不可用
const Sentinel = -1

// All 转盘上的固定循环顺序
var All = []BinClass{GeneralTrash, Plastic, Metal, Glass}

// angles 每个分类占一个象限
var angles = map[BinClass]int{
	GeneralTrash: 0,
	Plastic:      90,
	Metal:        180,
	Glass:        270,
}

// Normalize 将分类器输出的标签归一化，集合外的一律归为 general trash
func Normalize(label string) BinClass {
	c := BinClass(strings.ToLower(strings.TrimSpace(label)))
	if c.Valid() {
		return c
	}
	return GeneralTrash
}

// Parse 严格解析，未知分类返回错误
func Parse(s string) (BinClass, error) {
	c := BinClass(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown bin class: %q", s)
	}
	return c, nil
}

// Valid 是否为已知分类
func (c BinClass) Valid() bool {
	_, ok := angles[c]
	return ok
}

// NeedsRotation general trash 位于原点，不需要转动
func (c BinClass) NeedsRotation() bool {
	return c != GeneralTrash
}

func (c BinClass) String() string {
	return string(c)
}

// RotationAngle 分类对应的转盘角度
func RotationAngle(c BinClass) (int, error) {
	angle, ok := angles[c]
	if !ok {
		return 0, fmt.Errorf("no rotation angle for bin class %q", string(c))
	}
	return angle, nil
}

// ValidLevel 0-100 的有效读数（不含哨兵）
func ValidLevel(level int) bool {
	return level >= 0 && level <= 100
}
