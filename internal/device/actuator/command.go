package actuator

import (
	"strings"

	"smartbin/internal/binclass"
)

// Kind 执行器命令类型
type Kind int

const (
	KindRotate Kind = iota
	KindBlock
	KindUnblock
	KindHome
	KindCheck
	KindRaw
)

// Command 发往执行器的符号命令，无持久化表示
type Command struct {
	Kind  Kind
	Class binclass.BinClass
	Text  string
}

func Rotate(c binclass.BinClass) Command { return Command{Kind: KindRotate, Class: c} }
func Check(c binclass.BinClass) Command  { return Command{Kind: KindCheck, Class: c} }
func BlockEntrance() Command             { return Command{Kind: KindBlock} }
func UnblockEntrance() Command           { return Command{Kind: KindUnblock} }
func ReturnHome() Command                { return Command{Kind: KindHome} }

// Raw 诊断接口使用的任意文本命令
func Raw(text string) Command {
	return Command{Kind: KindRaw, Text: strings.TrimSpace(text)}
}

// Wire 串口上的文本编码
func (c Command) Wire() string {
	switch c.Kind {
	case KindRotate:
		return c.Class.String()
	case KindBlock:
		return "block_entrance"
	case KindUnblock:
		return "unblock_entrance"
	case KindHome:
		return "empty_check_home"
	case KindCheck:
		return "check:" + c.Class.String()
	default:
		return c.Text
	}
}

func (c Command) String() string {
	return c.Wire()
}
