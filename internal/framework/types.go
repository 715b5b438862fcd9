package framework

// Message 消息结构（框架内部流转）
type Message struct {
	ID    string // 消息 ID
	Queue string // 队列名称
	Data  []byte // 原始 Job 数据
}

// JobRespStatus 消息处理结果状态
type JobRespStatus int

const (
	// JobRespStatusSuccess 处理成功，ACK 消息
	JobRespStatusSuccess JobRespStatus = iota
	// JobRespStatusRelease 需要重试，不 ACK，TTR 到期后由 lmstfy 重新投递
	JobRespStatusRelease
	// JobRespStatusBury 不可重试，ACK 后丢弃
	JobRespStatusBury
)

func (s JobRespStatus) String() string {
	switch s {
	case JobRespStatusSuccess:
		return "success"
	case JobRespStatusRelease:
		return "release"
	case JobRespStatusBury:
		return "bury"
	default:
		return "unknown"
	}
}

// JobResp 消息处理结果
type JobResp struct {
	Action JobRespStatus // 处理动作
	Err    error         // 失败原因（可选，仅用于日志）
}

// Success 处理成功
func Success() *JobResp {
	return &JobResp{Action: JobRespStatusSuccess}
}

// Release 稍后重试
func Release(err error) *JobResp {
	return &JobResp{Action: JobRespStatusRelease, Err: err}
}

// Bury 丢弃
func Bury(err error) *JobResp {
	return &JobResp{Action: JobRespStatusBury, Err: err}
}
