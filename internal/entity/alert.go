package entity

import "time"

// BinFullAlert 满桶告警，登记服务发布到 lmstfy，告警 Worker 消费
type BinFullAlert struct {
	ID       string    `json:"id"`
	Class    string    `json:"class"`
	Level    int       `json:"level"`
	DeviceID string    `json:"device_id"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// AdminAlert 推送给管理端的告警消息
type AdminAlert struct {
	Type      string `json:"type"`
	Level     int    `json:"level,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Event 实时推送事件，Payload 为 JSON 文本
type Event struct {
	Channel string `json:"channel"`
	Payload string `json:"payload"`
}
