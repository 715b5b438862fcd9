package entity

import (
	"time"

	"gorm.io/datatypes"
)

// LevelLog 满溢度测量记录（只追加）
type LevelLog struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DeviceID   string    `gorm:"column:device_id;type:varchar(64);not null" json:"device_id"`
	Class      string    `gorm:"column:class;type:varchar(32);not null;index:idx_class_measured" json:"class"`
	Level      int       `gorm:"column:level;not null" json:"level"`
	MeasuredAt time.Time `gorm:"column:measured_at;not null;index:idx_class_measured" json:"measured_at"`
}

// TableName 指定表名
func (LevelLog) TableName() string {
	return "levels"
}

// ImageRecord 上传的分类结果图片
type ImageRecord struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OriginalName string         `gorm:"column:original_name;type:varchar(255);not null" json:"original_name"`
	StoredName   string         `gorm:"column:stored_name;type:varchar(255);not null;uniqueIndex:uk_stored_name" json:"filename"`
	Location     string         `gorm:"column:path;type:varchar(512);not null" json:"path"`
	Class        string         `gorm:"column:class;type:varchar(32);not null;index:idx_class" json:"result"`
	Angle        int            `gorm:"column:angle;not null" json:"angle"`
	DeviceID     string         `gorm:"column:device_id;type:varchar(64);not null" json:"device_id"`
	Extra        datatypes.JSON `gorm:"column:extra;type:json" json:"extra,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null;index:idx_images_created_at" json:"time"`
}

// TableName 指定表名
func (ImageRecord) TableName() string {
	return "images"
}

// AlertRecord 满桶告警记录
type AlertRecord struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	JobID     string    `gorm:"column:job_id;type:varchar(64);not null;uniqueIndex:uk_job_id" json:"job_id"`
	Class     string    `gorm:"column:class;type:varchar(32);not null" json:"class"`
	Level     int       `gorm:"column:level;not null" json:"level"`
	DeviceID  string    `gorm:"column:device_id;type:varchar(64);not null" json:"device_id"`
	Message   string    `gorm:"column:message;type:varchar(255);not null" json:"message"`
	RaisedAt  time.Time `gorm:"column:raised_at;not null" json:"raised_at"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_alerts_created_at" json:"created_at"`
}

// TableName 指定表名
func (AlertRecord) TableName() string {
	return "alerts"
}

// ClassCount 按分类统计
type ClassCount struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}
