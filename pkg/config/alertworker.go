package config

import (
	"fmt"
	"time"
)

// AlertWorkerConfig 告警 Worker 配置
type AlertWorkerConfig struct {
	App          AppConfig      `mapstructure:"app"`
	MySQL        MySQLConfig    `mapstructure:"mysql"`
	Redis        RedisConfig    `mapstructure:"redis"`
	Lmstfy       LmstfyConfig   `mapstructure:"lmstfy"`
	AdminChannel string         `mapstructure:"admin_channel"`
	Workers      []WorkerConfig `mapstructure:"workers"`
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name       string           `mapstructure:"name"`
	QueueName  string           `mapstructure:"queue_name"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取间隔
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

// DefaultAlertWorker 默认值
func DefaultAlertWorker() AlertWorkerConfig {
	return AlertWorkerConfig{
		App:          defaultApp("alertworker"),
		Redis:        RedisConfig{Addr: "127.0.0.1:6379"},
		Lmstfy:       LmstfyConfig{Port: 7777, Namespace: "smartbin", Queue: "bin_full_alert"},
		AdminChannel: "alert_log",
	}
}

// LoadAlertWorker 加载配置
func LoadAlertWorker(configPath string) (*AlertWorkerConfig, error) {
	cfg := DefaultAlertWorker()
	if err := load(configPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 验证配置
func (c *AlertWorkerConfig) Validate() error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn is required")
	}
	if err := c.Redis.validate(); err != nil {
		return err
	}
	if err := c.Lmstfy.validate(); err != nil {
		return err
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	for _, w := range c.Workers {
		if w.QueueName == "" {
			return fmt.Errorf("worker %s: queue_name is required", w.Name)
		}
		if w.Subscriber.Threads < 1 || w.Processor.Threads < 1 {
			return fmt.Errorf("worker %s: threads must be >= 1", w.Name)
		}
		if w.Processor.Timeout <= 0 {
			return fmt.Errorf("worker %s: processor.timeout must be positive", w.Name)
		}
	}
	return nil
}
