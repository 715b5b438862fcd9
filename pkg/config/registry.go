package config

import (
	"fmt"
	"time"
)

// RegistryConfig 满溢度登记服务配置
type RegistryConfig struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	Lmstfy  LmstfyConfig  `mapstructure:"lmstfy"`
	Storage StorageConfig `mapstructure:"storage"`
	Alert   AlertConfig   `mapstructure:"alert"`
}

// StorageConfig 上传图片存储
type StorageConfig struct {
	Backend  string      `mapstructure:"backend"` // local / minio
	LocalDir string      `mapstructure:"local_dir"`
	Minio    MinioConfig `mapstructure:"minio"`
}

// MinioConfig 对象存储
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// AlertConfig 满桶告警
type AlertConfig struct {
	Threshold int           `mapstructure:"threshold"`
	JobTTL    time.Duration `mapstructure:"job_ttl"`
}

// DefaultRegistry 默认值
func DefaultRegistry() RegistryConfig {
	return RegistryConfig{
		App:    defaultApp("registry"),
		Server: defaultServer("8080"),
		Redis:  RedisConfig{Addr: "127.0.0.1:6379"},
		Lmstfy: LmstfyConfig{Port: 7777, Namespace: "smartbin", Queue: "bin_full_alert"},
		Storage: StorageConfig{
			Backend:  "local",
			LocalDir: "uploads",
		},
		Alert: AlertConfig{Threshold: 80, JobTTL: 24 * time.Hour},
	}
}

// LoadRegistry 加载配置
func LoadRegistry(configPath string) (*RegistryConfig, error) {
	cfg := DefaultRegistry()
	if err := load(configPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 验证配置；mysql.dsn / lmstfy.host 为空时对应功能关闭
func (c *RegistryConfig) Validate() error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.Redis.validate(); err != nil {
		return err
	}
	if c.Lmstfy.Host != "" {
		if err := c.Lmstfy.validate(); err != nil {
			return err
		}
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir is required")
		}
	case "minio":
		m := c.Storage.Minio
		if m.Endpoint == "" || m.Bucket == "" {
			return fmt.Errorf("storage.minio.endpoint and bucket are required")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Alert.Threshold < 1 || c.Alert.Threshold > 100 {
		return fmt.Errorf("alert.threshold must be in [1,100]")
	}
	return nil
}
