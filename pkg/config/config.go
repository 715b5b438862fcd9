package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MySQLConfig MySQL 配置
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
	Queue     string `mapstructure:"queue"`
}

// HTTPClientConfig 下游 HTTP 服务
type HTTPClientConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func defaultApp(name string) AppConfig {
	return AppConfig{Name: name, Env: "dev", LogLevel: "info"}
}

func defaultServer(port string) ServerConfig {
	return ServerConfig{Port: port, ShutdownTimeout: 10 * time.Second}
}

// load 读取 yaml 到已填充默认值的结构体，文件中未出现的字段保持默认
// SMARTBIN_<SECTION>_<KEY> 环境变量可覆盖文件中已有的键
func load(configPath string, out interface{}) error {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("smartbin")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config failed: %w", err)
	}
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("unmarshal config failed: %w", err)
	}
	return nil
}

func (c AppConfig) validate() error {
	if c.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	return nil
}

func (c ServerConfig) validate() error {
	if c.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	return nil
}

func (c RedisConfig) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	return nil
}

func (c LmstfyConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("lmstfy.host is required")
	}
	if c.Token == "" {
		return fmt.Errorf("lmstfy.token is required")
	}
	if c.Queue == "" {
		return fmt.Errorf("lmstfy.queue is required")
	}
	return nil
}
