package config

import (
	"fmt"
	"time"

	"smartbin/internal/device/actuator"
	"smartbin/internal/orchestrator"
)

// OrchestratorConfig 视觉主机配置
type OrchestratorConfig struct {
	App        AppConfig           `mapstructure:"app"`
	Server     ServerConfig        `mapstructure:"server"`
	Actuator   actuator.Config     `mapstructure:"actuator"`
	Station    StationClientConfig `mapstructure:"station"`
	Registry   HTTPClientConfig    `mapstructure:"registry"`
	Classifier HTTPClientConfig    `mapstructure:"classifier"`
	Camera     CameraConfig        `mapstructure:"camera"`
	FrameDir   string              `mapstructure:"frame_dir"`
	Flow       orchestrator.Config `mapstructure:"flow"`
}

// StationClientConfig 传感站地址
type StationClientConfig struct {
	Addr        string        `mapstructure:"addr"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// CameraConfig 快照摄像头
type CameraConfig struct {
	URL     string        `mapstructure:"url"`
	Warmup  int           `mapstructure:"warmup"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultOrchestrator 默认值
func DefaultOrchestrator() OrchestratorConfig {
	return OrchestratorConfig{
		App:    defaultApp("orchestrator"),
		Server: defaultServer("5000"),
		Actuator: actuator.Config{
			Device:      "/dev/ttyACM0",
			Baud:        9600,
			ReadTimeout: 100 * time.Millisecond,
			AckDelay:    100 * time.Millisecond,
			AckWait:     200 * time.Millisecond,
			BootDelay:   2 * time.Second,
		},
		Station:    StationClientConfig{Addr: "127.0.0.1:9999", DialTimeout: 3 * time.Second},
		Registry:   HTTPClientConfig{URL: "http://127.0.0.1:8080", Timeout: 5 * time.Second},
		Classifier: HTTPClientConfig{URL: "http://127.0.0.1:8500", Timeout: 10 * time.Second},
		Camera:     CameraConfig{URL: "http://127.0.0.1:8081/snapshot.jpg", Warmup: 5, Timeout: 5 * time.Second},
		FrameDir:   "captures",
		Flow:       orchestrator.DefaultConfig(),
	}
}

// LoadOrchestrator 加载配置
func LoadOrchestrator(configPath string) (*OrchestratorConfig, error) {
	cfg := DefaultOrchestrator()
	if err := load(configPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 验证配置
func (c *OrchestratorConfig) Validate() error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Server.validate(); err != nil {
		return err
	}
	if c.Actuator.Device == "" {
		return fmt.Errorf("actuator.device is required")
	}
	if c.Actuator.Baud <= 0 {
		return fmt.Errorf("actuator.baud must be positive")
	}
	if c.Station.Addr == "" {
		return fmt.Errorf("station.addr is required")
	}
	if c.Registry.URL == "" {
		return fmt.Errorf("registry.url is required")
	}
	if c.Classifier.URL == "" {
		return fmt.Errorf("classifier.url is required")
	}
	if c.Camera.URL == "" {
		return fmt.Errorf("camera.url is required")
	}
	if c.FrameDir == "" {
		return fmt.Errorf("frame_dir is required")
	}
	if err := c.Flow.Validate(); err != nil {
		return fmt.Errorf("flow: %w", err)
	}
	return nil
}
