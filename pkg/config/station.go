package config

import (
	"fmt"
	"time"

	"smartbin/internal/device/station"
)

// StationConfig 传感站配置
type StationConfig struct {
	App      AppConfig           `mapstructure:"app"`
	Station  station.Config      `mapstructure:"station"`
	Board    station.BoardConfig `mapstructure:"board"`
	Registry HTTPClientConfig    `mapstructure:"registry"`
}

// DefaultStation 默认值
func DefaultStation() StationConfig {
	return StationConfig{
		App: defaultApp("levelstation"),
		Station: station.Config{
			Listen:        ":9999",
			DeviceID:      "rpi",
			CheckSettle:   300 * time.Millisecond,
			InsertSettle:  500 * time.Millisecond,
			ReadTimeout:   5 * time.Second,
			ReportRetries: 3,
			ReportBackoff: 500 * time.Millisecond,
		},
		Board: station.BoardConfig{
			Device:         "/dev/ttyUSB0",
			Baud:           9600,
			ReadTimeout:    100 * time.Millisecond,
			MeasureTimeout: time.Second,
			InsertTimeout:  5 * time.Second,
		},
		Registry: HTTPClientConfig{URL: "http://127.0.0.1:8080", Timeout: 5 * time.Second},
	}
}

// LoadStation 加载配置
func LoadStation(configPath string) (*StationConfig, error) {
	cfg := DefaultStation()
	if err := load(configPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 验证配置
func (c *StationConfig) Validate() error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if c.Station.Listen == "" {
		return fmt.Errorf("station.listen is required")
	}
	if c.Station.ReportRetries < 0 {
		return fmt.Errorf("station.report_retries must not be negative")
	}
	if c.Board.Device == "" {
		return fmt.Errorf("board.device is required")
	}
	if c.Board.MeasureTimeout <= 0 || c.Board.InsertTimeout <= 0 {
		return fmt.Errorf("board timeouts must be positive")
	}
	if c.Registry.URL == "" {
		return fmt.Errorf("registry.url is required")
	}
	return nil
}
