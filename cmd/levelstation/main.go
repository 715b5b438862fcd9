package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os/signal"
	"syscall"

	"smartbin/internal/device/station"
	"smartbin/internal/registry"
	"smartbin/pkg/config"
	"smartbin/pkg/logger"
)

var configPath = flag.String("config", "./config/levelstation.yaml", "配置文件路径")

func main() {
	flag.Parse()

	cfg, err := config.LoadStation(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	board, err := station.OpenBoard(cfg.Board)
	if err != nil {
		log.Fatalf("Failed to open sensor board: %v", err)
	}
	defer board.Close()

	ln, err := net.Listen("tcp", cfg.Station.Listen)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.Station.Listen, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := station.New(cfg.Station, board, board,
		registry.NewClient(cfg.Registry.URL, cfg.Registry.Timeout), zapLogger)

	if err := st.Serve(ctx, ln); err != nil {
		zapLogger.Errorf(context.Background(), "[Main] Level station stopped with error: %v", err)
		return
	}
	zapLogger.Infof(context.Background(), "[Main] Level station stopped")
}
