package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"smartbin/internal/alerting"
	"smartbin/internal/framework"
	"smartbin/internal/worker"
	"smartbin/pkg/config"
	"smartbin/pkg/infra/mysql"
	"smartbin/pkg/infra/redis"
	"smartbin/pkg/lmstfy"
	"smartbin/pkg/logger"
)

var configPath = flag.String("config", "./config/alertworker.yaml", "配置文件路径")

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadAlertWorker(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	// 2. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()

	// 3. 依赖
	db, err := mysql.Open(cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("Failed to connect mysql: %v", err)
	}
	dao := mysql.NewHistoryDAO(db)
	if err := dao.AutoMigrate(ctx); err != nil {
		log.Fatalf("Failed to migrate mysql: %v", err)
	}
	defer dao.Close()

	redisClient, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	source := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
	handler := alerting.NewHandler(dao, redisClient, cfg.AdminChannel, zapLogger)

	// 4. 所有 Worker 共用同一个告警处理函数
	mgr, err := worker.NewManager(cfg.Workers, source, func(config.WorkerConfig) (framework.Proc, error) {
		return handler.Process, nil
	}, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	startErr := make(chan error, 1)
	go func() {
		startErr <- mgr.Start()
	}()
	zapLogger.Infof(ctx, "[Main] Alert worker started")

	// 5. 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		zapLogger.Infof(ctx, "[Main] Received signal: %v, shutting down", sig)
		mgr.Shutdown()
		<-startErr
	case err := <-startErr:
		if err != nil {
			zapLogger.Errorf(ctx, "[Main] Manager start failed: %v", err)
		}
	}
	zapLogger.Infof(ctx, "[Main] Alert worker exited")
}
