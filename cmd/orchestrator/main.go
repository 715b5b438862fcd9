package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"smartbin/internal/device/actuator"
	"smartbin/internal/device/station"
	"smartbin/internal/orchestrator"
	"smartbin/internal/registry"
	"smartbin/internal/server/handlers/sorting"
	"smartbin/internal/server/routers"
	"smartbin/internal/vision"
	"smartbin/pkg/config"
	"smartbin/pkg/logger"
)

var configPath = flag.String("config", "./config/orchestrator.yaml", "配置文件路径")

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadOrchestrator(*configPath)
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 分类模型不可用时不启动
	classifier := vision.NewClassifier(cfg.Classifier.URL, cfg.Classifier.Timeout)
	if err := classifier.Ping(ctx); err != nil {
		log.Fatalf("Classifier unavailable: %v", err)
	}

	// 4. 执行器串口，打开失败不启动
	link, err := actuator.Open(ctx, cfg.Actuator, zapLogger)
	if err != nil {
		log.Fatalf("Failed to open actuator link: %v", err)
	}
	defer link.Close()

	frames, err := vision.NewFrameStore(cfg.FrameDir)
	if err != nil {
		log.Fatalf("Failed to create frame store: %v", err)
	}
	reg := registry.NewClient(cfg.Registry.URL, cfg.Registry.Timeout)

	orch, err := orchestrator.New(cfg.Flow, orchestrator.Deps{
		Classifier: classifier,
		Camera:     vision.NewCamera(cfg.Camera.URL, cfg.Camera.Warmup, cfg.Camera.Timeout),
		Actuator:   link,
		Trigger:    station.NewClient(cfg.Station.Addr, cfg.Station.DialTimeout),
		Registry:   reg,
		Uploader:   reg,
		Notifier:   reg,
		Frames:     frames,
	}, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}

	// 5. HTTP Server
	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: routers.SetupOrchestratorRoutes(sorting.NewSortingHandler(orch, zapLogger), zapLogger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Infof(gctx, "[Main] Orchestrator listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Infof(context.Background(), "[Main] Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		orch.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		zapLogger.Errorf(context.Background(), "[Main] Orchestrator stopped with error: %v", err)
		return
	}
	zapLogger.Infof(context.Background(), "[Main] Orchestrator stopped")
}
