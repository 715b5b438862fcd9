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

	"smartbin/internal/fillregistry"
	"smartbin/internal/server/handlers/levels"
	"smartbin/internal/server/routers"
	"smartbin/pkg/config"
	"smartbin/pkg/infra/mysql"
	"smartbin/pkg/infra/objectstore"
	"smartbin/pkg/infra/redis"
	"smartbin/pkg/lmstfy"
	"smartbin/pkg/logger"
)

var configPath = flag.String("config", "./config/registry.yaml", "配置文件路径")

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadRegistry(*configPath)
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Redis：最新值 + 实时推送
	redisClient, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	// 3. 历史记录：未配置 mysql 时保存在内存
	var history fillregistry.History = fillregistry.NewMemoryHistory()
	if cfg.MySQL.DSN != "" {
		db, err := mysql.Open(cfg.MySQL.DSN)
		if err != nil {
			log.Fatalf("Failed to connect mysql: %v", err)
		}
		dao := mysql.NewHistoryDAO(db)
		if err := dao.AutoMigrate(ctx); err != nil {
			log.Fatalf("Failed to migrate mysql: %v", err)
		}
		defer dao.Close()
		history = dao
	} else {
		zapLogger.Warnf(ctx, "[Main] mysql.dsn is empty, history kept in memory")
	}

	// 4. 图片存储
	var (
		images    fillregistry.ImageStorage
		imagesDir string
	)
	switch cfg.Storage.Backend {
	case "minio":
		m := cfg.Storage.Minio
		store, err := objectstore.NewMinioStore(ctx, objectstore.Config{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			UseSSL:    m.UseSSL,
		})
		if err != nil {
			log.Fatalf("Failed to connect object storage: %v", err)
		}
		images = store
	default:
		local, err := fillregistry.NewLocalStorage(cfg.Storage.LocalDir)
		if err != nil {
			log.Fatalf("Failed to create upload dir: %v", err)
		}
		images, imagesDir = local, local.Dir()
	}

	// 5. 满桶告警队列（可选）
	var alerts fillregistry.AlertQueue
	if cfg.Lmstfy.Host != "" {
		client := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
		alerts = fillregistry.NewLmstfyAlertQueue(client, cfg.Lmstfy.Queue, cfg.Alert.JobTTL)
	}

	svc := fillregistry.NewService(redisClient, history, images, redisClient, alerts,
		fillregistry.Options{Threshold: cfg.Alert.Threshold}, zapLogger)

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: routers.SetupRegistryRoutes(levels.NewLevelsHandler(svc, redisClient, zapLogger), imagesDir, zapLogger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Infof(gctx, "[Main] Registry listening on %s", server.Addr)
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
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Errorf(context.Background(), "[Main] Registry stopped with error: %v", err)
		return
	}
	zapLogger.Infof(context.Background(), "[Main] Registry stopped")
}
