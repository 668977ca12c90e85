package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/kazilink/backend/api/handler"
	"github.com/kazilink/backend/internal/config"
	"github.com/kazilink/backend/internal/infrastructure/buffer"
	"github.com/kazilink/backend/internal/infrastructure/monitor"
	pgInfra "github.com/kazilink/backend/internal/infrastructure/postgres"
	redisInfra "github.com/kazilink/backend/internal/infrastructure/redis"
	"github.com/kazilink/backend/internal/middleware"
	"github.com/kazilink/backend/internal/router"
	"github.com/kazilink/backend/internal/services"
	"github.com/kazilink/backend/internal/services/lifecycle"
	"github.com/kazilink/backend/pkg/httpcontext"
	"github.com/kazilink/backend/pkg/logger"
	"github.com/kazilink/backend/repository/postgres"
	"github.com/kazilink/backend/usecase/admission"
	"github.com/kazilink/backend/usecase/award"
	taskUC "github.com/kazilink/backend/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	bufferStore, err := buffer.Open(cfg.Notifier.BufferPath, "notifications")
	if err != nil {
		zapLogger.Fatal("failed to open notification buffer", zap.Error(err))
	}
	manager.Register("buffer", func(ctx context.Context) error {
		return bufferStore.Close()
	})

	mon := monitor.New(pool, redisClient, bufferStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	notifier := services.NewNotifier(
		redisClient,
		bufferStore,
		mon,
		zapLogger,
		services.NotifierConfig{
			ChannelPrefix: cfg.Notifier.ChannelPrefix,
			Interval:      cfg.Notifier.SyncInterval,
			BatchSize:     cfg.Notifier.BatchSize,
			MaxRetries:    cfg.Notifier.MaxRetry,
		},
	)
	notifier.Start()
	manager.Register("notifier", func(ctx context.Context) error {
		notifier.Stop(ctx)
		return nil
	})

	taskRepo := postgres.NewTaskRepository(pool)
	appRepo := postgres.NewApplicationRepository(pool)

	admissionCtrl := admission.New(taskRepo, appRepo, notifier, zapLogger, admission.Config{
		MinPrice:      cfg.Market.MinPrice,
		MinMessageLen: cfg.Market.MinMessageLen,
	})
	awardCtrl := award.New(taskRepo, appRepo, notifier, zapLogger)
	taskUseCase := taskUC.New(taskRepo, appRepo, notifier, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Task:        apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Application: apiHandler.NewApplicationHandler(admissionCtrl, awardCtrl, taskUseCase, ctxAdapter, zapLogger),
		Health:      apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
