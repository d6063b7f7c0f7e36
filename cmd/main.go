package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dmchat/backend/internal/api/handler"
	"dmchat/backend/internal/auth"
	"dmchat/backend/internal/chat"
	"dmchat/backend/internal/chathub"
	"dmchat/backend/internal/config"
	"dmchat/backend/internal/logging"
	"dmchat/backend/internal/metrics"
	"dmchat/backend/internal/queue"
	"dmchat/backend/internal/ratelimit"
	"dmchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	db, err := storage.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect PostgreSQL", zap.Error(err))
	}

	// 2. Redis
	rdb, err := storage.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("failed to connect Redis", zap.Error(err))
	}

	// 3. Міграції
	if err := storage.Migrate(db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	log.Info("database and redis connections established, migrations complete")
	return db, rdb
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting dmchat backend", zap.String("addr", cfg.HTTPAddr))

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies(ctx, cfg, log)
	store := storage.NewStorageService(db, rdb, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 2. Сервіс повідомлень та хаб
	svc := chat.NewService(store, log)
	svc.SetMetrics(m)

	registry := chathub.NewRegistry()
	dispatcher := chathub.NewDispatcher(registry, log)
	dispatcher.SetMetrics(m)
	svc.SetNotifier(dispatcher)

	// 3. Черга підтверджень доставки
	var acker *chat.DeliveryAcker
	var workers *queue.AsynqServer
	if cfg.DeliveryQueue {
		client, err := queue.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			log.Fatal("failed to create queue client", zap.Error(err))
		}
		defer client.Close()

		workers, err = queue.NewAsynqServer(cfg.RedisURL, cfg.DeliveryQueueConcurrency,
			map[string]int{config.DeliveryTaskQueue: 1}, log)
		if err != nil {
			log.Fatal("failed to create queue server", zap.Error(err))
		}
		workers.Register(chat.TaskMarkDelivered, svc.HandleMarkDeliveredTask)
		acker = chat.NewDeliveryAcker(svc, client, log)
	} else {
		acker = chat.NewDeliveryAcker(svc, nil, log)
	}
	dispatcher.SetAcker(acker.Ack)

	sendLimiter := ratelimit.NewPool(cfg.SendRatePerSec, cfg.SendBurst)
	defer sendLimiter.Shutdown()

	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, store)
	lifecycle := chathub.NewLifecycle(verifier, store, registry,
		chathub.LifecycleOptions{CloseSuperseded: cfg.CloseSuperseded}, log)
	lifecycle.SetMetrics(m)

	// 4. Налаштування Gin та роутингу
	h := handler.NewHandler(handler.Deps{
		Chat:        svc,
		Verifier:    verifier,
		Users:       store,
		Revoker:     store,
		Lifecycle:   lifecycle,
		Inbound:     chathub.NewFrameRouter(svc, sendLimiter, log),
		SendLimiter: sendLimiter,
		Metrics:     m,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        h.Router(reg),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	if workers != nil {
		go func() {
			if err := workers.Run(ctx); err != nil {
				log.Error("delivery workers stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", zap.Error(err))
	}
	// WebSocket-з'єднання hijacked, тому закриваються окремо, до закриття бази.
	if err := lifecycle.Shutdown(shutdownCtx, 1001, "server shutting down"); err != nil {
		log.Warn("websocket sessions did not close in time", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = rdb.Close()
}
