package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tutorialcms/internal/config"
	"github.com/tutorialcms/internal/db"
	"github.com/tutorialcms/internal/handler"
	"github.com/tutorialcms/internal/lifecycle"
	"github.com/tutorialcms/internal/logger"
	"github.com/tutorialcms/internal/metrics"
	"github.com/tutorialcms/internal/router"
	"github.com/tutorialcms/internal/service"
)

func main() {
	// .env 缺失时直接使用进程环境变量
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.AppEnv, cfg.LogLevel)
	log := logger.With("server")

	// 初始化数据库
	gdb, err := db.Init(db.Options{
		Driver: cfg.DatabaseDriver,
		Path:   cfg.DatabasePath,
		DSN:    cfg.DatabaseDSN,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close(gdb)

	if err := db.EnsureUser(gdb, cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure super root user")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine := lifecycle.NewEngine(gdb, service.NewContentRepository(gdb), lifecycle.Config{
		VersionAllocAttempts: cfg.VersionAllocAttempts,
		ClaimLease:           cfg.ClaimLease,
		Observer:             metrics.NewCollector(registry),
	}, logger.With("lifecycle"))

	gin.SetMode(cfg.GinMode)
	r := router.SetupRouter(handler.NewAPI(gdb, engine, logger.With("handler")), router.Options{
		SessionSecret: cfg.SessionSecret,
		Gatherer:      registry,
		Log:           logger.With("http"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ExecutorInterval > 0 {
		go runExecutor(ctx, engine, cfg.ExecutorInterval)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to run server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// runExecutor 按固定间隔执行到期的计划任务，直到 ctx 结束。
func runExecutor(ctx context.Context, engine *lifecycle.Engine, interval time.Duration) {
	log := logger.With("executor")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			summary, err := engine.ExecuteDue(ctx, now)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("scheduled run aborted")
				}
				continue
			}
			if len(summary.Failures) > 0 {
				log.Warn().Int("failed", len(summary.Failures)).Int("executed", summary.Executed).Msg("scheduled run finished with failures")
			}
		}
	}
}
