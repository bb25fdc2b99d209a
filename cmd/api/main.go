package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/graphwarehouse/engine/internal/api"
	"github.com/graphwarehouse/engine/internal/api/handlers"
	mw "github.com/graphwarehouse/engine/internal/api/middleware"
	"github.com/graphwarehouse/engine/internal/app"
	"github.com/graphwarehouse/engine/internal/services"
	"github.com/graphwarehouse/engine/pkg/config"
	"github.com/graphwarehouse/engine/pkg/logger"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting graph warehouse engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("dispatch", cfg.EvolutionDispatch),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer a.Close()
	log.Info("Database connected successfully")

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte("change-me-in-production-please")
	}

	// Evolution runs either in this process or on the worker
	var dispatcher services.Dispatcher
	var inline *services.InlineDispatcher
	switch cfg.EvolutionDispatch {
	case "inline":
		inline = services.NewInlineDispatcher(a.Engine)
		dispatcher = inline
	default:
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer client.Close()
		dispatcher = services.NewQueueDispatcher(client, cfg.GeneratingStaleAfter)
	}
	importSvc := services.NewImportService(a.Engine, a.Repos.Containers, a.Repos.Versions, dispatcher)

	health := map[string]handlers.Pinger{"database": a.Store}
	if cfg.CacheBackend == "redis" || cfg.EvolutionDispatch == "queue" {
		health["redis"] = pingFunc(a.PingRedis)
	}

	// Create router with dependencies
	router := api.NewRouter(api.Dependencies{
		HMACSecret:           jwtSecret,
		Limiter:              mw.NewLimiter(ctx, 10, 20),
		ImportLimiter:        mw.NewLimiter(ctx, cfg.ImportRateLimit, 1),
		Metrics:              promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry}),
		HealthHandler:        handlers.NewHealthHandler(health),
		ContainersHandler:    handlers.NewContainersHandler(a.Repos.Containers, a.Repos.Versions),
		MetatypesHandler:     handlers.NewMetatypesHandler(a.Repos.Metatypes),
		RelationshipsHandler: handlers.NewRelationshipsHandler(a.Repos.Relationships),
		RelationshipKeys:     handlers.NewRelationshipKeysHandler(a.Repos.Relationships, a.Repos.RelationshipKeys),
		PairsHandler:         handlers.NewPairsHandler(a.Repos.Pairs),
		ImportHandler:        handlers.NewImportHandler(importSvc),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}

	// In-process imports finish before the connections close; runs cut
	// short here are rolled back by the worker's generating sweep.
	if inline != nil {
		done := make(chan struct{})
		go func() {
			inline.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			log.Warn("ontology imports still running at shutdown")
		}
	}
}
