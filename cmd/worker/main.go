package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/graphwarehouse/engine/pkg/config"
	"github.com/graphwarehouse/engine/pkg/logger"

	"github.com/graphwarehouse/engine/internal/app"
	"github.com/graphwarehouse/engine/internal/queue/tasks"
	"github.com/graphwarehouse/engine/internal/services"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Initialize DB, cache and engine for task handlers
	a, err := app.Open(context.Background(), cfg)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer a.Close()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Queues: map[string]int{
			services.QueueOntology: 6,
			"default":              1,
		},
		Logger: log.Sugar(),
	})

	mux := asynq.NewServeMux()
	evolve := tasks.NewEvolveTaskHandler(a.Engine, a.Repos.Containers)
	sweep := tasks.NewSweepTaskHandler(a.Repos.Versions, a.Repos.Containers, a.Engine, cfg.GeneratingStaleAfter)
	mux.HandleFunc(services.TypeEvolve, evolve.HandleEvolve)
	mux.HandleFunc(services.TypeSweepGenerating, sweep.HandleSweep)

	// Versions left generating by a crashed run are rolled back periodically
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Logger: log.Sugar()})
	if _, err := scheduler.Register("@every "+cfg.GeneratingSweepInterval.String(), tasks.NewSweepTask(),
		asynq.Queue("default"), asynq.MaxRetry(0), asynq.Unique(cfg.GeneratingSweepInterval)); err != nil {
		log.Fatal("register generating sweep failed", zap.Error(err))
	}

	errCh := make(chan error, 2)
	go func() {
		logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()
	go func() {
		logger.L().Info("generating sweep scheduled", zap.Duration("interval", cfg.GeneratingSweepInterval))
		if err := scheduler.Run(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.L().Error("worker stopped with error", zap.Error(err))
	}

	// Allow in-flight tasks to finish gracefully
	scheduler.Shutdown()
	srv.Shutdown()
}
