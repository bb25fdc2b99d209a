package main

import (
	"context"
	"fmt"
	"os"

	"github.com/graphwarehouse/engine/internal/storage"
	"github.com/graphwarehouse/engine/pkg/config"
	"github.com/graphwarehouse/engine/pkg/database"
	"github.com/graphwarehouse/engine/pkg/logger"
	"go.uber.org/zap"
)

// usage: migrate [up|status|down]
func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "up":
		err = storage.RunMigrations(ctx, db)
	case "status":
		err = storage.MigrationStatus(ctx, db)
	case "down":
		err = storage.RollbackMigration(ctx, db)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q, expected up, status or down\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("migration failed", zap.String("command", cmd), zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
