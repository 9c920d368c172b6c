package main

import (
	"context"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/app"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/config"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/infrastructure/cache"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/infrastructure/db"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/graceful"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"

	"github.com/jpillora/overseer"
	"github.com/jpillora/overseer/fetcher"
)

func main() {
	debug := config.GetAppEnv() == "development"

	overseer.Run(overseer.Config{
		Program:       program,
		Address:       ":" + config.GetAppPort(),
		Fetcher:       &fetcher.File{Path: config.GetAppBinFile(), Interval: 5},
		Debug:         debug,
		RestartSignal: graceful.RestartSignal,
	})
}

func program(state overseer.State) {
	// Cancelled by OS signal or an overseer restart
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	graceful.SetupGracefulShutdown(cancel)

	cfg := config.Load()

	// Logging
	logger.SetLevel(cfg.App.LogLevel)
	logger.InitLogFile(cfg.App.LogFilePath, cfg.App.LogFile)
	defer logger.CloseLogFile()

	// DB Write
	dbWriteConn, err := db.ConnectDBWrite(cfg.DB)
	if err != nil {
		errorDetails := err.Error()
		logger.WriteLogToFile("failed", "db.ConnectDBWrite", map[string]any{
			"db_name": cfg.DB.DBWrite.Name,
			"db_host": cfg.DB.DBWrite.Host,
		}, &errorDetails)
		logger.Fatal("❌ Failed to connect database write: " + errorDetails)
	}
	logger.Infof("✅ Connected to database write: %s", cfg.DB.DBWrite.Name)

	if cfg.DB.AutoMigrate {
		if err := db.Migrate(dbWriteConn); err != nil {
			errorDetails := err.Error()
			logger.WriteLogToFile("failed", "db.Migrate", map[string]any{"db_name": cfg.DB.DBWrite.Name}, &errorDetails)
			logger.Fatal("❌ Failed to migrate database: " + errorDetails)
		}
	}

	// DB Read
	dbReadConn, err := db.ConnectDBRead(cfg.DB)
	if err != nil {
		errorDetails := err.Error()
		logger.WriteLogToFile("failed", "db.ConnectDBRead", map[string]any{
			"db_name": cfg.DB.DBRead.Name,
			"db_host": cfg.DB.DBRead.Host,
		}, &errorDetails)
		logger.Fatal("❌ Failed to connect database read: " + errorDetails)
	}
	logger.WriteLogToFile("success", "db.ConnectDBRead", map[string]any{
		"db_name": cfg.DB.DBRead.Name,
		"db_host": cfg.DB.DBRead.Host,
	}, nil)
	logger.Infof("✅ Connected to database read: %s", cfg.DB.DBRead.Name)

	// Cache
	rdb, err := cache.ConnectRedis(ctx, *cfg.Redis, cfg.App.Name+"-api")
	if err != nil {
		errorDetails := err.Error()
		logger.WriteLogToFile("failed", "cache.ConnectRedis", map[string]any{"host": cfg.Redis.Host}, &errorDetails)
		logger.Fatal("❌ Failed to connect cache redis : " + errorDetails)
	}
	logger.Infof("✅ Connected to cache redis")

	application, err := app.NewApp(ctx, cfg, dbWriteConn, dbReadConn, rdb)
	if err != nil {
		errorDetails := err.Error()
		logger.WriteLogToFile("failed", "app.NewApp", map[string]any{"catalog": cfg.Reward.CatalogFile}, &errorDetails)
		logger.Fatal("❌ Failed to build application: " + errorDetails)
	}
	go application.Start(state.Listener)

	// Block until terminated
	<-ctx.Done()

	logger.Info("🛑 Shutting down gracefully...")
	if err := application.Shutdown(); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	db.CloseDBWrite()
	db.CloseDBRead()
	_ = rdb.Close()
	logger.Info("✅ Cleanup done. Exiting.")
}
