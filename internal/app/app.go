package app

import (
	"context"
	"net"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/app/factory"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/app/routes"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/config"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	Fiber     *fiber.App
	Config    *config.Config
	Container *factory.Container
}

func NewApp(ctx context.Context, cfg *config.Config, dbWrite *gorm.DB, dbRead *gorm.DB, rdb redis.UniversalClient) (*App, error) {
	// Build the application factory
	container, err := factory.Build(ctx, cfg, dbWrite, dbRead, rdb)
	if err != nil {
		return nil, err
	}

	fiberApp := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env != "development",
	})
	fiberApp.Use(recover.New())

	app := &App{Fiber: fiberApp, Config: cfg, Container: container}

	// Register routes
	routes.NewRoutes(fiberApp, container)

	return app, nil
}

func (a *App) Start(listener net.Listener) {
	configApp := a.Config.App

	logger.Infof("✅ %s server started on port: %s", configApp.Name, configApp.Port)

	if err := a.Fiber.Listener(listener); err != nil {
		errDetail := err.Error()
		logger.WriteLogToFile("failed", "app.Start", map[string]any{
			"app_name": configApp.Name,
			"app_port": configApp.Port,
		}, &errDetail)
		logger.Fatal("❌ Failed to start server: " + err.Error())
	}
}

func (a *App) Shutdown() error {
	return a.Fiber.Shutdown()
}
