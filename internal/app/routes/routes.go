package routes

import (
	"github.com/snowmuffin/game-hub-nest-sub001/internal/app/factory"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRoutes(app *fiber.App, container *factory.Container) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routerApi := app.Group("/api")

	// Register healthz routes
	healthzRoutes := routerApi.Group("/healthz")
	NewHealthzRoutes(healthzRoutes)

	// Damage Routes
	NewDamageRoutes(routerApi.Group("/damage_logs"), container.DamageHandler)

	// Wallet Routes
	routerWallet := routerApi.Group("/wallet")
	NewWalletRoutes(routerWallet, container.WalletHandler)

	// Drop Table Routes
	NewDropTableRoutes(routerApi.Group("/drop-table"), container.DropTableHandler)
}
