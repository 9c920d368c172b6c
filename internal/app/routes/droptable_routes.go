package routes

import (
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/droptable/handler"

	"github.com/gofiber/fiber/v2"
)

func NewDropTableRoutes(routerDrop fiber.Router, handler *handler.DropTableHandler) {
	routerDrop.Get("/", handler.List)
	routerDrop.Get("/stats", handler.Stats)
	routerDrop.Get("/simulate", handler.Simulate)
}
