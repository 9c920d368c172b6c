package routes

import (
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/damage/handler"

	"github.com/gofiber/fiber/v2"
)

func NewDamageRoutes(routerDamage fiber.Router, handler *handler.DamageHandler) {
	routerDamage.Post("/", handler.Ingest)
}
