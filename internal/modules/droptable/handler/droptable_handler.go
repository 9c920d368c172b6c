package handler

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/droptable/dto"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/droptable/usecase"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/response"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

var validate = validation.New()

type DropTableHandler struct {
	usecase *usecase.DropTableUsecase
}

func NewDropTableHandler(u *usecase.DropTableUsecase) *DropTableHandler {
	return &DropTableHandler{usecase: u}
}

func (h *DropTableHandler) List(c *fiber.Ctx) error {
	q := dto.ListQuery{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
		Rarity: c.QueryInt("rarity", 0),
	}
	if s := strings.TrimSpace(c.Query("is_active")); s != "" {
		active, err := strconv.ParseBool(s)
		if err != nil {
			return response.WriteError(c, fiber.StatusBadRequest, "Invalid is_active", err.Error())
		}
		q.Active = &active
	}
	if err := validate.Struct(&q); err != nil {
		return response.WriteError(c, fiber.StatusBadRequest, "Validation error", strings.Join(validation.FormatValidationError(err), ", "))
	}

	entries, meta := h.usecase.List(q)
	return response.WriteSuccessWithMeta(c, fiber.StatusOK, "Drop table fetched", entries, meta)
}

func (h *DropTableHandler) Stats(c *fiber.Ctx) error {
	return response.WriteSuccess(c, fiber.StatusOK, "Drop table stats fetched", h.usecase.Stats())
}

func (h *DropTableHandler) Simulate(c *fiber.Ctx) error {
	q := dto.SimulateQuery{
		ServerID: strings.TrimSpace(c.Query("server_id")),
		Rolls:    c.QueryInt("rolls", 1),
	}
	if s := strings.TrimSpace(c.Query("damage")); s != "" {
		damage, err := strconv.ParseFloat(s, 64)
		if err == nil && (math.IsNaN(damage) || math.IsInf(damage, 0)) {
			err = errors.New("damage must be a finite number")
		}
		if err != nil {
			return response.WriteError(c, fiber.StatusBadRequest, "Invalid damage", err.Error())
		}
		q.Damage = &damage
	}
	if s := strings.TrimSpace(c.Query("seed")); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return response.WriteError(c, fiber.StatusBadRequest, "Invalid seed", err.Error())
		}
		q.Seed = seed
	}
	if err := validate.Struct(&q); err != nil {
		return response.WriteError(c, fiber.StatusBadRequest, "Validation error", strings.Join(validation.FormatValidationError(err), ", "))
	}

	return response.WriteSuccess(c, fiber.StatusOK, "Drop simulated", h.usecase.Simulate(q))
}
