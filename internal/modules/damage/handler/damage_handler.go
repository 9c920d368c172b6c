package handler

import (
	"crypto/subtle"
	"errors"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/damage/dto"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/damage/usecase"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const PasswordHeader = "X-Ingest-Password"

type DamageHandler struct {
	usecase  *usecase.DamageUsecase
	password string
}

// NewDamageHandler guards ingest with password when it is not empty.
func NewDamageHandler(u *usecase.DamageUsecase, password string) *DamageHandler {
	return &DamageHandler{usecase: u, password: password}
}

func (h *DamageHandler) Ingest(c *fiber.Ctx) error {
	if h.password != "" {
		got := c.Get(PasswordHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.password)) != 1 {
			errMsg := "bad ingest password"
			logger.WriteLogToFile("failed", "DamageHandler.Ingest.Auth", map[string]any{"ip": c.IP()}, &errMsg)
			return response.WriteError(c, fiber.StatusUnauthorized, "Unauthorized", errMsg)
		}
	}

	var req []dto.DamageEventInput
	if err := c.BodyParser(&req); err != nil {
		errMsg := err.Error()
		logger.WriteLogToFile("failed", "DamageHandler.Ingest.Parser", string(c.Body()), &errMsg)
		return response.WriteError(c, fiber.StatusBadRequest, "Invalid request body", "body must be a JSON array of damage events")
	}

	out, err := h.usecase.Ingest(c.UserContext(), req)
	if err != nil {
		errMsg := err.Error()
		logger.WriteLogToFile("failed", "DamageHandler.Ingest.Usecase", map[string]any{"events": len(req)}, &errMsg)
		if errors.Is(err, usecase.ErrInvalidBatch) {
			return response.WriteError(c, fiber.StatusBadRequest, "Invalid damage batch", errMsg)
		}
		return response.WriteError(c, fiber.StatusInternalServerError, "Failed to process damage logs", errMsg)
	}

	logger.WriteLogToFile("success", "DamageHandler.Ingest", map[string]any{
		"total":     out.Total,
		"accepted":  out.Accepted,
		"duplicate": out.Duplicate,
		"invalid":   out.Invalid,
		"failed":    out.Failed,
		"skipped":   out.Skipped,
	}, nil)
	return response.WriteSuccess(c, fiber.StatusOK, "Damage logs processed", out)
}
