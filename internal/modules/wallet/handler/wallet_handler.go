package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/ledger"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/wallet/dto"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/wallet/usecase"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/response"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

var validate = validation.New()

type WalletHandler struct {
	usecase *usecase.WalletUsecase
}

func NewWalletHandler(u *usecase.WalletUsecase) *WalletHandler {
	return &WalletHandler{usecase: u}
}

// statusFor maps ledger errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidTransactionType),
		errors.Is(err, ledger.ErrInvalidWalletKey),
		errors.Is(err, ledger.ErrInvalidTransfer):
		return fiber.StatusBadRequest
	case errors.Is(err, ledger.ErrWalletNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrWalletInactive),
		errors.Is(err, ledger.ErrLedgerConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func paramInt64(c *fiber.Ctx, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return v, nil
}

func (h *WalletHandler) List(c *fiber.Ctx) error {
	userID, err := paramInt64(c, "user_id")
	if err != nil {
		return response.WriteError(c, fiber.StatusBadRequest, "Invalid user id", err.Error())
	}
	wallets, err := h.usecase.List(c.UserContext(), userID)
	if err != nil {
		errMsg := err.Error()
		logger.WriteLogToFile("failed", "WalletHandler.List", map[string]any{"user_id": userID}, &errMsg)
		return response.WriteError(c, fiber.StatusInternalServerError, "Failed to list wallets", errMsg)
	}
	return response.WriteSuccess(c, fiber.StatusOK, "Wallets fetched", wallets)
}

func (h *WalletHandler) Balance(c *fiber.Ctx) error {
	userID, err := paramInt64(c, "user_id")
	if err != nil {
		return response.WriteError(c, fiber.StatusBadRequest, "Invalid user id", err.Error())
	}
	in := dto.WalletKeyInput{
		UserID:     userID,
		GameID:     int64(c.QueryInt("game_id", 0)),
		CurrencyID: int64(c.QueryInt("currency_id", 0)),
	}
	if s := strings.TrimSpace(c.Query("server_id")); s != "" {
		server, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return response.WriteError(c, fiber.StatusBadRequest, "Invalid server id", err.Error())
		}
		in.ServerID = &server
	}
	if err := validate.Struct(&in); err != nil {
		return response.WriteError(c, fiber.StatusBadRequest, "Validation error", strings.Join(validation.FormatValidationError(err), ", "))
	}

	out, err := h.usecase.Balance(c.UserContext(), usecase.KeyFromInput(in))
	if err != nil {
		return response.WriteError(c, statusFor(err), "Failed to fetch balance", err.Error())
	}
	return response.WriteSuccess(c, fiber.StatusOK, "Balance fetched", out)
}

func (h *WalletHandler) Transactions(c *fiber.Ctx) error {
	walletID, err := paramInt64(c, "wallet_id")
	if err != nil {
		return response.WriteError(c, fiber.StatusBadRequest, "Invalid wallet id", err.Error())
	}
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	rows, err := h.usecase.Transactions(c.UserContext(), walletID, limit, offset)
	if err != nil {
		return response.WriteError(c, statusFor(err), "Failed to fetch transactions", err.Error())
	}
	return response.WriteSuccess(c, fiber.StatusOK, "Transactions fetched", rows)
}

func (h *WalletHandler) Credit(c *fiber.Ctx) error {
	return h.mutate(c, "Credit", h.usecase.Credit)
}

func (h *WalletHandler) Debit(c *fiber.Ctx) error {
	return h.mutate(c, "Debit", h.usecase.Debit)
}

func (h *WalletHandler) mutate(c *fiber.Ctx, op string, fn func(context.Context, dto.MutationInput) (dto.MutationOutput, error)) error {
	var req dto.MutationInput
	if err := c.BodyParser(&req); err != nil {
		errMsg := err.Error()
		logger.WriteLogToFile("failed", "WalletHandler."+op+".Parser", req, &errMsg)
		return response.WriteError(c, fiber.StatusBadRequest, "Invalid request body", errMsg)
	}
	if err := validate.Struct(&req); err != nil {
		errMsg := strings.Join(validation.FormatValidationError(err), ", ")
		logger.WriteLogToFile("failed", "WalletHandler."+op+".Validate", req, &errMsg)
		return response.WriteError(c, fiber.StatusBadRequest, "Validation error", errMsg)
	}

	out, err := fn(c.UserContext(), req)
	if err != nil {
		errMsg := err.Error()
		logger.WriteLogToFile("failed", "WalletHandler."+op+".Usecase", req, &errMsg)
		return response.WriteError(c, statusFor(err), "Failed to process "+strings.ToLower(op), errMsg)
	}

	logger.WriteLogToFile("success", "WalletHandler."+op, req, nil)
	code := fiber.StatusCreated
	if !out.Applied {
		code = fiber.StatusOK
	}
	return response.WriteSuccess(c, code, op+" processed", out)
}

func (h *WalletHandler) Transfer(c *fiber.Ctx) error {
	var req dto.TransferInput
	if err := c.BodyParser(&req); err != nil {
		errMsg := err.Error()
		logger.WriteLogToFile("failed", "WalletHandler.Transfer.Parser", req, &errMsg)
		return response.WriteError(c, fiber.StatusBadRequest, "Invalid request body", errMsg)
	}
	if err := validate.Struct(&req); err != nil {
		errMsg := strings.Join(validation.FormatValidationError(err), ", ")
		logger.WriteLogToFile("failed", "WalletHandler.Transfer.Validate", req, &errMsg)
		return response.WriteError(c, fiber.StatusBadRequest, "Validation error", errMsg)
	}

	out, err := h.usecase.Transfer(c.UserContext(), req)
	if err != nil {
		errMsg := err.Error()
		logger.WriteLogToFile("failed", "WalletHandler.Transfer.Usecase", req, &errMsg)
		return response.WriteError(c, statusFor(err), "Failed to process transfer", errMsg)
	}

	logger.WriteLogToFile("success", "WalletHandler.Transfer", req, nil)
	return response.WriteSuccess(c, fiber.StatusCreated, "Transfer processed", out)
}

func (h *WalletHandler) Verify(c *fiber.Ctx) error {
	walletID, err := paramInt64(c, "wallet_id")
	if err != nil {
		return response.WriteError(c, fiber.StatusBadRequest, "Invalid wallet id", err.Error())
	}
	out, err := h.usecase.Verify(c.UserContext(), walletID)
	if err != nil {
		return response.WriteError(c, statusFor(err), "Failed to verify wallet", err.Error())
	}
	return response.WriteSuccess(c, fiber.StatusOK, "Wallet verified", out)
}
