package routes

import (
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/wallet/handler"

	"github.com/gofiber/fiber/v2"
)

// Fixed segments go first so they are not captured by /:user_id.
func NewWalletRoutes(routerWallet fiber.Router, handler *handler.WalletHandler) {
	routerWallet.Get("/transactions/:wallet_id", handler.Transactions)
	routerWallet.Get("/verify/:wallet_id", handler.Verify)
	routerWallet.Post("/credit", handler.Credit)
	routerWallet.Post("/debit", handler.Debit)
	routerWallet.Post("/transfer", handler.Transfer)
	routerWallet.Get("/:user_id/balance", handler.Balance)
	routerWallet.Get("/:user_id", handler.List)
}
