package factory

import (
	"github.com/snowmuffin/game-hub-nest-sub001/internal/ledger"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/wallet/handler"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/wallet/store"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/wallet/usecase"
)

func newWalletFactory(l *ledger.Ledger, cache *store.BalanceCache) *handler.WalletHandler {
	usecase := usecase.NewWalletUsecase(l, cache)
	handler := handler.NewWalletHandler(usecase)
	return handler
}
