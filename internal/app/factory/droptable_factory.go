package factory

import (
	"github.com/snowmuffin/game-hub-nest-sub001/internal/config"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/droptable/handler"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/droptable/usecase"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/reward"
)

func newDropTableFactory(cfg *config.RewardConfig, resolver *reward.Resolver, opts []reward.Option) *handler.DropTableHandler {
	usecase := usecase.NewDropTableUsecase(resolver.Drops(), resolver.Tiers(), cfg.CurrencyDecimals, opts...)
	return handler.NewDropTableHandler(usecase)
}
