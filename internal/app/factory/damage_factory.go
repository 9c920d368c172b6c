package factory

import (
	"github.com/snowmuffin/game-hub-nest-sub001/internal/config"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/infrastructure/repository"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/ledger"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/damage/handler"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/damage/usecase"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/reward"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/store"

	"gorm.io/gorm"
)

func newDamageFactory(
	cfg *config.Config,
	dbWrite *gorm.DB,
	dbRead *gorm.DB,
	resolver *reward.Resolver,
	l *ledger.Ledger,
	queue *store.GrantQueue,
) *handler.DamageHandler {
	usecase := usecase.NewDamageUsecase(
		repository.NewUserRepository(dbWrite, dbRead),
		repository.NewDamageRepository(dbWrite, dbRead),
		resolver,
		l,
		queue,
		usecase.Options{
			GameID:           cfg.Reward.GameID,
			CurrencyID:       cfg.Reward.CurrencyID,
			CurrencyDecimals: cfg.Reward.CurrencyDecimals,
			Concurrency:      cfg.Ingest.Concurrency,
			MaxBatchSize:     cfg.Ingest.MaxBatchSize,
			BatchTimeout:     cfg.Ingest.BatchTimeout,
		},
	)
	return handler.NewDamageHandler(usecase, cfg.Ingest.Password)
}
