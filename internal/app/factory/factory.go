package factory

import (
	"context"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/config"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/infrastructure/repository"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/ledger"
	damagehandler "github.com/snowmuffin/game-hub-nest-sub001/internal/modules/damage/handler"
	drophandler "github.com/snowmuffin/game-hub-nest-sub001/internal/modules/droptable/handler"
	wallethandler "github.com/snowmuffin/game-hub-nest-sub001/internal/modules/wallet/handler"
	walletstore "github.com/snowmuffin/game-hub-nest-sub001/internal/modules/wallet/store"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/store"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container holds everything the HTTP routes need.
type Container struct {
	DamageHandler    *damagehandler.DamageHandler
	WalletHandler    *wallethandler.WalletHandler
	DropTableHandler *drophandler.DropTableHandler

	Ledger       *ledger.Ledger
	GrantQueue   *store.GrantQueue
	LedgerStream *store.LedgerStream
	BalanceCache *walletstore.BalanceCache
}

func Build(ctx context.Context, cfg *config.Config, dbWrite *gorm.DB, dbRead *gorm.DB, rdb redis.UniversalClient) (*Container, error) {
	stream := store.NewLedgerStream(rdb, cfg.Ledger.StreamKey, cfg.Ledger.StreamMaxLen)
	l := ledger.New(
		repository.NewWalletRepository(dbWrite, dbRead),
		ledger.WithMaxAttempts(cfg.Ledger.MaxAttempts),
		ledger.WithPublisher(stream),
	)
	queue := store.NewGrantQueue(rdb, store.QueueOptions{
		ReadyKey:      cfg.Grant.ReadyKey,
		DeadLetterKey: cfg.Grant.DeadLetterKey,
		DedupTTL:      cfg.Grant.DedupTTL,
	})
	if err := queue.Preload(ctx); err != nil {
		return nil, err
	}
	cache := walletstore.NewBalanceCache(rdb, cfg.Worker.CacheTTL)

	resolver, opts, err := newRewardResolver(ctx, cfg.Reward, repository.NewDropRepository(dbWrite, dbRead))
	if err != nil {
		return nil, err
	}

	return &Container{
		DamageHandler:    newDamageFactory(cfg, dbWrite, dbRead, resolver, l, queue),
		WalletHandler:    newWalletFactory(l, cache),
		DropTableHandler: newDropTableFactory(cfg.Reward, resolver, opts),
		Ledger:           l,
		GrantQueue:       queue,
		LedgerStream:     stream,
		BalanceCache:     cache,
	}, nil
}
