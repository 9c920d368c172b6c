package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

//go:embed lua/set_balance_if_newer.lua
var luaSetBalance string

// CachedBalance is the last projected balance of a wallet.
type CachedBalance struct {
	WalletID int64           `json:"wallet_id"`
	Balance  decimal.Decimal `json:"balance"`
	Version  int64           `json:"version"`
}

// BalanceCache keeps the newest known balance per wallet key in Redis.
// Writes carry the wallet version and never move a key backwards.
type BalanceCache struct {
	rdb    redis.UniversalClient
	scrSet *redis.Script
	ttl    time.Duration
}

func NewBalanceCache(rdb redis.UniversalClient, ttl time.Duration) *BalanceCache {
	return &BalanceCache{
		rdb:    rdb,
		scrSet: redis.NewScript(luaSetBalance),
		ttl:    ttl,
	}
}

func keyBalance(walletKey string) string {
	return fmt.Sprintf("balance:{%s}", walletKey)
}

// Apply stores b for walletKey when b.Version is newer than what the
// cache holds and reports whether it was written.
func (s *BalanceCache) Apply(ctx context.Context, walletKey string, b CachedBalance) (bool, error) {
	args := []any{b.Version, b.Balance.String(), b.WalletID, s.ttl.Milliseconds()}
	n, err := s.scrSet.Run(ctx, s.rdb, []string{keyBalance(walletKey)}, args...).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Get returns the cached balance; ok is false on a miss.
func (s *BalanceCache) Get(ctx context.Context, walletKey string) (CachedBalance, bool, error) {
	vals, err := s.rdb.HGetAll(ctx, keyBalance(walletKey)).Result()
	if errors.Is(err, redis.Nil) || len(vals) == 0 {
		return CachedBalance{}, false, nil
	}
	if err != nil {
		return CachedBalance{}, false, err
	}

	var out CachedBalance
	if out.Balance, err = decimal.NewFromString(vals["balance"]); err != nil {
		return CachedBalance{}, false, fmt.Errorf("cached balance %s: %w", walletKey, err)
	}
	if out.Version, err = strconv.ParseInt(vals["version"], 10, 64); err != nil {
		return CachedBalance{}, false, fmt.Errorf("cached version %s: %w", walletKey, err)
	}
	out.WalletID, _ = strconv.ParseInt(vals["wallet_id"], 10, 64)
	return out, true, nil
}

func (s *BalanceCache) Invalidate(ctx context.Context, walletKey string) error {
	return s.rdb.Del(ctx, keyBalance(walletKey)).Err()
}
