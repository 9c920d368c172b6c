package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	walletstore "github.com/snowmuffin/game-hub-nest-sub001/internal/modules/wallet/store"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/metrics"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type Options struct {
	Stream       string        // default: "stream:ledger"
	Group        string        // default: "balance_cache_cg"
	Block        time.Duration // default: 5s
	Batch        int64         // default: 100
	MinIdle      time.Duration // default: 30s
	TrimAfterAck bool
}

// BalanceStreamWorker projects ledger stream events into the balance
// cache. Messages are acked only after the cache write succeeds, so a
// crashed consumer's backlog is reclaimed on the next start.
type BalanceStreamWorker struct {
	rdb     redis.UniversalClient
	cache   *walletstore.BalanceCache
	opt     Options
	metrics *metrics.EconomyMetrics
}

func NewBalanceStreamWorker(rdb redis.UniversalClient, cache *walletstore.BalanceCache, opt *Options) *BalanceStreamWorker {
	o := Options{
		Stream:  "stream:ledger",
		Group:   "balance_cache_cg",
		Block:   5 * time.Second,
		Batch:   100,
		MinIdle: 30 * time.Second,
	}
	if opt != nil {
		if opt.Stream != "" {
			o.Stream = opt.Stream
		}
		if opt.Group != "" {
			o.Group = opt.Group
		}
		if opt.Block != 0 {
			o.Block = opt.Block
		}
		if opt.Batch != 0 {
			o.Batch = opt.Batch
		}
		if opt.MinIdle != 0 {
			o.MinIdle = opt.MinIdle
		}
		o.TrimAfterAck = opt.TrimAfterAck
	}
	return &BalanceStreamWorker{rdb: rdb, cache: cache, opt: o, metrics: metrics.Economy()}
}

func (w *BalanceStreamWorker) ensureGroup(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, w.opt.Stream, w.opt.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		logger.Errorf("XGroupCreateMkStream error: %v", err)
	} else if err == nil {
		logger.Infof("created group %q on %s", w.opt.Group, w.opt.Stream)
	}
}

func (w *BalanceStreamWorker) reclaimPending(ctx context.Context, consumer string) {
	start := "0-0"
	for {
		msgs, next, err := w.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   w.opt.Stream,
			Group:    w.opt.Group,
			Consumer: consumer,
			MinIdle:  w.opt.MinIdle,
			Start:    start,
			Count:    w.opt.Batch,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				logger.Errorf("XAutoClaim error: %v", err)
			}
			return
		}
		for _, m := range msgs {
			w.handleMessage(ctx, consumer, m)
		}
		if len(msgs) == 0 || next == "0-0" {
			return
		}
		start = next
	}
}

func (w *BalanceStreamWorker) ack(ctx context.Context, id string) {
	if err := w.rdb.XAck(ctx, w.opt.Stream, w.opt.Group, id).Err(); err != nil {
		logger.Errorf("XAck error (msg=%s): %v", id, err)
	}
	if w.opt.TrimAfterAck {
		_ = w.rdb.XDel(ctx, w.opt.Stream, id).Err()
	}
}

func (w *BalanceStreamWorker) handleMessage(ctx context.Context, consumer string, m redis.XMessage) {
	f := m.Values

	walletKey, _ := getStr(f, "wallet_key")
	balanceStr, _ := getStr(f, "balance_after")
	versionStr, _ := getStr(f, "version")
	walletIDStr, _ := getStr(f, "wallet_id")

	// malformed entries can never succeed; ack them so they leave the PEL
	if walletKey == "" {
		logger.Warnf("ledger event without wallet_key (msg=%s)", m.ID)
		w.metrics.ObserveCacheUpdate("malformed")
		w.ack(ctx, m.ID)
		return
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		logger.Errorf("worker parse balance_after error (msg=%s): %v", m.ID, err)
		w.metrics.ObserveCacheUpdate("malformed")
		w.ack(ctx, m.ID)
		return
	}
	version, err := strconv.ParseInt(versionStr, 10, 64)
	if err != nil {
		logger.Errorf("worker parse version error (msg=%s): %v", m.ID, err)
		w.metrics.ObserveCacheUpdate("malformed")
		w.ack(ctx, m.ID)
		return
	}
	walletID, _ := strconv.ParseInt(walletIDStr, 10, 64)

	written, err := w.cache.Apply(ctx, walletKey, walletstore.CachedBalance{
		WalletID: walletID,
		Balance:  balance,
		Version:  version,
	})
	if err != nil {
		logger.Errorf("balance cache error (wallet=%s msg=%s): %v", walletKey, m.ID, err)
		w.metrics.ObserveCacheUpdate("error")
		return // no ack -> reclaimed later
	}
	if written {
		w.metrics.ObserveCacheUpdate("written")
	} else {
		w.metrics.ObserveCacheUpdate("stale")
	}
	w.ack(ctx, m.ID)
	logger.Debugf("handled message %s for consumer %s", m.ID, consumer)
}

func getStr(m map[string]interface{}, key string) (string, bool) {
	if v, ok := m[key]; ok {
		switch t := v.(type) {
		case string:
			return t, true
		case []byte:
			return string(t), true
		}
	}
	return "", false
}

func (w *BalanceStreamWorker) Run(ctx context.Context, consumerName string) {
	w.ensureGroup(ctx)
	w.reclaimPending(ctx, consumerName)

	backoff := 200 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		res, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    w.opt.Group,
			Consumer: consumerName,
			Streams:  []string{w.opt.Stream, ">"},
			Count:    w.opt.Batch,
			Block:    w.opt.Block,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				logger.Errorf("XReadGroup error: %v", err)
				time.Sleep(backoff)
				if backoff < 5*time.Second {
					backoff *= 2
				}
			}
			continue
		}
		backoff = 200 * time.Millisecond
		for _, strm := range res {
			for _, msg := range strm.Messages {
				w.handleMessage(ctx, consumerName, msg)
			}
		}
	}
}

func ConsumerName(instance string, i int) string {
	if instance == "" {
		instance = "app"
	}
	return fmt.Sprintf("%s-%d", instance, i)
}
