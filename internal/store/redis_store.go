package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/ledger"

	"github.com/redis/go-redis/v9"
)

const defaultLedgerStream = "stream:ledger"

// LedgerStream appends committed ledger events to a Redis stream for
// downstream consumers such as the balance cache worker.
type LedgerStream struct {
	rdb    redis.UniversalClient
	stream string
	maxLen int64
}

func NewLedgerStream(rdb redis.UniversalClient, stream string, maxLen int64) *LedgerStream {
	if stream == "" {
		stream = defaultLedgerStream
	}
	return &LedgerStream{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (s *LedgerStream) Stream() string { return s.stream }

// Publish implements ledger.Publisher.
func (s *LedgerStream) Publish(ctx context.Context, ev ledger.Event) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: EventFields(ev),
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// EventFields is the stream entry layout of a ledger event.
func EventFields(ev ledger.Event) map[string]any {
	return map[string]any{
		"type":           string(ev.Type),
		"wallet_id":      strconv.FormatInt(ev.WalletID, 10),
		"wallet_key":     ev.WalletKey,
		"user_id":        strconv.FormatInt(ev.UserID, 10),
		"transaction_id": strconv.FormatInt(ev.TransactionID, 10),
		"amount":         ev.Amount.String(),
		"balance_after":  ev.BalanceAfter.String(),
		"version":        strconv.FormatInt(ev.Version, 10),
	}
}
