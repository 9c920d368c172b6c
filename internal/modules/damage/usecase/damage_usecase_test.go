package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/infrastructure/repository"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/ledger"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/model"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/damage/dto"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/reward"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/store"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixedRand struct{ v float64 }

func (f fixedRand) Float64() float64 { return f.v }

type countingRand struct{ n atomic.Int64 }

func (c *countingRand) Float64() float64 {
	c.n.Add(1)
	return 0
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []store.GrantTask
	err   error
	delay time.Duration
}

func (q *fakeQueue) Enqueue(_ context.Context, task store.GrantTask) (store.EnqueueResult, error) {
	time.Sleep(q.delay)
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return 0, q.err
	}
	q.tasks = append(q.tasks, task)
	return store.EnqueueReady, nil
}

type fixture struct {
	uc     *DamageUsecase
	db     *gorm.DB
	ledger *ledger.Ledger
	queue  *fakeQueue
}

func newFixture(t *testing.T, tiers *reward.TierTable) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	drops, err := reward.NewDropTable([]reward.Entry{
		{ItemID: "ice", ItemName: "Ice", Rarity: 1, Weight: 1, Active: true},
		{ItemID: "iron", ItemName: "Iron", Rarity: 2, Weight: 1, Active: true},
	})
	require.NoError(t, err)
	if tiers == nil {
		tiers = reward.DefaultTierTable()
	}
	resolver := reward.NewResolver(drops, tiers, 2, fixedRand{v: 0})
	l := ledger.New(repository.NewWalletRepository(db, db), ledger.WithRetryBackoff(time.Millisecond))
	q := &fakeQueue{}
	uc := NewDamageUsecase(
		repository.NewUserRepository(db, db),
		repository.NewDamageRepository(db, db),
		resolver,
		l,
		q,
		Options{GameID: 1, CurrencyID: 1, CurrencyDecimals: 2, Concurrency: 4, MaxBatchSize: 10, BatchTimeout: 5 * time.Second},
	)
	return &fixture{uc: uc, db: db, ledger: l, queue: q}
}

func f64(v float64) *float64 { return &v }

func (f *fixture) balance(t *testing.T, steamID string, server *int64) decimal.Decimal {
	t.Helper()
	var u model.User
	require.NoError(t, f.db.Where("steam_id = ?", steamID).First(&u).Error)
	w, err := f.ledger.Balance(context.Background(), ledger.WalletKey{UserID: u.ID, GameID: 1, ServerID: server, CurrencyID: 1})
	require.NoError(t, err)
	require.NoError(t, f.ledger.VerifyChain(context.Background(), w.ID))
	return w.Balance
}

func (f *fixture) count(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(m).Count(&n).Error)
	return n
}

func TestIngestMalformedEventDoesNotFailBatch(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.uc.Ingest(context.Background(), []dto.DamageEventInput{
		{SteamID: "p1", Damage: f64(100), ServerID: "S", EventID: "e1"},
		{SteamID: "p2", ServerID: "S", EventID: "e2"},
		{SteamID: "p1", Damage: f64(50), ServerID: "unknown-code", EventID: "e3"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, dto.StatusInvalid, res.Events[1].Status)
	assert.Contains(t, res.Events[1].Error, "Damage is required")

	assert.Equal(t, "80.00", res.Events[0].CurrencyAmount)
	assert.Equal(t, "S", res.Events[0].TierCode)
	assert.Equal(t, "50.00", res.Events[2].CurrencyAmount)
	assert.Equal(t, reward.DefaultTierCode, res.Events[2].TierCode)
	assert.NotZero(t, res.Events[0].TransactionID)

	assert.EqualValues(t, 2, f.count(t, &model.DamageLog{}))
	assert.EqualValues(t, 2, f.count(t, &model.WalletTransaction{}))
	assert.True(t, f.balance(t, "p1", nil).Equal(decimal.NewFromInt(130)))
}

func TestIngestReplayDoesNotDoubleCredit(t *testing.T) {
	f := newFixture(t, nil)
	batch := []dto.DamageEventInput{
		{SteamID: "p1", Damage: f64(10), ServerID: "A", EventID: "r1"},
		{SteamID: "p1", Damage: f64(20), ServerID: "A", EventID: "r2"},
	}

	first, err := f.uc.Ingest(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Accepted)

	again, err := f.uc.Ingest(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Duplicate)
	assert.Equal(t, first.Events[0].TransactionID, again.Events[0].TransactionID)
	assert.Equal(t, first.Events[1].DroppedItem, again.Events[1].DroppedItem)

	assert.True(t, f.balance(t, "p1", nil).Equal(decimal.NewFromInt(21)))
	assert.EqualValues(t, 2, f.count(t, &model.DamageLog{}))
	assert.Len(t, f.queue.tasks, 2, "grants are enqueued once per event")
}

func TestIngestDerivesStableEventID(t *testing.T) {
	f := newFixture(t, nil)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	batch := []dto.DamageEventInput{{SteamID: "p1", Damage: f64(5), ServerID: "B", ObservedAt: &at}}

	first, err := f.uc.Ingest(context.Background(), batch)
	require.NoError(t, err)
	again, err := f.uc.Ingest(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, dto.StatusAccepted, first.Events[0].Status)
	assert.Equal(t, dto.StatusDuplicate, again.Events[0].Status)
	assert.Equal(t, first.Events[0].EventID, again.Events[0].EventID)
	assert.True(t, f.balance(t, "p1", nil).Equal(decimal.RequireFromString("2.5")))
}

func TestDeriveEventID(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := DeriveEventID(DamageEvent{SteamID: "p", Damage: 1.5, ServerCode: "s", ObservedAt: at})
	b := DeriveEventID(DamageEvent{SteamID: "p", Damage: 1.5, ServerCode: "S", ObservedAt: at.In(time.FixedZone("x", 3600))})
	c := DeriveEventID(DamageEvent{SteamID: "p", Damage: 1.6, ServerCode: "S", ObservedAt: at})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	assert.NotEqual(t, DeriveEventID(DamageEvent{SteamID: "p"}), DeriveEventID(DamageEvent{SteamID: "p"}))
}

func TestIngestRejectsBadBatches(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.uc.Ingest(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidBatch)

	big := make([]dto.DamageEventInput, 11)
	for i := range big {
		big[i] = dto.DamageEventInput{SteamID: "p", Damage: f64(1)}
	}
	_, err = f.uc.Ingest(context.Background(), big)
	require.ErrorIs(t, err, ErrInvalidBatch)
}

func TestIngestInvalidValues(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.uc.Ingest(context.Background(), []dto.DamageEventInput{
		{SteamID: "", Damage: f64(1)},
		{SteamID: "p1", Damage: f64(-1)},
		{SteamID: "   ", Damage: f64(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Invalid)
	for _, e := range res.Events {
		assert.Equal(t, dto.StatusInvalid, e.Status)
	}
	assert.Zero(t, f.count(t, &model.DamageLog{}))
}

func TestIngestZeroDamageIsAuditedWithoutCredit(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.uc.Ingest(context.Background(), []dto.DamageEventInput{
		{SteamID: "p1", Damage: f64(0), ServerID: "S", EventID: "z1"},
	})
	require.NoError(t, err)
	assert.Equal(t, dto.StatusAccepted, res.Events[0].Status)
	assert.Equal(t, "0.00", res.Events[0].CurrencyAmount)
	assert.Zero(t, res.Events[0].TransactionID)

	assert.EqualValues(t, 1, f.count(t, &model.DamageLog{}))
	assert.Zero(t, f.count(t, &model.Wallet{}))
}

func TestIngestCancelledContextSkipsEvents(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.uc.Ingest(ctx, []dto.DamageEventInput{
		{SteamID: "p1", Damage: f64(1), EventID: "s1"},
		{SteamID: "p2", Damage: f64(1), EventID: "s2"},
		{SteamID: "p3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Invalid)
	assert.Zero(t, f.count(t, &model.DamageLog{}))
}

func TestIngestGrantFailureKeepsEventAccepted(t *testing.T) {
	f := newFixture(t, nil)
	f.queue.err = errors.New("redis down")

	res, err := f.uc.Ingest(context.Background(), []dto.DamageEventInput{
		{SteamID: "p1", Damage: f64(10), ServerID: "S", EventID: "g1"},
	})
	require.NoError(t, err)
	assert.Equal(t, dto.StatusAccepted, res.Events[0].Status)
	assert.Equal(t, "ice", res.Events[0].DroppedItem)
	assert.True(t, f.balance(t, "p1", nil).Equal(decimal.NewFromInt(8)))
}

func TestIngestEnqueuesDroppedItem(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.uc.Ingest(context.Background(), []dto.DamageEventInput{
		{SteamID: "p1", Damage: f64(10), ServerID: "S", EventID: "d1"},
	})
	require.NoError(t, err)
	require.Len(t, f.queue.tasks, 1)
	task := f.queue.tasks[0]
	assert.Equal(t, "d1", task.GrantID)
	assert.Equal(t, "ice", task.ItemID)
	assert.EqualValues(t, 1, task.Quantity)
	assert.NotZero(t, task.UserID)
}

func TestIngestRoutesTierToServerWallet(t *testing.T) {
	server := int64(7)
	tiers := reward.NewTierTable(
		reward.Tier{Code: reward.DefaultTierCode, MaxRarity: 4, Multiplier: 1},
		[]reward.Tier{{Code: "S", MaxRarity: 21, Multiplier: 0.8, ServerID: &server}},
	)
	f := newFixture(t, tiers)

	_, err := f.uc.Ingest(context.Background(), []dto.DamageEventInput{
		{SteamID: "p1", Damage: f64(100), ServerID: "s", EventID: "w1"},
		{SteamID: "p1", Damage: f64(3), ServerID: "other", EventID: "w2"},
	})
	require.NoError(t, err)

	assert.True(t, f.balance(t, "p1", &server).Equal(decimal.NewFromInt(80)))
	assert.True(t, f.balance(t, "p1", nil).Equal(decimal.NewFromInt(3)))
}

func TestIngestManyLanesConcurrently(t *testing.T) {
	f := newFixture(t, nil)
	var batch []dto.DamageEventInput
	for i := 0; i < 10; i++ {
		steam := "p" + string(rune('a'+i%3))
		batch = append(batch, dto.DamageEventInput{
			SteamID:  steam,
			Damage:   f64(1),
			ServerID: "S",
			EventID:  "m" + string(rune('a'+i)),
		})
	}

	res, err := f.uc.Ingest(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Accepted)

	total := f.balance(t, "pa", nil).Add(f.balance(t, "pb", nil)).Add(f.balance(t, "pc", nil))
	assert.True(t, total.Equal(decimal.NewFromInt(8)), total.String())
}

func TestIngestKeepsArrivalOrderPerWallet(t *testing.T) {
	f := newFixture(t, nil)
	codes := []string{"S", "A", "B", "C", "x"}
	var batch []dto.DamageEventInput
	var want []string
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("e%02d", i)
		want = append(want, id)
		batch = append(batch, dto.DamageEventInput{
			SteamID:  "p1",
			Damage:   f64(10),
			ServerID: codes[i%len(codes)],
			EventID:  id,
		})
	}

	res, err := f.uc.Ingest(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, 10, res.Accepted)

	var u model.User
	require.NoError(t, f.db.Where("steam_id = ?", "p1").First(&u).Error)
	wallets, err := f.ledger.UserWallets(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, wallets, 1)

	txs, err := f.ledger.Transactions(context.Background(), wallets[0].ID, 100, 0)
	require.NoError(t, err)
	slices.Reverse(txs)
	var got []string
	for _, tx := range txs {
		require.NotNil(t, tx.ReferenceID)
		got = append(got, *tx.ReferenceID)
	}
	assert.Equal(t, want, got)
	require.NoError(t, f.ledger.VerifyChain(context.Background(), wallets[0].ID))
}

func TestIngestBatchTimeoutSkipsUnstartedEvents(t *testing.T) {
	f := newFixture(t, nil)
	f.uc.opt.Concurrency = 1
	f.uc.opt.BatchTimeout = 100 * time.Millisecond
	f.queue.delay = 300 * time.Millisecond

	res, err := f.uc.Ingest(context.Background(), []dto.DamageEventInput{
		{SteamID: "p1", Damage: f64(10), ServerID: "S", EventID: "t1"},
		{SteamID: "p1", Damage: f64(10), ServerID: "S", EventID: "t2"},
		{SteamID: "p2", Damage: f64(10), ServerID: "S", EventID: "t3"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, dto.StatusAccepted, res.Events[0].Status)
	assert.Equal(t, dto.StatusSkipped, res.Events[1].Status)
	assert.Equal(t, dto.StatusSkipped, res.Events[2].Status)

	// the started event finished past the deadline and stays committed
	assert.True(t, f.balance(t, "p1", nil).Equal(decimal.NewFromInt(8)))
	assert.EqualValues(t, 1, f.count(t, &model.DamageLog{}))
	assert.Len(t, f.queue.tasks, 1)
}

func TestIngestReplayDoesNotDrawReward(t *testing.T) {
	f := newFixture(t, nil)
	rng := &countingRand{}
	f.uc.resolver = reward.NewResolver(f.uc.resolver.Drops(), f.uc.resolver.Tiers(), 2, rng)
	batch := []dto.DamageEventInput{{SteamID: "p1", Damage: f64(10), ServerID: "S", EventID: "d1"}}

	_, err := f.uc.Ingest(context.Background(), batch)
	require.NoError(t, err)
	draws := rng.n.Load()
	require.Positive(t, draws)

	again, err := f.uc.Ingest(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusDuplicate, again.Events[0].Status)
	assert.Equal(t, "ice", again.Events[0].DroppedItem)
	assert.Equal(t, draws, rng.n.Load())
}

func TestIngestReportsConfiguredDecimals(t *testing.T) {
	f := newFixture(t, nil)
	f.uc.opt.CurrencyDecimals = 4

	res, err := f.uc.Ingest(context.Background(), []dto.DamageEventInput{
		{SteamID: "p1", Damage: f64(100), ServerID: "S", EventID: "c1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "80.0000", res.Events[0].CurrencyAmount)
}

func TestIngestRejectsDamageBeyondCurrencyRange(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.uc.Ingest(context.Background(), []dto.DamageEventInput{
		{SteamID: "p1", Damage: f64(1e12), ServerID: "S", EventID: "big"},
		{SteamID: "p1", Damage: f64(1e9), ServerID: "S", EventID: "edge"},
	})
	require.NoError(t, err)
	assert.Equal(t, dto.StatusInvalid, res.Events[0].Status)
	assert.Contains(t, res.Events[0].Error, "Damage must be at most")
	assert.Equal(t, dto.StatusAccepted, res.Events[1].Status)
	assert.EqualValues(t, 1, f.count(t, &model.DamageLog{}))
}
