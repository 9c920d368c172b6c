package usecase

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/infrastructure/repository"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/ledger"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/metrics"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/model"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/damage/dto"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/reward"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/store"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/validation"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	validate = validation.New()

	eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("game-hub/damage-event"))
)

// GrantQueue accepts item deliveries for asynchronous processing.
type GrantQueue interface {
	Enqueue(ctx context.Context, task store.GrantTask) (store.EnqueueResult, error)
}

// DamageEvent is a validated event as the pipeline processes it.
type DamageEvent struct {
	EventID    string
	SteamID    string
	Damage     float64
	ServerCode string
	ObservedAt time.Time
}

type Options struct {
	GameID     int64
	CurrencyID int64
	// CurrencyDecimals is the precision amounts are reported with.
	CurrencyDecimals int32
	Concurrency      int
	MaxBatchSize     int
	BatchTimeout     time.Duration
}

// DamageUsecase turns damage batches into audit rows, ledger credits and
// item grants.
type DamageUsecase struct {
	users    *repository.UserRepository
	logs     *repository.DamageRepository
	resolver *reward.Resolver
	ledger   *ledger.Ledger
	grants   GrantQueue
	opt      Options
	metrics  *metrics.EconomyMetrics
	now      func() time.Time
}

func NewDamageUsecase(
	users *repository.UserRepository,
	logs *repository.DamageRepository,
	resolver *reward.Resolver,
	l *ledger.Ledger,
	grants GrantQueue,
	opt Options,
) *DamageUsecase {
	if opt.Concurrency <= 0 {
		opt.Concurrency = 8
	}
	if opt.MaxBatchSize <= 0 {
		opt.MaxBatchSize = 1000
	}
	return &DamageUsecase{
		users:    users,
		logs:     logs,
		resolver: resolver,
		ledger:   l,
		grants:   grants,
		opt:      opt,
		metrics:  metrics.Economy(),
		now:      time.Now,
	}
}

// Ingest processes a batch. Only a batch-level problem returns an error;
// per-event outcomes are reported in the result.
//
// Events that credit the same wallet form a lane and run in arrival
// order; lanes run concurrently. When the batch timeout expires, events
// not yet started are reported skipped while started ones finish.
func (u *DamageUsecase) Ingest(ctx context.Context, events []dto.DamageEventInput) (*dto.BatchResult, error) {
	if len(events) == 0 {
		u.metrics.ObserveIngestBatch("rejected")
		return nil, fmt.Errorf("%w: no events", ErrInvalidBatch)
	}
	if len(events) > u.opt.MaxBatchSize {
		u.metrics.ObserveIngestBatch("rejected")
		return nil, fmt.Errorf("%w: %d events exceeds limit %d", ErrInvalidBatch, len(events), u.opt.MaxBatchSize)
	}

	out := &dto.BatchResult{Events: make([]dto.EventResult, len(events))}
	parsed := make([]DamageEvent, len(events))
	lanes := map[string][]int{}
	var order []string

	for i, in := range events {
		ev, err := u.toEvent(in)
		if err != nil {
			out.Events[i] = dto.EventResult{Index: i, SteamID: in.SteamID, Status: dto.StatusInvalid, Error: err.Error()}
			u.metrics.ObserveIngestEvent(string(dto.StatusInvalid))
			continue
		}
		parsed[i] = ev
		lane := u.laneKey(ev)
		if _, ok := lanes[lane]; !ok {
			order = append(order, lane)
		}
		lanes[lane] = append(lanes[lane], i)
	}

	batchCtx := ctx
	if u.opt.BatchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, u.opt.BatchTimeout)
		defer cancel()
	}

	var g errgroup.Group
	g.SetLimit(u.opt.Concurrency)
	for _, lane := range order {
		idxs := lanes[lane]
		g.Go(func() error {
			for _, i := range idxs {
				if err := batchCtx.Err(); err != nil {
					out.Events[i] = dto.EventResult{
						Index:   i,
						EventID: parsed[i].EventID,
						SteamID: parsed[i].SteamID,
						Status:  dto.StatusSkipped,
						Error:   err.Error(),
					}
					u.metrics.ObserveIngestEvent(string(dto.StatusSkipped))
					continue
				}
				// a started event runs to completion past the deadline
				out.Events[i] = u.process(context.WithoutCancel(batchCtx), i, parsed[i])
				u.metrics.ObserveIngestEvent(string(out.Events[i].Status))
			}
			return nil
		})
	}
	_ = g.Wait()

	out.Tally()
	u.metrics.ObserveIngestBatch("processed")
	logger.WithFields(map[string]any{
		"total":     out.Total,
		"accepted":  out.Accepted,
		"duplicate": out.Duplicate,
		"invalid":   out.Invalid,
		"failed":    out.Failed,
		"skipped":   out.Skipped,
	}).Info("damage batch ingested")
	return out, nil
}

// laneKey names the wallet an event credits. The user id is not known
// before the user row is resolved, so the steam id stands in for it.
func (u *DamageUsecase) laneKey(ev DamageEvent) string {
	tier, _ := u.resolver.Tiers().Lookup(ev.ServerCode)
	server := "-"
	if tier.ServerID != nil {
		server = strconv.FormatInt(*tier.ServerID, 10)
	}
	return ev.SteamID + "|" + server
}

func (u *DamageUsecase) toEvent(in dto.DamageEventInput) (DamageEvent, error) {
	if err := validate.Struct(&in); err != nil {
		return DamageEvent{}, fmt.Errorf("%w: %s", ErrInvalidEvent, strings.Join(validation.FormatValidationError(err), ", "))
	}
	damage := *in.Damage
	if math.IsNaN(damage) || math.IsInf(damage, 0) {
		return DamageEvent{}, fmt.Errorf("%w: damage must be finite", ErrInvalidEvent)
	}

	ev := DamageEvent{
		EventID:    strings.TrimSpace(in.EventID),
		SteamID:    strings.TrimSpace(in.SteamID),
		Damage:     damage,
		ServerCode: strings.TrimSpace(in.ServerID),
	}
	if ev.SteamID == "" {
		return DamageEvent{}, fmt.Errorf("%w: steam_id is required", ErrInvalidEvent)
	}
	if in.ObservedAt != nil {
		ev.ObservedAt = in.ObservedAt.UTC()
	}
	if ev.EventID == "" {
		ev.EventID = DeriveEventID(ev)
	}
	if ev.ObservedAt.IsZero() {
		ev.ObservedAt = u.now().UTC()
	}
	return ev, nil
}

// DeriveEventID names an event that arrived without an id. Events that
// carry observed_at get a stable id so a resend is recognised; without a
// timestamp two identical hits cannot be told apart from a resend, so
// each gets a fresh id.
func DeriveEventID(ev DamageEvent) string {
	if ev.ObservedAt.IsZero() {
		return uuid.NewString()
	}
	name := strings.Join([]string{
		ev.SteamID,
		strconv.FormatFloat(ev.Damage, 'f', -1, 64),
		strings.ToUpper(ev.ServerCode),
		ev.ObservedAt.UTC().Format(time.RFC3339Nano),
	}, "|")
	return uuid.NewSHA1(eventNamespace, []byte(name)).String()
}

func (u *DamageUsecase) process(ctx context.Context, idx int, ev DamageEvent) dto.EventResult {
	res := dto.EventResult{Index: idx, EventID: ev.EventID, SteamID: ev.SteamID}
	fail := func(stage string, err error) dto.EventResult {
		res.Status = dto.StatusFailed
		res.Error = err.Error()
		errMsg := err.Error()
		logger.WriteLogToFile("failed", "DamageUsecase."+stage, ev, &errMsg)
		logger.WithError(err).WithFields(map[string]any{
			"event_id": ev.EventID,
			"steam_id": ev.SteamID,
			"stage":    stage,
		}).Warn("damage event failed")
		return res
	}

	user, err := u.users.FindOrCreateBySteamID(ctx, ev.SteamID)
	if err != nil {
		return fail("User", err)
	}

	stored, created, err := u.record(ctx, user.ID, ev)
	if err != nil {
		return fail("Audit", err)
	}

	// a replay keeps the tier the event was first rewarded under
	tier, _ := u.resolver.Tiers().Lookup(stored.TierCode)
	res.TierCode = stored.TierCode
	res.CurrencyAmount = stored.CurrencyAmount.StringFixed(u.opt.CurrencyDecimals)
	res.DroppedItem = stored.DroppedItem

	if stored.CurrencyAmount.IsPositive() {
		key := ledger.WalletKey{
			UserID:     user.ID,
			GameID:     u.opt.GameID,
			ServerID:   tier.ServerID,
			CurrencyID: u.opt.CurrencyID,
		}
		credit, err := u.ledger.Credit(ctx, key, stored.CurrencyAmount, model.TxReward, ev.EventID)
		if err != nil {
			return fail("Credit", err)
		}
		res.TransactionID = credit.Transaction.ID
		if credit.Applied {
			f, _ := stored.CurrencyAmount.Float64()
			u.metrics.AddRewardCurrency(f)
		}
	}

	if created && stored.DroppedItem != "" {
		u.metrics.ObserveDrop(stored.TierCode)
		u.enqueueGrant(ctx, user.ID, ev, stored.DroppedItem)
	}

	if created {
		res.Status = dto.StatusAccepted
	} else {
		res.Status = dto.StatusDuplicate
	}
	return res
}

// record returns the audit row for ev, drawing a reward only for events
// not seen before so replays leave the random sequence untouched.
func (u *DamageUsecase) record(ctx context.Context, userID int64, ev DamageEvent) (model.DamageLog, bool, error) {
	prev, err := u.logs.FindByEventID(ctx, ev.EventID)
	if err != nil {
		return model.DamageLog{}, false, err
	}
	if prev != nil {
		return *prev, false, nil
	}

	rw := u.resolver.Resolve(ev.Damage, ev.ServerCode)
	if !rw.KnownTier {
		logger.Debugf("unknown server tier %q, using %s", ev.ServerCode, rw.Tier.Code)
	}
	return u.logs.InsertOnce(ctx, model.DamageLog{
		EventID:        ev.EventID,
		UserID:         userID,
		SteamID:        ev.SteamID,
		Damage:         ev.Damage,
		ServerCode:     ev.ServerCode,
		TierCode:       rw.Tier.Code,
		CurrencyAmount: rw.CurrencyAmount,
		DroppedItem:    rw.DroppedItem,
		ObservedAt:     ev.ObservedAt,
	})
}

func (u *DamageUsecase) enqueueGrant(ctx context.Context, userID int64, ev DamageEvent, itemID string) {
	if u.grants == nil {
		logger.Warnf("no grant queue, dropped item %s for %s not delivered", itemID, ev.SteamID)
		return
	}
	_, err := u.grants.Enqueue(ctx, store.GrantTask{
		GrantID:  ev.EventID,
		UserID:   userID,
		ItemID:   itemID,
		Quantity: 1,
		Source:   "damage",
	})
	if err != nil {
		errMsg := err.Error()
		logger.WriteLogToFile("failed", "DamageUsecase.EnqueueGrant", map[string]any{
			"event_id": ev.EventID,
			"user_id":  userID,
			"item_id":  itemID,
		}, &errMsg)
		logger.WithError(err).WithField("event_id", ev.EventID).Warn("grant enqueue failed")
	}
}
