package async

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/metrics"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/store"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Granter delivers items into a user's online storage.
type Granter interface {
	GrantItem(ctx context.Context, grantID string, userID int64, itemID string, qty int64) (bool, error)
}

type Options struct {
	MaxAttempts int
	BRPopBlock  time.Duration
	DBExecTO    time.Duration
	RetryDelay  time.Duration
}

// Processor drains the grant queue: it takes a ready user, applies the
// head task and releases the user so the next task becomes visible.
type Processor struct {
	Rdb     redis.UniversalClient
	Granter Granter
	Queue   *store.GrantQueue
	opt     Options
	metrics *metrics.EconomyMetrics
}

func NewProcessor(rdb redis.UniversalClient, granter Granter, q *store.GrantQueue, opt Options) *Processor {
	o := Options{
		MaxAttempts: 5,
		BRPopBlock:  5 * time.Second,
		DBExecTO:    2 * time.Second,
		RetryDelay:  20 * time.Millisecond,
	}
	if opt.MaxAttempts > 0 {
		o.MaxAttempts = opt.MaxAttempts
	}
	if opt.BRPopBlock > 0 {
		o.BRPopBlock = opt.BRPopBlock
	}
	if opt.DBExecTO > 0 {
		o.DBExecTO = opt.DBExecTO
	}
	if opt.RetryDelay > 0 {
		o.RetryDelay = opt.RetryDelay
	}
	return &Processor{Rdb: rdb, Granter: granter, Queue: q, opt: o, metrics: metrics.Economy()}
}

func (p *Processor) Run(ctx context.Context) {
	logger.Info("grant processor started")
	defer logger.Info("grant processor stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, err := p.Step(ctx); err != nil && ctx.Err() == nil {
			logger.Warnf("grant processor: %v", err)
			time.Sleep(p.opt.RetryDelay)
		}
	}
}

// Step waits up to BRPopBlock for one ready user and handles its head
// task. It reports whether a task was handled.
func (p *Processor) Step(ctx context.Context) (bool, error) {
	readyKey := p.Queue.ReadyKeyName()

	res, err := p.Rdb.BRPop(ctx, p.opt.BRPopBlock, readyKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(res) != 2 {
		return false, nil
	}
	qKey := res[1]
	user, ok := parseUserFromQueueKey(qKey)
	if !ok {
		logger.Warnf("cannot parse user from key=%s", qKey)
		return false, nil
	}

	head, err := p.Rdb.LIndex(ctx, qKey, 0).Result()
	if errors.Is(err, redis.Nil) || head == "" {
		return false, nil
	}
	if err != nil {
		// put the user back so the task is not stranded
		_ = p.Rdb.LPush(context.Background(), readyKey, qKey).Err()
		return false, err
	}

	var task store.GrantTask
	if err := json.Unmarshal([]byte(head), &task); err != nil {
		logger.Errorf("grant decode err user=%s head=%q: %v", user, head, err)
		_, _ = p.Queue.DeadLetter(context.Background(), user, head)
		p.metrics.ObserveGrant("dead_letter")
		return true, nil
	}

	dbCtx, cancel := context.WithTimeout(context.Background(), p.opt.DBExecTO)
	applied, err := p.Granter.GrantItem(dbCtx, task.GrantID, task.UserID, task.ItemID, task.Quantity)
	cancel()
	if err != nil {
		p.fail(user, task, head, err)
		return true, nil
	}

	if applied {
		p.metrics.ObserveGrant("applied")
	} else {
		p.metrics.ObserveGrant("replayed")
	}
	logger.WithFields(map[string]any{
		"grant_id": task.GrantID,
		"user_id":  task.UserID,
		"item_id":  task.ItemID,
		"applied":  applied,
	}).Debug("grant delivered")

	if _, err := p.Queue.ReleaseAndPromote(context.Background(), user); err != nil {
		logger.Warnf("release warn user=%s: %v", user, err)
	}
	return true, nil
}

func (p *Processor) fail(user string, task store.GrantTask, raw string, cause error) {
	task.Attempts++
	task.LastError = cause.Error()
	logger.Errorf("grant err user=%s grant=%s item=%s attempt=%d: %v",
		user, task.GrantID, task.ItemID, task.Attempts, cause)

	if task.Attempts >= p.opt.MaxAttempts {
		b, err := json.Marshal(task)
		if err == nil {
			raw = string(b)
		}
		errMsg := cause.Error()
		logger.WriteLogToFile("failed", "GrantProcessor.DeadLetter", task, &errMsg)
		if _, err := p.Queue.DeadLetter(context.Background(), user, raw); err != nil {
			logger.Warnf("dead letter warn user=%s: %v", user, err)
		}
		p.metrics.ObserveGrant("dead_letter")
		return
	}

	p.metrics.ObserveGrant("retry")
	if err := p.Queue.Requeue(context.Background(), user, task); err != nil {
		logger.Warnf("requeue warn user=%s: %v", user, err)
	}
	time.Sleep(p.opt.RetryDelay)
}

func parseUserFromQueueKey(qKey string) (string, bool) {
	// "<prefix>:{<user>}"
	i := strings.Index(qKey, "{")
	j := strings.LastIndex(qKey, "}")
	if i == -1 || j == -1 || j <= i+1 {
		return "", false
	}
	return qKey[i+1 : j], true
}
