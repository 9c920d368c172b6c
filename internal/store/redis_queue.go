package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed lua/enqueue_grant.lua
var luaEnqueue string

//go:embed lua/release_and_promote.lua
var luaRelease string

//go:embed lua/dead_letter.lua
var luaDeadLetter string

// GrantTask asks for Quantity of ItemID to be put into a user's online
// storage. GrantID is unique per task; redelivery with the same id is
// ignored both here and in storage.
type GrantTask struct {
	GrantID    string    `json:"grant_id"`
	UserID     int64     `json:"user_id"`
	ItemID     string    `json:"item_id"`
	Quantity   int64     `json:"quantity"`
	Source     string    `json:"source,omitempty"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type EnqueueResult int

const (
	EnqueueDuplicate EnqueueResult = -1
	EnqueueWaiting   EnqueueResult = 0
	EnqueueReady     EnqueueResult = 1
)

type QueueOptions struct {
	ReadyKey      string
	DeadLetterKey string
	DedupTTL      time.Duration
}

// GrantQueue is a per-user FIFO of grant tasks in Redis. A user appears
// on the ready list at most once, so one processor works a user's queue
// at a time and grants land in enqueue order.
type GrantQueue struct {
	rdb            redis.UniversalClient
	scrEnqueue     *redis.Script
	scrRelease     *redis.Script
	scrDeadLetter  *redis.Script
	ReadyKey       string
	DeadLetterKey  string
	KeyQueuePrefix string
	KeyLockPrefix  string
	KeySeenPrefix  string
	DedupTTL       time.Duration
}

func NewGrantQueue(rdb redis.UniversalClient, opt QueueOptions) *GrantQueue {
	q := &GrantQueue{
		rdb:            rdb,
		scrEnqueue:     redis.NewScript(luaEnqueue),
		scrRelease:     redis.NewScript(luaRelease),
		scrDeadLetter:  redis.NewScript(luaDeadLetter),
		ReadyKey:       "ready:grant",
		DeadLetterKey:  "dlq:grant",
		KeyQueuePrefix: "q:grant",
		KeyLockPrefix:  "lock:grant",
		KeySeenPrefix:  "seen:grant",
		DedupTTL:       72 * time.Hour,
	}
	if opt.ReadyKey != "" {
		q.ReadyKey = opt.ReadyKey
	}
	if opt.DeadLetterKey != "" {
		q.DeadLetterKey = opt.DeadLetterKey
	}
	if opt.DedupTTL > 0 {
		q.DedupTTL = opt.DedupTTL
	}
	return q
}

// Preload loads the scripts so the first Run skips the NOSCRIPT round trip.
func (q *GrantQueue) Preload(ctx context.Context) error {
	for _, s := range []*redis.Script{q.scrEnqueue, q.scrRelease, q.scrDeadLetter} {
		if err := s.Load(ctx, q.rdb).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (q *GrantQueue) keyQueue(user string) string {
	return fmt.Sprintf("%s:{%s}", q.KeyQueuePrefix, user)
}

func (q *GrantQueue) keyLock(user string) string {
	return fmt.Sprintf("%s:{%s}", q.KeyLockPrefix, user)
}

func (q *GrantQueue) keySeen(grantID string) string {
	return fmt.Sprintf("%s:{%s}", q.KeySeenPrefix, grantID)
}

// Enqueue appends the task to the user's queue unless a task with the
// same GrantID was enqueued within DedupTTL.
func (q *GrantQueue) Enqueue(ctx context.Context, task GrantTask) (EnqueueResult, error) {
	if task.GrantID == "" || task.UserID <= 0 || task.ItemID == "" {
		return 0, fmt.Errorf("grant task incomplete: %+v", task)
	}
	if task.Quantity <= 0 {
		task.Quantity = 1
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	b, err := json.Marshal(task)
	if err != nil {
		return 0, err
	}
	user := strconv.FormatInt(task.UserID, 10)
	keys := []string{q.keyQueue(user), q.keyLock(user), q.ReadyKey, q.keySeen(task.GrantID)}
	res, err := q.scrEnqueue.Run(ctx, q.rdb, keys, string(b), q.DedupTTL.Milliseconds()).Int()
	if err != nil {
		return 0, err
	}
	return EnqueueResult(res), nil
}

// ReleaseAndPromote drops the finished head of the user's queue and
// returns how many tasks are still waiting.
func (q *GrantQueue) ReleaseAndPromote(ctx context.Context, user string) (int64, error) {
	keys := []string{q.keyQueue(user), q.keyLock(user), q.ReadyKey}
	return q.scrRelease.Run(ctx, q.rdb, keys).Int64()
}

// Requeue stores the updated head task and puts the user back on the
// ready list for another attempt.
func (q *GrantQueue) Requeue(ctx context.Context, user string, task GrantTask) error {
	b, err := json.Marshal(task)
	if err != nil {
		return err
	}
	qKey := q.keyQueue(user)
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LSet(ctx, qKey, 0, string(b))
		pipe.LPush(ctx, q.ReadyKey, qKey)
		return nil
	})
	return err
}

// DeadLetter parks raw as the user's failed head and moves on.
func (q *GrantQueue) DeadLetter(ctx context.Context, user string, raw string) (int64, error) {
	keys := []string{q.keyQueue(user), q.keyLock(user), q.ReadyKey, q.DeadLetterKey}
	return q.scrDeadLetter.Run(ctx, q.rdb, keys, raw).Int64()
}

// DeadLetters returns up to n parked payloads, oldest first.
func (q *GrantQueue) DeadLetters(ctx context.Context, n int64) ([]string, error) {
	return q.rdb.LRange(ctx, q.DeadLetterKey, 0, n-1).Result()
}

func (q *GrantQueue) Pending(ctx context.Context, user string) (int64, error) {
	return q.rdb.LLen(ctx, q.keyQueue(user)).Result()
}

// ReadyKeyName is the list processors BRPOP.
func (q *GrantQueue) ReadyKeyName() string { return q.ReadyKey }

func (q *GrantQueue) QueueKeyForUser(user string) string { return q.keyQueue(user) }
