package async

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/infrastructure/repository"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/store"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyGranter struct {
	mu       sync.Mutex
	failures int
	calls    []string
}

func (g *flakyGranter) GrantItem(_ context.Context, grantID string, _ int64, _ string, _ int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, grantID)
	if g.failures > 0 {
		g.failures--
		return false, errors.New("storage unavailable")
	}
	return true, nil
}

func setup(t *testing.T, granter Granter, maxAttempts int) (*miniredis.Miniredis, *store.GrantQueue, *Processor) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q := store.NewGrantQueue(rdb, store.QueueOptions{})
	p := NewProcessor(rdb, granter, q, Options{
		MaxAttempts: maxAttempts,
		BRPopBlock:  50 * time.Millisecond,
		RetryDelay:  time.Millisecond,
	})
	return mr, q, p
}

func TestStepDeliversInOrderIntoStorage(t *testing.T) {
	db := testutil.OpenDB(t)
	storage := repository.NewStorageRepository(db, db)
	_, q, p := setup(t, storage, 3)
	ctx := context.Background()

	for _, task := range []store.GrantTask{
		{GrantID: "e1", UserID: 1, ItemID: "ice"},
		{GrantID: "e2", UserID: 1, ItemID: "ice", Quantity: 2},
		{GrantID: "e3", UserID: 2, ItemID: "iron"},
	} {
		_, err := q.Enqueue(ctx, task)
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		handled, err := p.Step(ctx)
		require.NoError(t, err)
		assert.True(t, handled)
	}
	handled, err := p.Step(ctx)
	require.NoError(t, err)
	assert.False(t, handled, "queue is drained")

	qty, err := storage.Quantity(ctx, 1, "ice")
	require.NoError(t, err)
	assert.EqualValues(t, 3, qty)
	qty, err = storage.Quantity(ctx, 2, "iron")
	require.NoError(t, err)
	assert.EqualValues(t, 1, qty)
}

func TestStepRetriesThenSucceeds(t *testing.T) {
	g := &flakyGranter{failures: 2}
	_, q, p := setup(t, g, 5)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, store.GrantTask{GrantID: "e1", UserID: 1, ItemID: "ice"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		handled, err := p.Step(ctx)
		require.NoError(t, err)
		require.True(t, handled)
	}
	assert.Equal(t, []string{"e1", "e1", "e1"}, g.calls)

	n, err := q.Pending(ctx, "1")
	require.NoError(t, err)
	assert.Zero(t, n)
	parked, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, parked)
}

func TestStepDeadLettersAfterMaxAttempts(t *testing.T) {
	g := &flakyGranter{failures: 100}
	_, q, p := setup(t, g, 2)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, store.GrantTask{GrantID: "e1", UserID: 1, ItemID: "ice"})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, store.GrantTask{GrantID: "e2", UserID: 1, ItemID: "iron"})
	require.NoError(t, err)

	_, err = p.Step(ctx)
	require.NoError(t, err)
	_, err = p.Step(ctx)
	require.NoError(t, err)

	parked, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, parked, 1)
	var task store.GrantTask
	require.NoError(t, json.Unmarshal([]byte(parked[0]), &task))
	assert.Equal(t, "e1", task.GrantID)
	assert.Equal(t, 2, task.Attempts)
	assert.Equal(t, "storage unavailable", task.LastError)

	// the next task for the user is ready again
	n, err := q.Pending(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	g.failures = 0
	handled, err := p.Step(ctx)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "e2", g.calls[len(g.calls)-1])
}

func TestStepParksUndecodablePayload(t *testing.T) {
	mr, q, p := setup(t, &flakyGranter{}, 3)
	ctx := context.Background()

	_, _ = mr.Push(q.QueueKeyForUser("9"), "{not json")
	_, _ = mr.Lpush(q.ReadyKeyName(), q.QueueKeyForUser("9"))

	handled, err := p.Step(ctx)
	require.NoError(t, err)
	assert.True(t, handled)

	parked, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"{not json"}, parked)
}

func TestRunStopsOnCancel(t *testing.T) {
	_, _, p := setup(t, &flakyGranter{}, 3)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not stop")
	}
}

func TestParseUserFromQueueKey(t *testing.T) {
	u, ok := parseUserFromQueueKey("q:grant:{42}")
	assert.True(t, ok)
	assert.Equal(t, "42", u)

	_, ok = parseUserFromQueueKey("q:grant:{}")
	assert.False(t, ok)
	_, ok = parseUserFromQueueKey("nobraces")
	assert.False(t, ok)
}
