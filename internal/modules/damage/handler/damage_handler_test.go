package handler

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/infrastructure/repository"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/ledger"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/damage/dto"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/damage/usecase"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/reward"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/testutil"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zeroRand struct{}

func (zeroRand) Float64() float64 { return 0 }

func newApp(t *testing.T, password string) *fiber.App {
	t.Helper()
	db := testutil.OpenDB(t)
	drops, err := reward.NewDropTable(reward.DefaultEntries())
	require.NoError(t, err)
	uc := usecase.NewDamageUsecase(
		repository.NewUserRepository(db, db),
		repository.NewDamageRepository(db, db),
		reward.NewResolver(drops, reward.DefaultTierTable(), 2, zeroRand{}),
		ledger.New(repository.NewWalletRepository(db, db)),
		nil,
		usecase.Options{GameID: 1, CurrencyID: 1, CurrencyDecimals: 2, BatchTimeout: 5 * time.Second},
	)
	app := fiber.New()
	app.Post("/api/damage_logs", NewDamageHandler(uc, password).Ingest)
	return app
}

type envelope = response.Envelope[dto.BatchResult]

func post(t *testing.T, app *fiber.App, body string, headers map[string]string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/damage_logs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func TestIngestReturnsPerEventStatuses(t *testing.T) {
	app := newApp(t, "")

	status, env := post(t, app, `[
		{"steam_id":"p1","damage":100,"server_id":"S","event_id":"h1"},
		{"steam_id":"p2","server_id":"S","event_id":"h2"},
		{"steam_id":"p1","damage":50,"server_id":"nope","event_id":"h3"}
	]`, nil)

	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)
	assert.Equal(t, 2, env.Data.Accepted)
	assert.Equal(t, 1, env.Data.Invalid)
	require.Len(t, env.Data.Events, 3)
	assert.Equal(t, "80.00", env.Data.Events[0].CurrencyAmount)
	assert.Equal(t, dto.StatusInvalid, env.Data.Events[1].Status)
	assert.Equal(t, "50.00", env.Data.Events[2].CurrencyAmount)
}

func TestIngestRejectsNonArrayAndEmptyBodies(t *testing.T) {
	app := newApp(t, "")

	for _, body := range []string{`{"steam_id":"p1","damage":1}`, `[]`, `null`, `not json`} {
		status, env := post(t, app, body, nil)
		assert.Equal(t, fiber.StatusBadRequest, status, body)
		assert.False(t, env.Success, body)
	}
}

func TestIngestPasswordGuard(t *testing.T) {
	app := newApp(t, "s3cret")
	body := `[{"steam_id":"p1","damage":1,"event_id":"pw"}]`

	status, env := post(t, app, body, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.False(t, env.Success)

	status, _ = post(t, app, body, map[string]string{PasswordHeader: "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, env = post(t, app, body, map[string]string{PasswordHeader: "s3cret"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, env.Data.Accepted)
}
