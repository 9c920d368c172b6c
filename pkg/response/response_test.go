package response

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMeta(t *testing.T) {
	assert.Equal(t, &Meta{Page: 1, Limit: 10, Total: 25, TotalPage: 3}, NewMeta(1, 10, 25))
	assert.Equal(t, 0, NewMeta(1, 10, 0).TotalPage)
	assert.Equal(t, 0, NewMeta(1, 0, 5).TotalPage)
}

type item struct {
	ID string `json:"id"`
}

func get(t *testing.T, app *fiber.App, path string) (int, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestWriters(t *testing.T) {
	app := fiber.New()
	app.Get("/one", func(c *fiber.Ctx) error {
		return WriteSuccess(c, fiber.StatusCreated, "made", item{ID: "a"})
	})
	app.Get("/list", func(c *fiber.Ctx) error {
		return WriteSuccessWithMeta(c, fiber.StatusOK, "listed", []item{{ID: "a"}}, NewMeta(2, 1, 2))
	})
	app.Get("/err", func(c *fiber.Ctx) error {
		return WriteError(c, fiber.StatusConflict, "nope", "taken")
	})

	status, raw := get(t, app, "/one")
	assert.Equal(t, fiber.StatusCreated, status)
	var one Envelope[item]
	require.NoError(t, json.Unmarshal(raw, &one))
	assert.True(t, one.Success)
	assert.Equal(t, "a", one.Data.ID)
	assert.Nil(t, one.Meta)

	_, raw = get(t, app, "/list")
	var list Envelope[[]item]
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, 2, list.Meta.TotalPage)

	status, raw = get(t, app, "/err")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.NotContains(t, string(raw), `"data"`)
	var failed Envelope[item]
	require.NoError(t, json.Unmarshal(raw, &failed))
	assert.False(t, failed.Success)
	assert.Equal(t, "taken", failed.Error)
}
