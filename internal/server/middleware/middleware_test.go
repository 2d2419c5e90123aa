package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/ratelimit"
)

// testApp повторяет минимальный ErrorHandler, чтобы не зависеть от пакета server.
func testApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			switch {
			case errors.Is(err, common.ErrUnauthorized):
				return c.SendStatus(fiber.StatusUnauthorized)
			case errors.Is(err, common.ErrInvalidPlayerID):
				return c.SendStatus(fiber.StatusBadRequest)
			case errors.Is(err, common.ErrRateLimited):
				return c.SendStatus(fiber.StatusTooManyRequests)
			}
			return fiber.DefaultErrorHandler(c, err)
		},
	})
	app.Use(RequestLogger(), Recover())
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.SendString(PlayerID(c))
	})
	app.Get("/", handlers...)
	return app
}

func send(t *testing.T, app *fiber.App, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestBearerToken(t *testing.T) {
	app := testApp(BearerToken("secret", "gateway"))

	assert.Equal(t, http.StatusUnauthorized, send(t, app, nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, send(t, app, map[string]string{"Authorization": "secret"}).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, send(t, app, map[string]string{"Authorization": "Bearer wrong"}).StatusCode)
	assert.Equal(t, http.StatusOK, send(t, app, map[string]string{"Authorization": "Bearer secret"}).StatusCode)
}

func TestBearerTokenEmptyExpectedRejectsAll(t *testing.T) {
	app := testApp(BearerToken("", "gateway"))
	assert.Equal(t, http.StatusUnauthorized, send(t, app, map[string]string{"Authorization": "Bearer "}).StatusCode)
}

func TestPlayerContext(t *testing.T) {
	app := testApp(PlayerContext())

	assert.Equal(t, http.StatusBadRequest, send(t, app, nil).StatusCode)
	resp := send(t, app, map[string]string{HeaderPlayerID: "  steam:42  "})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "steam:42", string(body))
}

func TestAdminKey(t *testing.T) {
	var gotIP string
	app := testApp(AdminKey(func(key, ip string) error {
		gotIP = ip
		if key == "ok" {
			return nil
		}
		return common.ErrUnauthorized
	}))

	assert.Equal(t, http.StatusUnauthorized, send(t, app, nil).StatusCode)
	assert.Empty(t, gotIP, "без ключа authorize не вызывается")
	assert.Equal(t, http.StatusUnauthorized, send(t, app, map[string]string{HeaderAdminKey: "bad"}).StatusCode)
	assert.Equal(t, http.StatusOK, send(t, app, map[string]string{HeaderAdminKey: "ok"}).StatusCode)
	assert.NotEmpty(t, gotIP)
}

func TestRequestIDPropagation(t *testing.T) {
	app := testApp()

	given := uuid.NewString()
	resp := send(t, app, map[string]string{HeaderRequestID: given})
	assert.Equal(t, given, resp.Header.Get(HeaderRequestID))

	resp = send(t, app, map[string]string{HeaderRequestID: "not-a-uuid"})
	_, err := uuid.Parse(resp.Header.Get(HeaderRequestID))
	assert.NoError(t, err)
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	app := testApp(func(*fiber.Ctx) error { panic("boom") })
	assert.Equal(t, http.StatusInternalServerError, send(t, app, nil).StatusCode)
}

func TestLimitUsesPlayerKey(t *testing.T) {
	rl := ratelimit.New(1, time.Minute)
	defer rl.Close()
	app := testApp(PlayerContext(), Limit(rl))

	assert.Equal(t, http.StatusOK, send(t, app, map[string]string{HeaderPlayerID: "a"}).StatusCode)
	resp := send(t, app, map[string]string{HeaderPlayerID: "a"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))
	assert.Equal(t, http.StatusOK, send(t, app, map[string]string{HeaderPlayerID: "b"}).StatusCode)
}
