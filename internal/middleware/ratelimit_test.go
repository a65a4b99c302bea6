package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheckRateLimit(t *testing.T) {
	tests := []struct {
		name string
		env  string
	}{
		{name: "Test Environment Bypass", env: "test"},
		{name: "Development Environment Bypass", env: "development"},
		{name: "Stress Environment Bypass", env: "stress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.env)
			allowed, err := CheckRateLimit(context.Background(), nil, "otp_send", "ip:1", 1, time.Minute)
			assert.NoError(t, err)
			assert.True(t, allowed)
		})
	}

	t.Run("Nil Redis in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		allowed, err := CheckRateLimit(context.Background(), nil, "otp_send", "ip:1", 1, time.Minute)
		assert.ErrorIs(t, err, ErrNoRateLimitStore)
		assert.False(t, allowed)
	})

	t.Run("Counts within window", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		mr, rdb := newTestRedis(t)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			allowed, err := CheckRateLimit(ctx, rdb, "otp_send", "ip:1", 3, 10*time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should pass", i+1)
		}
		allowed, err := CheckRateLimit(ctx, rdb, "otp_send", "ip:1", 3, 10*time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		assert.Equal(t, 10*time.Minute, mr.TTL("rl:otp_send:ip:1"))

		mr.FastForward(11 * time.Minute)
		allowed, err = CheckRateLimit(ctx, rdb, "otp_send", "ip:1", 3, 10*time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("Bypass in test mode", func(t *testing.T) {
		app := fiber.New()
		t.Setenv("APP_ENV", "test")
		app.Get("/test", RateLimit(nil, 1, time.Minute), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("FailOpen with nil redis in production", func(t *testing.T) {
		app := fiber.New()
		t.Setenv("APP_ENV", "production")
		app.Get("/test", RateLimit(nil, 1, time.Minute), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("FailClosed with nil redis in production", func(t *testing.T) {
		app := fiber.New()
		t.Setenv("APP_ENV", "production")
		app.Get("/sensitive", RateLimitWithPolicy(nil, 1, time.Minute, FailClosed), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sensitive", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("Keys by user when authenticated", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		mr, rdb := newTestRedis(t)

		app := fiber.New()
		app.Post("/posts", func(c *fiber.Ctx) error {
			c.Locals("userID", c.Get("X-User"))
			return c.Next()
		}, RateLimit(rdb, 1, time.Minute, "create_post"), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusCreated)
		})

		send := func(user string) int {
			req := httptest.NewRequest(http.MethodPost, "/posts", nil)
			req.Header.Set("X-User", user)
			resp, err := app.Test(req)
			require.NoError(t, err)
			_ = resp.Body.Close()
			return resp.StatusCode
		}

		assert.Equal(t, http.StatusCreated, send("alice"))
		assert.Equal(t, http.StatusTooManyRequests, send("alice"))
		assert.Equal(t, http.StatusCreated, send("bob"))
		assert.True(t, mr.Exists("rl:create_post:user:alice"))
	})
}
