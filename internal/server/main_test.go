package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bloodconnect/internal/config"
	"bloodconnect/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "server-test-secret-at-least-32-characters"

func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		Env:            "test",
		JWTSecret:      testJWTSecret,
		AllowedOrigins: "http://localhost:8081",
		FeatureFlags:   "demo_posts=on",
		OTPTTLSeconds:  300,
		OTPMaxAttempts: 5,
		OTPDevEcho:     true,
	}
}

// newTestServer wires a full Server over in-memory sqlite and miniredis.
func newTestServer(t *testing.T, cfg *config.Config) (*Server, *fiber.App) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:srv_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	return s, s.App()
}

// doJSON sends body as JSON and decodes the JSON response into a map.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// signIn runs the OTP flow for phone and returns the token and uid.
func signIn(t *testing.T, app *fiber.App, phone string) (string, string) {
	t.Helper()

	status, sent := doJSON(t, app, http.MethodPost, "/api/auth/otp/send", "", map[string]string{"phone": phone})
	require.Equal(t, http.StatusAccepted, status, sent)
	require.NotEmpty(t, sent["code"])

	status, verified := doJSON(t, app, http.MethodPost, "/api/auth/otp/verify", "", map[string]string{
		"verificationId": sent["verificationId"].(string),
		"code":           sent["code"].(string),
	})
	require.Equal(t, http.StatusOK, status, verified)

	identity := verified["identity"].(map[string]any)
	return verified["token"].(string), identity["uid"].(string)
}
