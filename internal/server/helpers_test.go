package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bloodconnect/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewValidationError("bad"), http.StatusBadRequest},
		{models.NewUnauthorizedError("no"), http.StatusUnauthorized},
		{models.NewForbiddenError("no"), http.StatusForbidden},
		{models.NewNotFoundError("Post", "p1"), http.StatusNotFound},
		{models.NewConflictError("dup"), http.StatusConflict},
		{models.NewRateLimitedError("slow down"), http.StatusTooManyRequests},
		{models.NewUnavailableError("down", nil), http.StatusServiceUnavailable},
		{models.NewInternalError(errors.New("x")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForError(tt.err), tt.err.Error())
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 20, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=-1&offset=-4", 20, 0},
		{"?limit=1000", maxPaginationLimit, 0},
	}

	for _, tt := range tests {
		app := fiber.New()
		var got Pagination
		app.Get("/", func(c *fiber.Ctx) error {
			got = parsePagination(c, 20)
			return nil
		})
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, tt.wantLimit, got.Limit, tt.query)
		assert.Equal(t, tt.wantOffset, got.Offset, tt.query)
	}
}

func TestSocketErrorFrameEscapesMessage(t *testing.T) {
	frame := socketErrorFrame(errors.New("limit \"reached\"\n"))
	require.NotNil(t, frame)

	var env struct {
		Type    string `json:"type"`
		Payload string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, "error", env.Type)
	assert.Equal(t, "limit \"reached\"\n", env.Payload)
}
