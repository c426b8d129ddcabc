package utils

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, handler fiber.Handler) (*http.Response, APIResponse) {
	t.Helper()

	app := fiber.New()
	app.Get("/", handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload APIResponse
	require.NoError(t, json.Unmarshal(body, &payload))
	return resp, payload
}

func TestSendSuccessDefaultsMessage(t *testing.T) {
	resp, payload := performRequest(t, func(c *fiber.Ctx) error {
		return SendSuccess(c, "", fiber.Map{"id": "abc"})
	})

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, payload.Success)
	require.Equal(t, "success", payload.Message)
	require.NotNil(t, payload.Data)
}

func TestSendSuccessWithStatusUsesProvidedCode(t *testing.T) {
	resp, payload := performRequest(t, func(c *fiber.Ctx) error {
		return SendSuccessWithStatus(c, fiber.StatusCreated, "created", nil)
	})

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.True(t, payload.Success)
	require.Equal(t, "created", payload.Message)
}

func TestSendErrorSetsFailureFlag(t *testing.T) {
	resp, payload := performRequest(t, func(c *fiber.Ctx) error {
		return SendError(c, fiber.StatusConflict, "session already closed")
	})

	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.False(t, payload.Success)
	require.Equal(t, "session already closed", payload.Message)
}

func TestFailIncludesDetails(t *testing.T) {
	resp, payload := performRequest(t, func(c *fiber.Ctx) error {
		return Fail(c, fiber.StatusUnauthorized, "authentication required", fiber.Map{"hint": "missing token"})
	})

	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.False(t, payload.Success)
	require.Equal(t, "authentication required", payload.Message)
	require.NotNil(t, payload.Details)
}
