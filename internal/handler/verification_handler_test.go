package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/vigilo-edu/vigilo-go-api/internal/dto"
	"github.com/vigilo-edu/vigilo-go-api/internal/models"
)

func TestVerificationHandlerRecordsPresence(t *testing.T) {
	app, db := setupSecurityApp(t, 9, "teacher")
	lat, lon := 0.0, 0.0
	seedPolicy(t, db, models.SecurityPolicy{
		QuizID:              7,
		GeofencingEnabled:   true,
		AllowedLat:          &lat,
		AllowedLon:          &lon,
		AllowedRadiusMeters: 100,
	})

	resp, envelope := doJSON(t, app, http.MethodPost, "/api/v2/security/verification", dto.VerificationRequest{QuizID: 7, Lat: 0, Lon: 0.0005})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var verification dto.VerificationResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &verification))
	require.True(t, verification.Verified)
	require.False(t, verification.Expired)

	resp, envelope = doJSON(t, app, http.MethodGet, "/api/v2/security/verification/7", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(envelope.Data, &verification))
	require.True(t, verification.Verified)
}

func TestVerificationHandlerWithoutGeofence(t *testing.T) {
	app, db := setupSecurityApp(t, 9, "teacher")
	seedPolicy(t, db, models.SecurityPolicy{QuizID: 7})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v2/security/verification", dto.VerificationRequest{QuizID: 7, Lat: 0, Lon: 0})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestVerificationHandlerNoGrantRecorded(t *testing.T) {
	app, _ := setupSecurityApp(t, 9, "teacher")

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v2/security/verification/7", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAnalyticsHandlerRequiresAdmin(t *testing.T) {
	app, _ := setupSecurityApp(t, 42, "teacher")

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v2/security/analytics/summary", nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAnalyticsHandlerSummary(t *testing.T) {
	app, db := setupSecurityApp(t, 1, "admin")
	seedPolicy(t, db, models.SecurityPolicy{QuizID: 7})

	resp, envelope := doJSON(t, app, http.MethodGet, "/api/v2/security/analytics/summary", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary dto.SecurityAnalyticsResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &summary))
	require.Zero(t, summary.TotalSessions)
	require.False(t, summary.CacheHit)
}
