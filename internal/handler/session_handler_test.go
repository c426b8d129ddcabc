package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vigilo-edu/vigilo-go-api/internal/config"
	"github.com/vigilo-edu/vigilo-go-api/internal/dto"
	"github.com/vigilo-edu/vigilo-go-api/internal/handler"
	"github.com/vigilo-edu/vigilo-go-api/internal/models"
	"github.com/vigilo-edu/vigilo-go-api/internal/repository"
	"github.com/vigilo-edu/vigilo-go-api/internal/router"
	"github.com/vigilo-edu/vigilo-go-api/internal/security"
	"github.com/vigilo-edu/vigilo-go-api/internal/service"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func setupSecurityApp(t *testing.T, userID uint, role string) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.SecurityPolicy{},
		&models.SecuritySession{},
		&models.SecurityViolation{},
		&models.TeacherVerification{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	sessionRepo := repository.NewSessionRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	engine := security.NewEngine(sessionRepo, verificationRepo, nil, logger)
	verifier := security.NewVerifier(30 * time.Minute)

	sessionService := service.NewSessionService(engine, sessionRepo, policyRepo, validate, logger)
	policyService := service.NewPolicyService(policyRepo, validate, logger)
	verificationService := service.NewVerificationService(verifier, verificationRepo, policyRepo, validate, logger)
	analyticsService := service.NewAnalyticsService(analyticsRepo, nil, 0, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		SessionHandler:      handler.NewSessionHandler(sessionService, validate, logger),
		PolicyHandler:       handler.NewPolicyHandler(policyService, logger),
		VerificationHandler: handler.NewVerificationHandler(verificationService, logger),
		AnalyticsHandler:    handler.NewAnalyticsHandler(analyticsService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", userID)
			c.Locals("user_role", role)
			return c.Next()
		},
	})

	return app, db
}

func seedPolicy(t *testing.T, db *gorm.DB, policy models.SecurityPolicy) {
	t.Helper()
	policy.ApplyDefaults()
	require.NoError(t, db.Create(&policy).Error)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}) (*http.Response, apiEnvelope) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope apiEnvelope
	require.NoError(t, json.Unmarshal(raw, &envelope))
	return resp, envelope
}

func startSession(t *testing.T, app *fiber.App, quizID uint) dto.SessionResponse {
	t.Helper()

	resp, envelope := doJSON(t, app, http.MethodPost, "/api/v2/security/sessions", dto.SessionStartRequest{
		QuizID:            quizID,
		DeviceFingerprint: "fp-0123456789",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var session dto.SessionResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &session))
	require.NotEmpty(t, session.ID)
	return session
}

func TestSessionHandlerStartAndReportBehavior(t *testing.T) {
	app, db := setupSecurityApp(t, 42, "student")
	seedPolicy(t, db, models.SecurityPolicy{QuizID: 7, DetectTabSwitch: true})

	session := startSession(t, app, 7)

	resp, envelope := doJSON(t, app, http.MethodPost, "/api/v2/security/sessions/"+session.ID+"/events", dto.BehaviorEventRequest{Type: "tab_change"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var decision dto.DecisionResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &decision))
	require.Equal(t, "warning", decision.Action)
	require.NotNil(t, decision.Violation)
	require.Equal(t, "tab_change", decision.Violation.Type)
}

func TestSessionHandlerStartWithoutPolicy(t *testing.T) {
	app, _ := setupSecurityApp(t, 42, "student")

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v2/security/sessions", dto.SessionStartRequest{
		QuizID:            9,
		DeviceFingerprint: "fp-0123456789",
	})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSessionHandlerLocationViolationFlow(t *testing.T) {
	app, db := setupSecurityApp(t, 42, "student")
	lat, lon := 0.0, 0.0
	seedPolicy(t, db, models.SecurityPolicy{
		QuizID:              7,
		GeofencingEnabled:   true,
		AllowedLat:          &lat,
		AllowedLon:          &lon,
		AllowedRadiusMeters: 100,
	})

	session := startSession(t, app, 7)

	resp, envelope := doJSON(t, app, http.MethodPost, "/api/v2/security/sessions/"+session.ID+"/location", dto.LocationEventRequest{Lat: 0, Lon: 0.0012})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var decision dto.DecisionResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &decision))
	require.Equal(t, "warning", decision.Action)
	require.Equal(t, "location", decision.Violation.Type)

	resp, envelope = doJSON(t, app, http.MethodGet, "/api/v2/security/sessions/"+session.ID+"/violations", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var violations []dto.ViolationResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &violations))
	require.Len(t, violations, 1)
}

func TestSessionHandlerCompleteIsIdempotent(t *testing.T) {
	app, db := setupSecurityApp(t, 42, "student")
	seedPolicy(t, db, models.SecurityPolicy{QuizID: 7})

	session := startSession(t, app, 7)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v2/security/sessions/"+session.ID+"/complete", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, envelope := doJSON(t, app, http.MethodPost, "/api/v2/security/sessions/"+session.ID+"/complete", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "session already closed", envelope.Message)
}

func TestSessionHandlerEventAfterTerminationIsNoop(t *testing.T) {
	app, db := setupSecurityApp(t, 42, "student")
	seedPolicy(t, db, models.SecurityPolicy{QuizID: 7, DetectMultiDevice: true})

	session := startSession(t, app, 7)

	resp, envelope := doJSON(t, app, http.MethodPost, "/api/v2/security/sessions/"+session.ID+"/events", dto.BehaviorEventRequest{Type: "multi_login"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var decision dto.DecisionResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &decision))
	require.Equal(t, "termination", decision.Action)

	// Late events against the terminated session are acknowledged, not errors.
	resp, envelope = doJSON(t, app, http.MethodPost, "/api/v2/security/sessions/"+session.ID+"/events", dto.BehaviorEventRequest{Type: "multi_login"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(envelope.Data, &decision))
	require.Equal(t, "none", decision.Action)
	require.Equal(t, "terminated", decision.Status)
}

func TestSessionHandlerResumeRequiresElevatedRole(t *testing.T) {
	app, db := setupSecurityApp(t, 42, "student")
	seedPolicy(t, db, models.SecurityPolicy{QuizID: 7})

	session := startSession(t, app, 7)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v2/security/sessions/"+session.ID+"/resume", nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestSessionHandlerResumeNotSuspended(t *testing.T) {
	app, db := setupSecurityApp(t, 42, "teacher")
	seedPolicy(t, db, models.SecurityPolicy{QuizID: 7})

	session := startSession(t, app, 7)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v2/security/sessions/"+session.ID+"/resume", nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestSessionHandlerUnknownSession(t *testing.T) {
	app, _ := setupSecurityApp(t, 42, "student")

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v2/security/sessions/nope", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
