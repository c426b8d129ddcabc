package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/vigilo-edu/vigilo-go-api/internal/dto"
	"github.com/vigilo-edu/vigilo-go-api/internal/geo"
	"github.com/vigilo-edu/vigilo-go-api/internal/security"
	"github.com/vigilo-edu/vigilo-go-api/internal/service"
	"github.com/vigilo-edu/vigilo-go-api/internal/utils"
)

// VerificationHandler manages teacher presence verification endpoints.
type VerificationHandler struct {
	service service.VerificationService
	logger  zerolog.Logger
}

// NewVerificationHandler builds a verification handler instance.
func NewVerificationHandler(service service.VerificationService, logger zerolog.Logger) *VerificationHandler {
	return &VerificationHandler{
		service: service,
		logger:  logger.With().Str("component", "verification_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *VerificationHandler) Register(router fiber.Router) {
	router.Post("", h.verify)
	router.Get("/:quizId", h.latest)
}

func (h *VerificationHandler) verify(c *fiber.Ctx) error {
	var payload dto.VerificationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	teacherID := userIDFromContext(c)
	if teacherID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user identity missing")
	}

	verification, err := h.service.Verify(c.Context(), teacherID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "presence recorded", verification)
}

func (h *VerificationHandler) latest(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "quizId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid quiz id")
	}

	verification, err := h.service.Latest(c.Context(), quizID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "latest verification", verification)
}

func (h *VerificationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrPolicyNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "security policy not configured for quiz")
	case errors.Is(err, service.ErrGeofencingDisabled):
		return utils.SendError(c, fiber.StatusConflict, "quiz has no geofence configured")
	case errors.Is(err, security.ErrVerificationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "no verification recorded for quiz")
	case errors.Is(err, geo.ErrInvalidCoordinate):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
