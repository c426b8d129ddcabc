package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/vigilo-edu/vigilo-go-api/internal/dto"
	"github.com/vigilo-edu/vigilo-go-api/internal/models"
	"github.com/vigilo-edu/vigilo-go-api/internal/service"
	"github.com/vigilo-edu/vigilo-go-api/internal/utils"
)

// PolicyHandler manages per-quiz security policy endpoints.
type PolicyHandler struct {
	service service.PolicyService
	logger  zerolog.Logger
}

// NewPolicyHandler builds a policy handler instance.
func NewPolicyHandler(service service.PolicyService, logger zerolog.Logger) *PolicyHandler {
	return &PolicyHandler{
		service: service,
		logger:  logger.With().Str("component", "policy_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *PolicyHandler) Register(router fiber.Router) {
	router.Put("/:quizId/policy", h.upsert)
	router.Get("/:quizId/policy", h.get)
}

func (h *PolicyHandler) upsert(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "quizId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid quiz id")
	}

	var payload dto.PolicyUpsertRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	policy, err := h.service.Upsert(c.Context(), quizID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "security policy saved", policy)
}

func (h *PolicyHandler) get(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "quizId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid quiz id")
	}

	policy, err := h.service.GetByQuizID(c.Context(), quizID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "security policy retrieved", policy)
}

func (h *PolicyHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrPolicyNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "security policy not found")
	case errors.Is(err, models.ErrInvalidPolicy):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
