package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/vigilo-edu/vigilo-go-api/internal/dto"
	"github.com/vigilo-edu/vigilo-go-api/internal/security"
	"github.com/vigilo-edu/vigilo-go-api/internal/service"
	"github.com/vigilo-edu/vigilo-go-api/internal/utils"
)

// SessionHandler manages security session endpoints.
type SessionHandler struct {
	service   service.SessionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSessionHandler builds a session handler instance.
func NewSessionHandler(service service.SessionService, validator *validator.Validate, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. The resume
// route is expected to sit behind a teacher/admin role gate at the router.
func (h *SessionHandler) Register(router fiber.Router, resumeGuard fiber.Handler) {
	router.Post("", h.start)
	router.Get("/:id", h.get)
	router.Get("/:id/violations", h.violations)
	router.Post("/:id/location", h.reportLocation)
	router.Post("/:id/events", h.reportBehavior)
	router.Post("/:id/complete", h.complete)
	if resumeGuard != nil {
		router.Post("/:id/resume", resumeGuard, h.resume)
	} else {
		router.Post("/:id/resume", h.resume)
	}
}

func (h *SessionHandler) start(c *fiber.Ctx) error {
	var payload dto.SessionStartRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user identity missing")
	}

	meta := service.ClientMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	}

	session, err := h.service.Start(c.Context(), userID, payload, meta)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session started", session)
}

func (h *SessionHandler) get(c *fiber.Ctx) error {
	session, err := h.service.Get(c.Context(), sessionIDParam(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "session retrieved", session)
}

func (h *SessionHandler) violations(c *fiber.Ctx) error {
	violations, err := h.service.Violations(c.Context(), sessionIDParam(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "violations retrieved", violations)
}

func (h *SessionHandler) reportLocation(c *fiber.Ctx) error {
	var payload dto.LocationEventRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	decision, err := h.service.ReportLocation(requestContext(c), sessionIDParam(c), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "location processed", decision)
}

func (h *SessionHandler) reportBehavior(c *fiber.Ctx) error {
	var payload dto.BehaviorEventRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	decision, err := h.service.ReportBehavior(requestContext(c), sessionIDParam(c), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "event processed", decision)
}

func (h *SessionHandler) complete(c *fiber.Ctx) error {
	session, err := h.service.Complete(c.Context(), sessionIDParam(c), userIDFromContext(c))
	if err != nil {
		if errors.Is(err, security.ErrSessionClosed) {
			return utils.SendSuccess(c, "session already closed", session)
		}
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "session completed", session)
}

func (h *SessionHandler) resume(c *fiber.Ctx) error {
	session, err := h.service.Resume(c.Context(), sessionIDParam(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "session resumed", session)
}

func (h *SessionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, security.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, security.ErrDuplicateSession):
		return utils.SendError(c, fiber.StatusConflict, "session already exists")
	case errors.Is(err, security.ErrSessionClosed):
		return utils.SendError(c, fiber.StatusConflict, "session already closed")
	case errors.Is(err, security.ErrSessionNotSuspended):
		return utils.SendError(c, fiber.StatusConflict, "session is not suspended")
	case errors.Is(err, service.ErrPolicyNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "security policy not configured for quiz")
	case errors.Is(err, service.ErrSessionForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "session belongs to another user")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func sessionIDParam(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Params("id"))
}
