package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/vigilo-edu/vigilo-go-api/internal/service"
)

// MonitorHandler wires the live decision stream websocket endpoint.
type MonitorHandler struct {
	service service.MonitorService
	logger  zerolog.Logger
}

// NewMonitorHandler creates a monitor handler instance.
func NewMonitorHandler(service service.MonitorService, logger zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		service: service,
		logger:  logger.With().Str("component", "monitor_handler").Logger(),
	}
}

// Register binds the websocket upgrade route under the provided group.
func (h *MonitorHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *MonitorHandler) handleConnection(conn *websocket.Conn) {
	quizIDRaw := strings.TrimSpace(conn.Query("quiz_id"))
	quizID, err := strconv.ParseUint(quizIDRaw, 10, 64)
	if err != nil || quizID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "quiz_id required"))
		_ = conn.Close()
		return
	}

	h.logger.Info().Uint64("quiz_id", quizID).Msg("monitor websocket connected")
	h.service.ServeConnection(conn, uint(quizID))
	h.logger.Info().Uint64("quiz_id", quizID).Msg("monitor websocket disconnected")
}
