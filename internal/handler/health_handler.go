package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vigilo-edu/vigilo-go-api/internal/config"
	"github.com/vigilo-edu/vigilo-go-api/internal/utils"
)

var processStart = time.Now()

// HealthResponse is the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	UptimeSecs  float64   `json:"uptime_seconds"`
	Timestamp   time.Time `json:"timestamp"`
}

// HealthCheck reports process liveness and basic identity for load balancers
// and uptime probes.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "service healthy", HealthResponse{
			Status:      "ok",
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			UptimeSecs:  time.Since(processStart).Seconds(),
			Timestamp:   time.Now().UTC(),
		})
	}
}
