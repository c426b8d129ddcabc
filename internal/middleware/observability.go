package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/vigilo-edu/vigilo-go-api/internal/observability"
)

const securityPathPrefix = "/api/v2/security"

// Observability records Prometheus metrics and a structured access log line
// for every security API request. Other routes pass through untouched.
func Observability(log zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()
	accessLog := log.With().Str("component", "http_access").Logger()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		if !strings.HasPrefix(c.Path(), securityPathPrefix) {
			return err
		}

		elapsed := time.Since(start)
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)

		observability.Requests().WithLabelValues(method, route, statusLabel).Inc()
		observability.RequestLatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.RequestErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		entry := accessLog.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			entry = accessLog.Error()
		case status >= fiber.StatusBadRequest:
			entry = accessLog.Warn()
		}
		entry.
			Str("correlation_id", GetCorrelationID(c)).
			Str("method", method).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed).
			Msg("request completed")

		return err
	}
}
