package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/intranet-hub/portal-service/internal/persistence"
)

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	if h.postgres != nil {
		if err := h.postgres.Ping(ctx); err != nil {
			depStatus["postgres"] = "down"
			ready = false
		} else {
			depStatus["postgres"] = "up"
		}
	}
	if h.redis != nil && h.redis.Client != nil {
		if err := h.redis.Client.Ping(ctx).Err(); err != nil {
			depStatus["redis"] = "down"
			ready = false
		} else {
			depStatus["redis"] = "up"
		}
	}

	status := "ready"
	code := fiber.StatusOK
	if !ready {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":       status,
		"service":      h.serviceName,
		"version":      h.version,
		"dependencies": depStatus,
	})
}
