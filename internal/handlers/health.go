package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/brutlag/internal/models"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Health handles health check requests. The report store is pinged when it supports it.
func (h *Handler) Health(c *fiber.Ctx) error {
	resp := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	if err := h.service.Ping(ctx); err != nil {
		h.logger.Warn("Report store health check failed", "error", err)
		resp.Status = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

// NotFound handles 404 errors
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
