package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/brutlag/internal/models"
)

// Forecast predicts future values of the posted series
// POST /v1/forecast
func (h *Handler) Forecast(c *fiber.Ctx) error {
	var body models.ForecastRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	data, err := parseSeries(body.Points)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	resp, err := h.service.Forecast(ctx, data, body.ForecastParams, body.Horizon, body.Confidence)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
