package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/brutlag/internal/models"
	"github.com/soltixdb/brutlag/internal/services"
)

// Analyze fits a forecaster, runs the detector and stores the report
// POST /v1/analyze
func (h *Handler) Analyze(c *fiber.Ctx) error {
	var body models.AnalyzeRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	req, err := services.NewAnalyzeRequest(&body)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	report, err := h.service.Analyze(ctx, req)
	if err != nil {
		return err
	}

	c.Location("/v1/reports/" + report.ID)
	return c.Status(fiber.StatusCreated).JSON(report)
}

// Decompose splits a series into trend, seasonal and residual components
// POST /v1/decompose
func (h *Handler) Decompose(c *fiber.Ctx) error {
	var body models.DecomposeRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	data, err := parseSeries(body.Points)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	resp, err := h.service.Decompose(ctx, data, body.Period, body.Model)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
