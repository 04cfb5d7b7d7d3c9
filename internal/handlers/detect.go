package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/brutlag/internal/models"
	"github.com/soltixdb/brutlag/internal/services"
)

// Detect runs the detector on caller-supplied predictions
// POST /v1/detect
func (h *Handler) Detect(c *fiber.Ctx) error {
	var body models.DetectRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	if len(body.Times) > 0 && len(body.Times) != len(body.Actual) {
		return services.NewServiceError(services.CodeInvalidInput,
			fmt.Sprintf("times has %d entries for %d values", len(body.Times), len(body.Actual)))
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.service.Detect(ctx, body.Actual, body.Predicted, body.BrutlagParams)
	if err != nil {
		return err
	}

	points := make([]models.DetectPoint, res.Len())
	for i := range points {
		points[i] = models.DetectPoint{DetectionPoint: res.Point(i)}
		if len(body.Times) > 0 {
			points[i].Time = body.Times[i]
		}
	}
	indices := res.AnomalyIndices()
	if indices == nil {
		indices = []int{}
	}

	return c.JSON(models.DetectResponse{
		Config:         res.Config,
		Points:         points,
		AnomalyIndices: indices,
	})
}
