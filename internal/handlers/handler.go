package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/brutlag/internal/analytics"
	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/models"
	"github.com/soltixdb/brutlag/internal/services"
	"github.com/soltixdb/brutlag/internal/utils"
)

// Handler contains all HTTP handlers. Errors are returned to fiber and
// rendered by middleware.ErrorHandler.
type Handler struct {
	logger  *logging.Logger
	service *services.AnalysisService
	timeout time.Duration
}

// New creates a new handler instance
func New(logger *logging.Logger, service *services.AnalysisService) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		timeout: utils.DefaultRequestTimeout,
	}
}

// requestContext bounds the service work done for one request
func (h *Handler) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return services.NewServiceErrorWithDetails(services.CodeInvalidInput, "Failed to parse JSON body",
			map[string]interface{}{"error": err.Error()})
	}
	return nil
}

func parseSeries(points []models.PointInput) (analytics.TimeSeriesData, error) {
	data, err := models.ToSeries(points)
	if err != nil {
		return nil, services.NewServiceError(services.CodeInvalidInput, err.Error())
	}
	return data, nil
}

// queryLimit reads the optional limit query parameter. 0 means the service default.
func queryLimit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, services.NewServiceError(services.CodeInvalidInput, "limit must be a non-negative integer")
	}
	return limit, nil
}
