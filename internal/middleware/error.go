package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/models"
	"github.com/soltixdb/brutlag/internal/services"
)

// StatusForCode maps a service error code to its HTTP status
func StatusForCode(code string) int {
	switch code {
	case services.CodeInvalidInput, services.CodeInvalidMethod:
		return fiber.StatusBadRequest
	case services.CodeForecastFailed:
		return fiber.StatusUnprocessableEntity
	case services.CodeReportNotFound:
		return fiber.StatusNotFound
	case services.CodeNotSupported:
		return fiber.StatusNotImplemented
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders handler errors as ErrorResponse bodies. Service errors
// keep their code and details, fiber errors are coded after their status and
// anything else becomes a 500. Only server errors are logged here, request
// logging covers the rest.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		detail := models.ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Message: "Internal Server Error",
		}

		var svcErr *services.ServiceError
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &svcErr):
			status = StatusForCode(svcErr.Code)
			detail.Code = svcErr.Code
			detail.Message = svcErr.Message
			detail.Details = svcErr.Details
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			detail.Code = codeForStatus(status)
			detail.Message = fiberErr.Message
		}
		if status == fiber.StatusNotFound || status == fiber.StatusMethodNotAllowed {
			detail.Path = c.Path()
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error("Request failed",
				"path", c.Path(),
				"method", c.Method(),
				"status", status,
				"code", detail.Code,
				"error", err,
			)
		}

		return c.Status(status).JSON(models.ErrorResponse{Error: detail})
	}
}

// codeForStatus turns "Payload Too Large" into PAYLOAD_TOO_LARGE
func codeForStatus(status int) string {
	words := strings.Fields(strings.ReplaceAll(utils.StatusMessage(status), "'", ""))
	if len(words) == 0 {
		return "ERROR"
	}
	return strings.ToUpper(strings.Join(words, "_"))
}
