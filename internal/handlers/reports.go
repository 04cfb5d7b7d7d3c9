package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/brutlag/internal/analytics/anomaly"
	"github.com/soltixdb/brutlag/internal/downsampling"
	"github.com/soltixdb/brutlag/internal/models"
	"github.com/soltixdb/brutlag/internal/reports"
	"github.com/soltixdb/brutlag/internal/services"
)

// ListReports returns stored report summaries, newest first
// GET /v1/reports?limit=&timezone=
func (h *Handler) ListReports(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	loc, err := queryTimezone(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	summaries, err := h.service.ListReports(ctx, limit)
	if err != nil {
		return err
	}
	for i := range summaries {
		summaries[i] = summaryInTimezone(summaries[i], loc)
	}
	if summaries == nil {
		summaries = []reports.Summary{}
	}

	return c.JSON(models.ReportListResponse{
		Reports: summaries,
		Count:   len(summaries),
	})
}

// GetReport returns one stored report, optionally with its points thinned
// GET /v1/reports/:id?timezone=&downsampling=&max_points=
func (h *Handler) GetReport(c *fiber.Ctx) error {
	loc, err := queryTimezone(c)
	if err != nil {
		return err
	}
	mode, maxPoints, thin, err := queryDownsampling(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	report, err := h.service.GetReport(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	if thin {
		if report, err = report.Downsample(mode, maxPoints); err != nil {
			return services.NewServiceError(services.CodeInvalidInput, err.Error())
		}
	}
	return c.JSON(reportInTimezone(report, loc))
}

// queryDownsampling reads the downsampling and max_points query parameters.
// thin is false when neither is given.
func queryDownsampling(c *fiber.Ctx) (mode downsampling.Mode, maxPoints int, thin bool, err error) {
	rawMode, rawMax := c.Query("downsampling"), c.Query("max_points")
	if rawMode == "" && rawMax == "" {
		return "", 0, false, nil
	}

	mode, err = downsampling.ParseMode(rawMode)
	if err != nil {
		return "", 0, false, services.NewServiceError(services.CodeInvalidInput, err.Error())
	}
	if rawMax != "" {
		maxPoints, err = strconv.Atoi(rawMax)
		if err != nil || maxPoints < 2 {
			return "", 0, false, services.NewServiceError(services.CodeInvalidInput, "max_points must be an integer of at least 2")
		}
	}
	return mode, maxPoints, true, nil
}

// ExportReport renders a stored report as CSV or as a plain-text table
// GET /v1/reports/:id/export?format=csv|table
func (h *Handler) ExportReport(c *fiber.Ctx) error {
	format := c.Query("format", "csv")
	if format != "csv" && format != "table" {
		return services.NewServiceError(services.CodeInvalidInput,
			fmt.Sprintf("unsupported export format %q, use csv or table", format))
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	report, err := h.service.GetReport(ctx, c.Params("id"))
	if err != nil {
		return err
	}

	if format == "table" {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return reports.WriteTable(c.Response().BodyWriter(), report)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename=\""+report.ID+".csv\"")
	return reports.WriteCSV(c.Response().BodyWriter(), report)
}

// SeriesAnomalies lists the stored anomalies of a series, newest first
// GET /v1/series/:name/anomalies?limit=&timezone=
func (h *Handler) SeriesAnomalies(c *fiber.Ctx) error {
	series := c.Params("name")
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	loc, err := queryTimezone(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	found, err := h.service.SeriesAnomalies(ctx, series, limit)
	if err != nil {
		return err
	}
	found = anomaliesInTimezone(found, loc)
	if found == nil {
		found = []anomaly.Anomaly{}
	}

	return c.JSON(models.SeriesAnomaliesResponse{
		Series:    series,
		Anomalies: found,
		Count:     len(found),
	})
}
