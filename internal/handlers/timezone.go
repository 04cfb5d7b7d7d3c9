package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/brutlag/internal/analytics/anomaly"
	"github.com/soltixdb/brutlag/internal/reports"
	"github.com/soltixdb/brutlag/internal/services"
)

// queryTimezone reads the optional timezone query parameter (an IANA name).
// A nil location means times are returned as stored.
func queryTimezone(c *fiber.Ctx) (*time.Location, error) {
	name := c.Query("timezone")
	if name == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, services.NewServiceError(services.CodeInvalidInput, fmt.Sprintf("invalid timezone %q", name))
	}
	return loc, nil
}

// reportInTimezone returns a copy of r with every timestamp expressed in loc
func reportInTimezone(r *reports.Report, loc *time.Location) *reports.Report {
	if loc == nil {
		return r
	}

	out := *r
	out.CreatedAt = r.CreatedAt.In(loc)
	out.Points = make([]reports.Point, len(r.Points))
	for i, p := range r.Points {
		p.Time = p.Time.In(loc)
		out.Points[i] = p
	}
	out.Anomalies = anomaliesInTimezone(r.Anomalies, loc)
	out.Summary = summaryInTimezone(r.Summary, loc)
	return &out
}

func summaryInTimezone(s reports.Summary, loc *time.Location) reports.Summary {
	if loc == nil {
		return s
	}
	s.CreatedAt = s.CreatedAt.In(loc)
	if s.FirstAnomaly != nil {
		t := s.FirstAnomaly.In(loc)
		s.FirstAnomaly = &t
	}
	if s.LastAnomaly != nil {
		t := s.LastAnomaly.In(loc)
		s.LastAnomaly = &t
	}
	return s
}

// anomaliesInTimezone converts RFC3339 anomaly times to loc. Unparseable times are kept.
func anomaliesInTimezone(anomalies []anomaly.Anomaly, loc *time.Location) []anomaly.Anomaly {
	if loc == nil || len(anomalies) == 0 {
		return anomalies
	}

	result := make([]anomaly.Anomaly, len(anomalies))
	for i, a := range anomalies {
		result[i] = a
		t, err := time.Parse(time.RFC3339, a.Time)
		if err != nil {
			continue
		}
		result[i].Time = t.In(loc).Format(time.RFC3339)
	}
	return result
}
