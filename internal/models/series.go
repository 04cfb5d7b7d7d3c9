package models

import (
	"fmt"
	"math"

	"github.com/soltixdb/brutlag/internal/analytics"
	"github.com/soltixdb/brutlag/internal/dataset"
)

// ToSeries converts request points into a series, rejecting missing or
// non-finite values and unparseable times. Ordering is checked by the caller.
func ToSeries(points []PointInput) (analytics.TimeSeriesData, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("points are required")
	}

	data := make(analytics.TimeSeriesData, len(points))
	for i, p := range points {
		t, err := dataset.ParseTime(p.Time, "")
		if err != nil {
			return nil, fmt.Errorf("points[%d]: %w", i, err)
		}
		if p.Value == nil {
			return nil, fmt.Errorf("points[%d]: value is required", i)
		}
		if math.IsNaN(*p.Value) || math.IsInf(*p.Value, 0) {
			return nil, fmt.Errorf("points[%d]: value must be finite", i)
		}
		data[i] = analytics.TimeSeriesPoint{Time: t, Value: *p.Value}
	}
	return data, nil
}
