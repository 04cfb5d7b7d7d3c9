package reports

import (
	"github.com/soltixdb/brutlag/internal/analytics/anomaly"
	"github.com/soltixdb/brutlag/internal/downsampling"
)

// Downsample returns a copy of r whose Points are thinned to about
// maxPoints. Anomalous points are always kept. Anomalies and Summary still
// describe the full run.
func (r *Report) Downsample(mode downsampling.Mode, maxPoints int) (*Report, error) {
	values := make([]float64, len(r.Points))
	var keep []int
	for i, p := range r.Points {
		values[i] = p.Actual
		if p.Label == anomaly.LabelAnomaly {
			keep = append(keep, i)
		}
	}

	idx, err := downsampling.Select(values, mode, maxPoints, keep)
	if err != nil {
		return nil, err
	}

	out := *r
	out.Points = make([]Point, len(idx))
	for i, j := range idx {
		out.Points[i] = r.Points[j]
	}
	return &out, nil
}
