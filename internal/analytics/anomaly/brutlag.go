package anomaly

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned when the series or the configuration cannot be used.
var ErrInvalidInput = errors.New("invalid input")

// Label classifies a single point of a detection run
type Label string

const (
	LabelNormal  Label = "normal"
	LabelAnomaly Label = "anomaly"
)

// BrutlagConfig holds the parameters of a Brutlag confidence band run.
type BrutlagConfig struct {
	// Period is the seasonal cycle length and the lag of the deviation recursion
	Period int `json:"period"`

	// Gamma smooths the absolute deviation, in (0, 1)
	Gamma float64 `json:"gamma"`

	// ScalingFactor widens the band around the prediction (1.96 ~ 95%)
	ScalingFactor float64 `json:"scaling_factor"`

	// WarmupSkip exempts indices 0..WarmupSkip (inclusive) from classification
	WarmupSkip int `json:"warmup_skip"`
}

// DefaultBrutlagConfig returns the configuration for monthly data with yearly seasonality
func DefaultBrutlagConfig() BrutlagConfig {
	return BrutlagConfig{
		Period:        12,
		Gamma:         0.3684211,
		ScalingFactor: 1.96,
		WarmupSkip:    12,
	}
}

// Validate checks the configuration ranges
func (c BrutlagConfig) Validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %d", ErrInvalidInput, c.Period)
	}
	if !(c.Gamma > 0 && c.Gamma < 1) {
		return fmt.Errorf("%w: gamma must be in (0, 1), got %v", ErrInvalidInput, c.Gamma)
	}
	if !(c.ScalingFactor >= 0) {
		return fmt.Errorf("%w: scaling_factor must be non-negative, got %v", ErrInvalidInput, c.ScalingFactor)
	}
	if c.WarmupSkip < 0 {
		return fmt.Errorf("%w: warmup_skip must be non-negative, got %d", ErrInvalidInput, c.WarmupSkip)
	}
	return nil
}

// DetectionPoint is the per-index output of a Brutlag run
type DetectionPoint struct {
	Index     int     `json:"index"`
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
	Diff      float64 `json:"diff"`
	Deviation float64 `json:"deviation"`
	Upper     float64 `json:"upper"`
	Lower     float64 `json:"lower"`
	Label     Label   `json:"label"`
}

// DetectionResult holds the derived sequences of a Brutlag run, one entry per input index.
type DetectionResult struct {
	Config BrutlagConfig

	Diff      []float64
	Deviation []float64
	Upper     []float64
	Lower     []float64
	Labels    []Label

	actual    []float64
	predicted []float64
}

// Len returns the number of indices in the result
func (r *DetectionResult) Len() int {
	return len(r.Diff)
}

// Point returns the detection output for index i
func (r *DetectionResult) Point(i int) DetectionPoint {
	return DetectionPoint{
		Index:     i,
		Actual:    r.actual[i],
		Predicted: r.predicted[i],
		Diff:      r.Diff[i],
		Deviation: r.Deviation[i],
		Upper:     r.Upper[i],
		Lower:     r.Lower[i],
		Label:     r.Labels[i],
	}
}

// Points returns every index as a DetectionPoint
func (r *DetectionResult) Points() []DetectionPoint {
	points := make([]DetectionPoint, r.Len())
	for i := range points {
		points[i] = r.Point(i)
	}
	return points
}

// AnomalyIndices returns the indices labelled as anomalies, in order
func (r *DetectionResult) AnomalyIndices() []int {
	var indices []int
	for i, l := range r.Labels {
		if l == LabelAnomaly {
			indices = append(indices, i)
		}
	}
	return indices
}

// Compute runs the Brutlag procedure over positionally aligned actual and
// predicted series. Inputs are not modified.
//
// The smoothed deviation at index i looks back one full period, so the band at
// a given phase of the cycle reflects the deviation seen at the same phase of
// the previous cycle.
func Compute(actual, predicted []float64, cfg BrutlagConfig) (*DetectionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(actual) == 0 {
		return nil, fmt.Errorf("%w: empty series", ErrInvalidInput)
	}
	if len(actual) != len(predicted) {
		return nil, fmt.Errorf("%w: %d actual values but %d predictions", ErrInvalidInput, len(actual), len(predicted))
	}

	n := len(actual)
	res := &DetectionResult{
		Config:    cfg,
		Diff:      make([]float64, n),
		Deviation: make([]float64, n),
		Upper:     make([]float64, n),
		Lower:     make([]float64, n),
		Labels:    make([]Label, n),
		actual:    append([]float64(nil), actual...),
		predicted: append([]float64(nil), predicted...),
	}

	for i := 0; i < n; i++ {
		diff := actual[i] - predicted[i]
		dt := cfg.Gamma * math.Abs(diff)
		if i >= cfg.Period {
			dt += (1 - cfg.Gamma) * res.Deviation[i-cfg.Period]
		}

		res.Diff[i] = diff
		res.Deviation[i] = dt
		res.Upper[i] = predicted[i] + cfg.ScalingFactor*dt
		res.Lower[i] = predicted[i] - cfg.ScalingFactor*dt
	}

	// Classification runs after every band is known. Touching a bound counts.
	for i := 0; i < n; i++ {
		if i > cfg.WarmupSkip && (actual[i] >= res.Upper[i] || actual[i] <= res.Lower[i]) {
			res.Labels[i] = LabelAnomaly
		} else {
			res.Labels[i] = LabelNormal
		}
	}

	return res, nil
}
