// Package decompose splits a series into trend, seasonal and residual
// components using classical moving-average decomposition.
package decompose

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidPeriod is returned for a period below 2
	ErrInvalidPeriod = errors.New("decomposition period must be at least 2")

	// ErrSeriesTooShort is returned when fewer than two full cycles are available
	ErrSeriesTooShort = errors.New("series must cover at least two periods")

	// ErrNonPositive is returned when multiplicative decomposition sees a value <= 0
	ErrNonPositive = errors.New("multiplicative decomposition requires positive values")
)

// Model defines how the components combine
type Model string

const (
	Additive       Model = "additive"
	Multiplicative Model = "multiplicative"
)

// ParseModel maps a request string to a Model. Empty means additive.
func ParseModel(s string) (Model, error) {
	switch Model(s) {
	case "", Additive:
		return Additive, nil
	case Multiplicative:
		return Multiplicative, nil
	default:
		return "", fmt.Errorf("unknown decomposition model: %s", s)
	}
}

// Result holds the decomposed components.
// Trend and Residual are NaN where Valid is false: the moving average does
// not reach the first and last period/2 positions.
type Result struct {
	Model    Model
	Period   int
	Observed []float64
	Trend    []float64
	Seasonal []float64
	Residual []float64
	Valid    []bool
}

// Decompose separates values into trend, seasonal and residual components
func Decompose(values []float64, period int, model Model) (*Result, error) {
	if period < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPeriod, period)
	}
	n := len(values)
	if n < 2*period {
		return nil, fmt.Errorf("%w: need %d points, have %d", ErrSeriesTooShort, 2*period, n)
	}
	if model != Additive && model != Multiplicative {
		return nil, fmt.Errorf("unknown decomposition model: %s", model)
	}
	if model == Multiplicative {
		for i, v := range values {
			if v <= 0 {
				return nil, fmt.Errorf("%w: index %d is %v", ErrNonPositive, i, v)
			}
		}
	}

	result := &Result{
		Model:    model,
		Period:   period,
		Observed: append([]float64(nil), values...),
		Seasonal: make([]float64, n),
		Residual: make([]float64, n),
	}

	// Step 1: centered moving average trend
	result.Trend, result.Valid = centeredMovingAverage(values, period)

	// Step 2: detrend and average each phase
	sums := make([]float64, period)
	counts := make([]int, period)
	for i, v := range values {
		if !result.Valid[i] {
			continue
		}
		if model == Multiplicative {
			sums[i%period] += v / result.Trend[i]
		} else {
			sums[i%period] += v - result.Trend[i]
		}
		counts[i%period]++
	}

	pattern := make([]float64, period)
	mean := 0.0
	for k := range pattern {
		pattern[k] = sums[k] / float64(counts[k])
		mean += pattern[k]
	}
	mean /= float64(period)

	// Step 3: normalise so the pattern sums to zero or averages to one
	for k := range pattern {
		if model == Multiplicative {
			pattern[k] /= mean
		} else {
			pattern[k] -= mean
		}
	}

	// Step 4: tile the pattern and compute residuals
	for i, v := range values {
		s := pattern[i%period]
		result.Seasonal[i] = s
		switch {
		case !result.Valid[i]:
			result.Residual[i] = math.NaN()
		case model == Multiplicative:
			result.Residual[i] = v / (result.Trend[i] * s)
		default:
			result.Residual[i] = v - result.Trend[i] - s
		}
	}

	return result, nil
}

// centeredMovingAverage uses a period-length window for odd periods and a
// 2x period window (half weights at both ends) for even periods.
func centeredMovingAverage(values []float64, period int) ([]float64, []bool) {
	n := len(values)
	half := period / 2
	trend := make([]float64, n)
	valid := make([]bool, n)

	for i := 0; i < n; i++ {
		if i < half || i >= n-half {
			trend[i] = math.NaN()
			continue
		}

		var sum float64
		if period%2 == 1 {
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
		} else {
			sum = 0.5 * (values[i-half] + values[i+half])
			for j := i - half + 1; j < i+half; j++ {
				sum += values[j]
			}
		}
		trend[i] = sum / float64(period)
		valid[i] = true
	}
	return trend, valid
}

// Row is one decomposed observation. Components the moving average does not
// cover are nil.
type Row struct {
	Time     time.Time `json:"time"`
	Observed float64   `json:"observed"`
	Trend    *float64  `json:"trend"`
	Seasonal float64   `json:"seasonal"`
	Residual *float64  `json:"residual"`
}

// Rows pairs the components with times. times must have one entry per observation.
func (r *Result) Rows(times []time.Time) ([]Row, error) {
	if len(times) != len(r.Observed) {
		return nil, fmt.Errorf("need %d times, have %d", len(r.Observed), len(times))
	}

	rows := make([]Row, len(times))
	for i, t := range times {
		rows[i] = Row{
			Time:     t,
			Observed: r.Observed[i],
			Seasonal: r.Seasonal[i],
		}
		if r.Valid[i] {
			trend, residual := r.Trend[i], r.Residual[i]
			rows[i].Trend = &trend
			rows[i].Residual = &residual
		}
	}
	return rows, nil
}

// Strength returns the seasonal strength 1 - Var(resid) / Var(seasonal + resid)
// over valid positions, clamped to [0, 1]. Multiplicative results are measured
// on the log scale.
func (r *Result) Strength() float64 {
	var resid, combined []float64
	for i, ok := range r.Valid {
		if !ok {
			continue
		}
		if r.Model == Multiplicative {
			resid = append(resid, math.Log(r.Residual[i]))
			combined = append(combined, math.Log(r.Seasonal[i]*r.Residual[i]))
		} else {
			resid = append(resid, r.Residual[i])
			combined = append(combined, r.Seasonal[i]+r.Residual[i])
		}
	}

	vc := variance(combined)
	if vc == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, 1-variance(resid)/vc))
}

func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values)-1)
}
