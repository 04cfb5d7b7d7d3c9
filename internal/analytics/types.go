// Package analytics provides the shared series types used by the forecast,
// decompose and anomaly packages.
package analytics

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrUnorderedSeries is returned when points are not strictly increasing in time
	ErrUnorderedSeries = errors.New("series is not ordered by time")

	// ErrDuplicateTime is returned when two points share a timestamp
	ErrDuplicateTime = errors.New("series contains duplicate timestamps")
)

// TimeSeriesPoint represents a single observation with time and value.
type TimeSeriesPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// TimeSeriesData is an ordered collection of observations.
// Algorithms index it positionally, so gaps in time are not inspected.
type TimeSeriesData []TimeSeriesPoint

// Values extracts just the values from the series
func (ts TimeSeriesData) Values() []float64 {
	values := make([]float64, len(ts))
	for i, p := range ts {
		values[i] = p.Value
	}
	return values
}

// Times extracts just the times from the series
func (ts TimeSeriesData) Times() []time.Time {
	times := make([]time.Time, len(ts))
	for i, p := range ts {
		times[i] = p.Time
	}
	return times
}

// Len returns the number of data points
func (ts TimeSeriesData) Len() int {
	return len(ts)
}

// Mean calculates the mean of all values
func (ts TimeSeriesData) Mean() float64 {
	if len(ts) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range ts {
		sum += p.Value
	}
	return sum / float64(len(ts))
}

// StdDev calculates the sample standard deviation of all values
func (ts TimeSeriesData) StdDev() float64 {
	if len(ts) < 2 {
		return 0
	}
	mean := ts.Mean()
	sumSq := 0.0
	for _, p := range ts {
		d := p.Value - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(ts)-1))
}

// Validate checks that timestamps are strictly increasing.
func (ts TimeSeriesData) Validate() error {
	for i := 1; i < len(ts); i++ {
		switch {
		case ts[i].Time.Equal(ts[i-1].Time):
			return fmt.Errorf("%w: index %d at %s", ErrDuplicateTime, i, ts[i].Time.Format(time.RFC3339))
		case ts[i].Time.Before(ts[i-1].Time):
			return fmt.Errorf("%w: index %d", ErrUnorderedSeries, i)
		}
	}
	return nil
}

// Scaled returns a copy with every value divided by factor.
func (ts TimeSeriesData) Scaled(factor float64) TimeSeriesData {
	out := make(TimeSeriesData, len(ts))
	for i, p := range ts {
		out[i] = TimeSeriesPoint{Time: p.Time, Value: p.Value / factor}
	}
	return out
}

// Interval returns the spacing between the first two points, or 0.
func (ts TimeSeriesData) Interval() time.Duration {
	if len(ts) < 2 {
		return 0
	}
	return ts[1].Time.Sub(ts[0].Time)
}
