// Package aggregation rolls a series up into calendar buckets, for example
// daily observations into monthly totals before detection.
package aggregation

import (
	"fmt"
	"math"
	"time"

	"github.com/soltixdb/brutlag/internal/analytics"
)

// Level represents the time bucket size
type Level string

const (
	LevelHourly  Level = "1h"
	LevelDaily   Level = "1d"
	LevelMonthly Level = "1M"
	LevelYearly  Level = "1y"
)

// Function selects the value reported for a bucket
type Function string

const (
	FuncSum   Function = "sum"
	FuncAvg   Function = "avg"
	FuncMin   Function = "min"
	FuncMax   Function = "max"
	FuncCount Function = "count"
	FuncFirst Function = "first"
	FuncLast  Function = "last"
)

// ParseLevel validates a level name
func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case LevelHourly, LevelDaily, LevelMonthly, LevelYearly:
		return l, nil
	}
	return "", fmt.Errorf("unknown aggregation level %q (valid: 1h, 1d, 1M, 1y)", s)
}

// ParseFunction validates a function name
func ParseFunction(s string) (Function, error) {
	switch f := Function(s); f {
	case FuncSum, FuncAvg, FuncMin, FuncMax, FuncCount, FuncFirst, FuncLast:
		return f, nil
	}
	return "", fmt.Errorf("unknown aggregation function %q (valid: sum, avg, min, max, count, first, last)", s)
}

// Truncate returns the start of the bucket holding t, with calendar
// boundaries taken in loc
func Truncate(t time.Time, level Level, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	switch level {
	case LevelHourly:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
	case LevelDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	case LevelMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, loc)
	}
}

// Field accumulates the values that fall into one bucket
type Field struct {
	Count      int64
	Sum        float64
	Min        float64
	Max        float64
	First      float64
	Last       float64
	SumSquares float64
}

// NewField creates a field from a single value
func NewField(value float64) *Field {
	return &Field{
		Count:      1,
		Sum:        value,
		Min:        value,
		Max:        value,
		First:      value,
		Last:       value,
		SumSquares: value * value,
	}
}

// Add folds a later value into the field
func (f *Field) Add(value float64) {
	f.Count++
	f.Sum += value
	f.Min = math.Min(f.Min, value)
	f.Max = math.Max(f.Max, value)
	f.Last = value
	f.SumSquares += value * value
}

// Merge folds a field covering later values into f
func (f *Field) Merge(other *Field) {
	if other == nil || other.Count == 0 {
		return
	}
	f.Count += other.Count
	f.Sum += other.Sum
	f.Min = math.Min(f.Min, other.Min)
	f.Max = math.Max(f.Max, other.Max)
	f.Last = other.Last
	f.SumSquares += other.SumSquares
}

// Avg returns the mean of the accumulated values
func (f *Field) Avg() float64 {
	if f.Count == 0 {
		return 0
	}
	return f.Sum / float64(f.Count)
}

// Variance returns the population variance of the accumulated values
func (f *Field) Variance() float64 {
	if f.Count == 0 {
		return 0
	}
	mean := f.Avg()
	return math.Max(f.SumSquares/float64(f.Count)-mean*mean, 0)
}

// Value returns the field reduced by fn
func (f *Field) Value(fn Function) float64 {
	switch fn {
	case FuncSum:
		return f.Sum
	case FuncMin:
		return f.Min
	case FuncMax:
		return f.Max
	case FuncCount:
		return float64(f.Count)
	case FuncFirst:
		return f.First
	case FuncLast:
		return f.Last
	default:
		return f.Avg()
	}
}

// Resample reduces data, which must be in time order, to one point per
// non-empty bucket. Buckets without observations are left out.
func Resample(data analytics.TimeSeriesData, level Level, fn Function, loc *time.Location) (analytics.TimeSeriesData, error) {
	if _, err := ParseLevel(string(level)); err != nil {
		return nil, err
	}
	if _, err := ParseFunction(string(fn)); err != nil {
		return nil, err
	}

	out := make(analytics.TimeSeriesData, 0, len(data))
	var (
		bucket time.Time
		field  *Field
	)
	flush := func() {
		if field != nil {
			out = append(out, analytics.TimeSeriesPoint{Time: bucket, Value: field.Value(fn)})
		}
	}

	for i, p := range data {
		b := Truncate(p.Time, level, loc)
		if field != nil && b.Before(bucket) {
			return nil, fmt.Errorf("point %d at %s is out of time order", i, p.Time.Format(time.RFC3339))
		}
		if field != nil && b.Equal(bucket) {
			field.Add(p.Value)
			continue
		}
		flush()
		bucket, field = b, NewField(p.Value)
	}
	flush()

	return out, nil
}
