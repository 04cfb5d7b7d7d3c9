package aggregation

import (
	"math"
	"testing"
	"time"

	"github.com/soltixdb/brutlag/internal/analytics"
)

func dailySeries(start time.Time, values ...float64) analytics.TimeSeriesData {
	data := make(analytics.TimeSeriesData, len(values))
	for i, v := range values {
		data[i] = analytics.TimeSeriesPoint{Time: start.AddDate(0, 0, i), Value: v}
	}
	return data
}

func TestParse(t *testing.T) {
	for _, s := range []string{"1h", "1d", "1M", "1y"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q): %v", s, err)
		}
	}
	if _, err := ParseLevel("1w"); err == nil {
		t.Error("1w should be rejected")
	}
	if _, err := ParseFunction("median"); err == nil {
		t.Error("median should be rejected")
	}
}

func TestTruncate(t *testing.T) {
	ts := time.Date(2024, 3, 17, 13, 45, 10, 0, time.UTC)
	tests := []struct {
		level Level
		want  time.Time
	}{
		{LevelHourly, time.Date(2024, 3, 17, 13, 0, 0, 0, time.UTC)},
		{LevelDaily, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)},
		{LevelMonthly, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{LevelYearly, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := Truncate(ts, tt.level, nil); !got.Equal(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestTruncate_Timezone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 2024-01-31 20:00 UTC is already February in Tokyo
	ts := time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC)

	if got := Truncate(ts, LevelMonthly, tokyo); got.Month() != time.February {
		t.Errorf("expected February bucket in JST, got %v", got)
	}
	if got := Truncate(ts, LevelMonthly, time.UTC); got.Month() != time.January {
		t.Errorf("expected January bucket in UTC, got %v", got)
	}
}

func TestField(t *testing.T) {
	f := NewField(2)
	for _, v := range []float64{4, 4, 4, 5, 5, 7, 9} {
		f.Add(v)
	}

	if f.Count != 8 || f.Sum != 40 || f.Min != 2 || f.Max != 9 || f.First != 2 || f.Last != 9 {
		t.Errorf("unexpected field %+v", f)
	}
	if f.Avg() != 5 {
		t.Errorf("expected avg 5, got %v", f.Avg())
	}
	if math.Abs(f.Variance()-4) > 1e-12 {
		t.Errorf("expected variance 4, got %v", f.Variance())
	}

	later := NewField(100)
	f.Merge(later)
	if f.Count != 9 || f.Max != 100 || f.Last != 100 {
		t.Errorf("merge failed: %+v", f)
	}
	f.Merge(nil)
	if f.Count != 9 {
		t.Error("merging nil should be a no-op")
	}
}

func TestResample_Monthly(t *testing.T) {
	// 31 days of January, 3 days of February
	values := make([]float64, 34)
	for i := range values {
		values[i] = 1
	}
	values[31] = 10
	data := dailySeries(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), values...)

	tests := []struct {
		fn   Function
		want []float64
	}{
		{FuncSum, []float64{31, 12}},
		{FuncAvg, []float64{1, 4}},
		{FuncMax, []float64{1, 10}},
		{FuncCount, []float64{31, 3}},
		{FuncFirst, []float64{1, 10}},
		{FuncLast, []float64{1, 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.fn), func(t *testing.T) {
			out, err := Resample(data, LevelMonthly, tt.fn, nil)
			if err != nil {
				t.Fatalf("Resample failed: %v", err)
			}
			if len(out) != 2 {
				t.Fatalf("expected 2 buckets, got %d", len(out))
			}
			for i, want := range tt.want {
				if out[i].Value != want {
					t.Errorf("bucket %d: got %v, want %v", i, out[i].Value, want)
				}
			}
			if !out[1].Time.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("unexpected bucket time %v", out[1].Time)
			}
		})
	}
}

func TestResample_SkipsEmptyBuckets(t *testing.T) {
	data := analytics.TimeSeriesData{
		{Time: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Value: 1},
		{Time: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Value: 2},
	}
	out, err := Resample(data, LevelMonthly, FuncSum, nil)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if len(out) != 2 || out[1].Time.Month() != time.March {
		t.Errorf("unexpected output %+v", out)
	}
}

func TestResample_Errors(t *testing.T) {
	data := analytics.TimeSeriesData{
		{Time: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Value: 1},
		{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 2},
	}
	if _, err := Resample(data, LevelMonthly, FuncSum, nil); err == nil {
		t.Error("out-of-order input should fail")
	}
	if _, err := Resample(data, "1w", FuncSum, nil); err == nil {
		t.Error("unknown level should fail")
	}
	if _, err := Resample(data, LevelDaily, "median", nil); err == nil {
		t.Error("unknown function should fail")
	}
}
