package decompose

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestDecompose_AdditiveEvenPeriod(t *testing.T) {
	season := []float64{3, -1, -4, 2}
	values := make([]float64, 16)
	for i := range values {
		values[i] = 100 + 2*float64(i) + season[i%4]
	}

	result, err := Decompose(values, 4, Additive)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	for i := range values {
		edge := i < 2 || i >= len(values)-2
		if result.Valid[i] == edge {
			t.Errorf("index %d: expected valid=%v", i, !edge)
		}
		if math.Abs(result.Seasonal[i]-season[i%4]) > 1e-9 {
			t.Errorf("seasonal[%d]: expected %f, got %f", i, season[i%4], result.Seasonal[i])
		}
		if edge {
			if !math.IsNaN(result.Trend[i]) || !math.IsNaN(result.Residual[i]) {
				t.Errorf("index %d: edge trend and residual should be NaN", i)
			}
			continue
		}
		if want := 100 + 2*float64(i); math.Abs(result.Trend[i]-want) > 1e-9 {
			t.Errorf("trend[%d]: expected %f, got %f", i, want, result.Trend[i])
		}
		if math.Abs(result.Residual[i]) > 1e-9 {
			t.Errorf("residual[%d]: expected 0, got %f", i, result.Residual[i])
		}
	}
}

func TestDecompose_AdditiveOddPeriod(t *testing.T) {
	season := []float64{5, -2, -3}
	values := make([]float64, 9)
	for i := range values {
		values[i] = 10 + season[i%3]
	}

	result, err := Decompose(values, 3, Additive)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if result.Valid[0] || !result.Valid[1] || result.Valid[8] {
		t.Errorf("unexpected valid mask: %v", result.Valid)
	}
	for i := 1; i < 8; i++ {
		if math.Abs(result.Trend[i]-10) > 1e-9 {
			t.Errorf("trend[%d]: expected 10, got %f", i, result.Trend[i])
		}
	}
}

func TestDecompose_Multiplicative(t *testing.T) {
	factors := []float64{1.2, 0.8, 1.1, 0.9}
	values := make([]float64, 12)
	for i := range values {
		values[i] = 50 * factors[i%4]
	}

	result, err := Decompose(values, 4, Multiplicative)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	sum := 0.0
	for k := 0; k < 4; k++ {
		sum += result.Seasonal[k]
		if math.Abs(result.Seasonal[k]-factors[k]) > 1e-9 {
			t.Errorf("seasonal[%d]: expected %f, got %f", k, factors[k], result.Seasonal[k])
		}
	}
	if math.Abs(sum/4-1) > 1e-9 {
		t.Errorf("multiplicative factors should average to 1, got %f", sum/4)
	}
	for i, ok := range result.Valid {
		if ok && math.Abs(result.Residual[i]-1) > 1e-9 {
			t.Errorf("residual[%d]: expected 1, got %f", i, result.Residual[i])
		}
	}
	if s := result.Strength(); math.Abs(s-1) > 1e-9 {
		t.Errorf("expected strength 1, got %f", s)
	}
}

func TestDecompose_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		period int
		model  Model
		want   error
	}{
		{"period too small", []float64{1, 2, 3, 4}, 1, Additive, ErrInvalidPeriod},
		{"too short", []float64{1, 2, 3, 4, 5}, 3, Additive, ErrSeriesTooShort},
		{"non-positive", []float64{1, 2, 0, 4}, 2, Multiplicative, ErrNonPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decompose(tt.values, tt.period, tt.model)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := Decompose([]float64{1, 2, 3, 4}, 2, "bogus"); err == nil {
		t.Error("expected error for unknown model")
	}
}

func TestDecompose_DoesNotMutateInput(t *testing.T) {
	values := []float64{1, 5, 2, 6, 3, 7}
	original := append([]float64(nil), values...)

	if _, err := Decompose(values, 2, Additive); err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	for i := range values {
		if values[i] != original[i] {
			t.Fatalf("input mutated at %d", i)
		}
	}
}

func TestParseModel(t *testing.T) {
	if m, err := ParseModel(""); err != nil || m != Additive {
		t.Errorf("empty should parse as additive, got %q %v", m, err)
	}
	if m, err := ParseModel("multiplicative"); err != nil || m != Multiplicative {
		t.Errorf("expected multiplicative, got %q %v", m, err)
	}
	if _, err := ParseModel("cubic"); err == nil {
		t.Error("expected error for unknown model")
	}
}

func TestResult_Rows(t *testing.T) {
	values := []float64{1, 5, 2, 6, 3, 7}
	result, err := Decompose(values, 2, Additive)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, len(values))
	for i := range times {
		times[i] = base.AddDate(0, i, 0)
	}

	rows, err := result.Rows(times)
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if rows[0].Trend != nil || rows[0].Residual != nil {
		t.Error("first row should have no trend or residual")
	}
	if rows[1].Trend == nil || rows[1].Residual == nil {
		t.Error("second row should have trend and residual")
	}
	if rows[5].Trend != nil {
		t.Error("last row should have no trend")
	}

	if _, err := result.Rows(times[:2]); err == nil {
		t.Error("expected error for mismatched times")
	}
}
