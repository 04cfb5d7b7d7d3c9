package forecast

import (
	"math"
	"testing"
)

func TestExponentialSmoothingForecaster_BasicForecast(t *testing.T) {
	forecaster := NewExponentialSmoothingForecaster()
	data := generateLinearData(20, 0, 10)

	config := DefaultForecastConfig()
	config.Horizon = 5

	result, err := forecaster.Forecast(data, config)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if len(result.Predictions) != 5 {
		t.Fatalf("Expected 5 predictions, got %d", len(result.Predictions))
	}
	for _, p := range result.Predictions {
		if math.Abs(p.Value-10) > 1e-9 {
			t.Errorf("Constant series should forecast 10, got %f", p.Value)
		}
	}
	if result.ModelInfo.Algorithm != "exponential" {
		t.Errorf("Expected algorithm 'exponential', got '%s'", result.ModelInfo.Algorithm)
	}
	if result.ModelInfo.SSE != 0 {
		t.Errorf("Expected zero SSE on constant series, got %f", result.ModelInfo.SSE)
	}
}

func TestExponentialSmoothingForecaster_InsufficientData(t *testing.T) {
	forecaster := NewExponentialSmoothingForecaster()

	if _, err := forecaster.Forecast(nil, DefaultForecastConfig()); err == nil {
		t.Error("Expected error for empty data")
	}

	config := DefaultForecastConfig()
	config.MinDataPoints = 5
	if _, err := forecaster.Forecast(generateLinearData(3, 1, 0), config); err == nil {
		t.Error("Expected error for insufficient data")
	}
}

func TestExponentialSmoothingForecaster_DefaultAlpha(t *testing.T) {
	forecaster := NewExponentialSmoothingForecaster()

	config := DefaultForecastConfig()
	config.Alpha = 0

	result, err := forecaster.Forecast(generateLinearData(10, 1, 0), config)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if alpha := result.ModelInfo.Parameters["alpha"]; alpha != 0.3 {
		t.Errorf("Expected default alpha 0.3, got %v", alpha)
	}
}

func TestExponentialSmoothingForecaster_FittedValues(t *testing.T) {
	forecaster := NewExponentialSmoothingForecaster()
	data := generateLinearData(3, 10, 10) // 10, 20, 30

	config := DefaultForecastConfig()
	config.Alpha = 0.5
	config.Horizon = 1

	result, err := forecaster.Forecast(data, config)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}

	expected := []float64{10, 10, 15}
	for i, want := range expected {
		if math.Abs(result.Fitted[i]-want) > 1e-9 {
			t.Errorf("fitted[%d]: expected %f, got %f", i, want, result.Fitted[i])
		}
		if math.Abs(result.Residuals[i]-(data[i].Value-want)) > 1e-9 {
			t.Errorf("residual[%d]: expected %f, got %f", i, data[i].Value-want, result.Residuals[i])
		}
	}
	if math.Abs(result.Predictions[0].Value-22.5) > 1e-9 {
		t.Errorf("Expected forecast 22.5, got %f", result.Predictions[0].Value)
	}
}

func TestExponentialSmoothingForecaster_ConfidenceInterval(t *testing.T) {
	forecaster := NewExponentialSmoothingForecaster()
	data := generateNoisySeasonalData(24, 12)

	config := DefaultForecastConfig()
	config.Horizon = 4

	result, err := forecaster.Forecast(data, config)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}

	prevWidth := 0.0
	for i, p := range result.Predictions {
		if p.LowerBound > p.Value || p.UpperBound < p.Value {
			t.Errorf("prediction %d outside its interval: %+v", i, p)
		}
		width := p.UpperBound - p.LowerBound
		if width < prevWidth {
			t.Errorf("interval should widen with horizon: %f < %f", width, prevWidth)
		}
		prevWidth = width
	}
}

func BenchmarkExponentialSmoothingForecaster(b *testing.B) {
	forecaster := NewExponentialSmoothingForecaster()
	data := generateNoisySeasonalData(1000, 12)
	config := DefaultForecastConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = forecaster.Forecast(data, config)
	}
}
