package forecast

import (
	"fmt"
	"math"
)

// ExponentialSmoothingForecaster implements Simple Exponential Smoothing.
// Holt-Winters falls back to it when fewer than two seasons are available.
type ExponentialSmoothingForecaster struct{}

// NewExponentialSmoothingForecaster creates a new Exponential Smoothing forecaster
func NewExponentialSmoothingForecaster() *ExponentialSmoothingForecaster {
	return &ExponentialSmoothingForecaster{}
}

func init() {
	RegisterForecaster("exponential", NewExponentialSmoothingForecaster())
}

// Name returns the algorithm name
func (f *ExponentialSmoothingForecaster) Name() string {
	return "exponential"
}

// Forecast generates predictions using Simple Exponential Smoothing
func (f *ExponentialSmoothingForecaster) Forecast(data []DataPoint, config ForecastConfig) (*ForecastResult, error) {
	if len(data) == 0 || len(data) < config.MinDataPoints {
		return nil, fmt.Errorf("insufficient data points: need %d, have %d", max(config.MinDataPoints, 1), len(data))
	}

	alpha := config.Alpha
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}

	// fitted[i] only uses observations before i
	fitted := make([]float64, len(data))
	fitted[0] = data[0].Value
	for i := 1; i < len(data); i++ {
		fitted[i] = alpha*data[i-1].Value + (1-alpha)*fitted[i-1]
	}

	residuals, stdError, info := fitStats(data, fitted)

	// Flat forecast from the final smoothed level
	forecastValue := alpha*data[len(data)-1].Value + (1-alpha)*fitted[len(data)-1]

	times := FutureTimes(data, config.Interval, config.Horizon)
	predictions := make([]ForecastPoint, len(times))
	for i, ts := range times {
		adjustedStdError := stdError * math.Sqrt(float64(i+1))
		lower, upper := calculatePredictionInterval(forecastValue, adjustedStdError, config.Confidence)
		predictions[i] = ForecastPoint{
			Time:       ts,
			Value:      forecastValue,
			LowerBound: lower,
			UpperBound: upper,
		}
	}

	info.Algorithm = "exponential"
	info.Parameters = map[string]interface{}{"alpha": alpha}

	return &ForecastResult{
		Predictions: predictions,
		Fitted:      fitted,
		Residuals:   residuals,
		ModelInfo:   info,
	}, nil
}
