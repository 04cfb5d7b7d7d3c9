package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/soltixdb/brutlag/internal/analytics"
)

// DataPoint is an alias to the shared analytics.TimeSeriesPoint type.
type DataPoint = analytics.TimeSeriesPoint

// TrendMode selects how the trend component is modelled
type TrendMode string

// SeasonalMode selects how the seasonal component combines with the level
type SeasonalMode string

const (
	TrendAdditive TrendMode = "additive"
	TrendNone     TrendMode = "none"

	SeasonalAdditive       SeasonalMode = "additive"
	SeasonalMultiplicative SeasonalMode = "multiplicative"
)

// ForecastPoint represents a single forecast prediction
type ForecastPoint struct {
	Time       time.Time `json:"time"`
	Value      float64   `json:"value"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
}

// ModelInfo contains metadata about the forecast model
type ModelInfo struct {
	Algorithm  string                 `json:"algorithm"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	MAPE       float64                `json:"mape,omitempty"` // Mean Absolute Percentage Error
	MAE        float64                `json:"mae,omitempty"`  // Mean Absolute Error
	RMSE       float64                `json:"rmse,omitempty"` // Root Mean Squared Error
	SSE        float64                `json:"sse,omitempty"`  // Sum of Squared Errors
	DataPoints int                    `json:"data_points"`    // Number of data points used
}

// ForecastResult contains the forecast predictions and model information.
// Fitted[i] is the one-step-ahead prediction for the i-th input point.
type ForecastResult struct {
	Predictions []ForecastPoint `json:"predictions"`
	Fitted      []float64       `json:"fitted,omitempty"`
	Residuals   []float64       `json:"residuals,omitempty"` // actual - fitted
	ModelInfo   ModelInfo       `json:"model_info"`
}

// ForecastConfig holds configuration for forecasting
type ForecastConfig struct {
	Horizon        int           // Number of periods to forecast
	Alpha          float64       // Level smoothing factor (0-1)
	Beta           float64       // Trend smoothing factor for Holt-Winters (0-1)
	Gamma          float64       // Seasonal smoothing factor for Holt-Winters (0-1)
	SeasonalPeriod int           // Observations per seasonal cycle
	Trend          TrendMode     // additive or none
	Seasonal       SeasonalMode  // additive or multiplicative
	Damping        float64       // Trend damping phi in (0, 1]; 0 means undamped
	Confidence     float64       // Confidence level for prediction intervals (0-1)
	MinDataPoints  int           // Minimum data points required
	Interval       time.Duration // Spacing between points; 0 infers it from the data
}

// DefaultForecastConfig returns default forecast configuration
func DefaultForecastConfig() ForecastConfig {
	return ForecastConfig{
		Horizon:        12,
		Alpha:          0.3,
		Beta:           0.1,
		Gamma:          0.1,
		SeasonalPeriod: 12, // Yearly seasonality on monthly data
		Trend:          TrendAdditive,
		Seasonal:       SeasonalAdditive,
		Damping:        1,
		Confidence:     0.95,
		MinDataPoints:  4,
	}
}

// Forecaster interface for all forecasting algorithms
type Forecaster interface {
	// Name returns the algorithm name
	Name() string
	// Forecast fits the model to data and predicts config.Horizon future periods
	Forecast(data []DataPoint, config ForecastConfig) (*ForecastResult, error)
}

var forecasterRegistry = make(map[string]Forecaster)

// RegisterForecaster adds a forecaster to the registry
func RegisterForecaster(name string, forecaster Forecaster) {
	forecasterRegistry[name] = forecaster
}

// GetForecaster returns a forecaster by name
func GetForecaster(name string) (Forecaster, error) {
	if forecaster, ok := forecasterRegistry[name]; ok {
		return forecaster, nil
	}
	return nil, fmt.Errorf("unknown forecaster: %s", name)
}

// ListForecasters returns the registered forecaster names, sorted
func ListForecasters() []string {
	names := make([]string, 0, len(forecasterRegistry))
	for name := range forecasterRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CalculateMAPE calculates Mean Absolute Percentage Error
func CalculateMAPE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	count := 0
	for i := range actual {
		if actual[i] != 0 {
			sum += math.Abs((actual[i] - predicted[i]) / actual[i])
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return (sum / float64(count)) * 100
}

// CalculateMAE calculates Mean Absolute Error
func CalculateMAE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// CalculateRMSE calculates Root Mean Squared Error
func CalculateRMSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	return math.Sqrt(CalculateSSE(actual, predicted) / float64(len(actual)))
}

// CalculateSSE calculates the Sum of Squared Errors
func CalculateSSE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) {
		return 0
	}

	sum := 0.0
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}
	return sum
}

// fitStats fills residuals and error metrics for fitted values
func fitStats(data []DataPoint, fitted []float64) (residuals []float64, stdError float64, info ModelInfo) {
	n := len(data)
	actual := make([]float64, n)
	residuals = make([]float64, n)
	for i := range data {
		actual[i] = data[i].Value
		residuals[i] = data[i].Value - fitted[i]
	}

	sse := CalculateSSE(actual, fitted)
	if n > 1 {
		stdError = math.Sqrt(sse / float64(n-1))
	}

	info = ModelInfo{
		MAPE:       CalculateMAPE(actual, fitted),
		MAE:        CalculateMAE(actual, fitted),
		RMSE:       CalculateRMSE(actual, fitted),
		SSE:        sse,
		DataPoints: n,
	}
	return residuals, stdError, info
}

// calculatePredictionInterval calculates prediction interval bounds
func calculatePredictionInterval(value, stdError, confidence float64) (lower, upper float64) {
	// Z-score for confidence level (approximate)
	var z float64
	switch {
	case confidence >= 0.99:
		z = 2.576
	case confidence >= 0.95:
		z = 1.96
	case confidence >= 0.90:
		z = 1.645
	default:
		z = 1.96
	}

	margin := z * stdError
	return value - margin, value + margin
}

// FutureTimes returns the timestamps of the next horizon periods after data.
// Month-spaced series step by calendar months so that forecasts stay on
// the same day of the month.
func FutureTimes(data []DataPoint, interval time.Duration, horizon int) []time.Time {
	if len(data) == 0 || horizon <= 0 {
		return nil
	}

	last := data[len(data)-1].Time
	times := make([]time.Time, horizon)

	if interval == 0 && isMonthly(data) {
		for i := range times {
			times[i] = last.AddDate(0, i+1, 0)
		}
		return times
	}

	if interval == 0 && len(data) >= 2 {
		interval = data[1].Time.Sub(data[0].Time)
	}
	for i := range times {
		times[i] = last.Add(interval * time.Duration(i+1))
	}
	return times
}

// isMonthly reports whether consecutive points are exactly one calendar month apart
func isMonthly(data []DataPoint) bool {
	if len(data) < 2 {
		return false
	}
	for i := 1; i < len(data); i++ {
		if !data[i-1].Time.AddDate(0, 1, 0).Equal(data[i].Time) {
			return false
		}
	}
	return true
}
