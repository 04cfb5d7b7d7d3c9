package forecast

import (
	"fmt"
	"math"
)

// HoltWintersForecaster implements Holt-Winters (Triple Exponential Smoothing)
// with an additive or absent trend, optional damping, and additive or
// multiplicative seasonality.
type HoltWintersForecaster struct{}

// NewHoltWintersForecaster creates a new Holt-Winters forecaster
func NewHoltWintersForecaster() *HoltWintersForecaster {
	return &HoltWintersForecaster{}
}

func init() {
	RegisterForecaster("holt_winters", NewHoltWintersForecaster())
}

// Name returns the algorithm name
func (f *HoltWintersForecaster) Name() string {
	return "holt_winters"
}

// hwState is the smoothing state before the observation at a given step
type hwState struct {
	level    float64
	trend    float64
	seasonal []float64
}

// Forecast fits the model and returns one-step-ahead fitted values plus
// config.Horizon future predictions.
func (f *HoltWintersForecaster) Forecast(data []DataPoint, config ForecastConfig) (*ForecastResult, error) {
	if len(data) < config.MinDataPoints {
		return nil, fmt.Errorf("insufficient data points: need %d, have %d", config.MinDataPoints, len(data))
	}

	alpha := config.Alpha
	beta := config.Beta
	gamma := config.Gamma
	period := config.SeasonalPeriod
	phi := config.Damping

	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}
	if beta <= 0 || beta > 1 {
		beta = 0.1
	}
	if gamma <= 0 || gamma > 1 {
		gamma = 0.1
	}
	if phi <= 0 || phi > 1 {
		phi = 1
	}
	if period <= 0 {
		period = 12
	}

	trendMode := config.Trend
	if trendMode == "" {
		trendMode = TrendAdditive
	}
	seasonalMode := config.Seasonal
	if seasonalMode == "" {
		seasonalMode = SeasonalAdditive
	}
	if trendMode != TrendAdditive && trendMode != TrendNone {
		return nil, fmt.Errorf("unsupported trend mode: %s", trendMode)
	}
	if seasonalMode != SeasonalAdditive && seasonalMode != SeasonalMultiplicative {
		return nil, fmt.Errorf("unsupported seasonal mode: %s", seasonalMode)
	}

	// Need at least 2 complete seasons
	if len(data) < period*2 {
		return NewExponentialSmoothingForecaster().Forecast(data, config)
	}

	multiplicative := seasonalMode == SeasonalMultiplicative
	if multiplicative {
		for i, dp := range data {
			if dp.Value <= 0 {
				return nil, fmt.Errorf("multiplicative seasonality requires positive values, index %d is %v", i, dp.Value)
			}
		}
	}

	n := len(data)
	st := initHoltWinters(data, period, trendMode == TrendAdditive, multiplicative)

	fitted := make([]float64, n)
	for i := 0; i < n; i++ {
		x := data[i].Value
		idx := i % period
		s := st.seasonal[idx]
		base := st.level + phi*st.trend

		if multiplicative {
			fitted[i] = base * s
		} else {
			fitted[i] = base + s
		}

		prevLevel := st.level
		if multiplicative {
			st.level = alpha*(x/s) + (1-alpha)*base
		} else {
			st.level = alpha*(x-s) + (1-alpha)*base
		}

		if trendMode == TrendAdditive {
			st.trend = beta*(st.level-prevLevel) + (1-beta)*phi*st.trend
		}

		if multiplicative {
			st.seasonal[idx] = gamma*(x/st.level) + (1-gamma)*s
		} else {
			st.seasonal[idx] = gamma*(x-st.level) + (1-gamma)*s
		}
	}

	residuals, stdError, info := fitStats(data, fitted)

	times := FutureTimes(data, config.Interval, config.Horizon)
	predictions := make([]ForecastPoint, len(times))
	damped := 0.0
	for h := 1; h <= len(times); h++ {
		damped += math.Pow(phi, float64(h))
		s := st.seasonal[(n+h-1)%period]

		value := st.level + damped*st.trend
		if multiplicative {
			value *= s
		} else {
			value += s
		}

		// Increase uncertainty for further predictions
		adjustedStdError := stdError * math.Sqrt(float64(h))
		lower, upper := calculatePredictionInterval(value, adjustedStdError, config.Confidence)

		predictions[h-1] = ForecastPoint{
			Time:       times[h-1],
			Value:      value,
			LowerBound: lower,
			UpperBound: upper,
		}
	}

	info.Algorithm = "holt_winters"
	info.Parameters = map[string]interface{}{
		"alpha":    alpha,
		"beta":     beta,
		"gamma":    gamma,
		"damping":  phi,
		"period":   period,
		"trend":    string(trendMode),
		"seasonal": string(seasonalMode),
	}

	return &ForecastResult{
		Predictions: predictions,
		Fitted:      fitted,
		Residuals:   residuals,
		ModelInfo:   info,
	}, nil
}

// initHoltWinters derives the starting state from the first two seasons.
// The trend is the per-step change between the two season means, the level
// is the first season mean projected back to the step before the first
// observation, and seasonal indices are the first season against the
// detrended mean.
func initHoltWinters(data []DataPoint, period int, withTrend, multiplicative bool) *hwState {
	var first, second float64
	for i := 0; i < period; i++ {
		first += data[i].Value
		second += data[period+i].Value
	}
	first /= float64(period)
	second /= float64(period)

	st := &hwState{seasonal: make([]float64, period)}
	if withTrend {
		st.trend = (second - first) / float64(period)
	}

	center := float64(period-1) / 2
	st.level = first - st.trend*(center+1)

	for i := 0; i < period; i++ {
		expected := first + st.trend*(float64(i)-center)
		if multiplicative {
			st.seasonal[i] = data[i].Value / expected
		} else {
			st.seasonal[i] = data[i].Value - expected
		}
	}
	return st
}
