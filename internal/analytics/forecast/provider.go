package forecast

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoPrediction is returned when a timestamp is not covered by a Provider
var ErrNoPrediction = errors.New("no prediction for timestamp")

// Provider serves one prediction per observed timestamp, aligned positionally
// with the series it was built from.
type Provider struct {
	times  []time.Time
	values []float64
	byTime map[int64]int
}

// NewProvider creates a Provider from parallel slices of timestamps and predictions
func NewProvider(times []time.Time, values []float64) (*Provider, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("provider needs one prediction per timestamp: %d times, %d values", len(times), len(values))
	}

	p := &Provider{
		times:  append([]time.Time(nil), times...),
		values: append([]float64(nil), values...),
		byTime: make(map[int64]int, len(times)),
	}
	for i, t := range times {
		key := t.UnixNano()
		if _, dup := p.byTime[key]; dup {
			return nil, fmt.Errorf("duplicate timestamp %s", t.Format(time.RFC3339))
		}
		p.byTime[key] = i
	}
	return p, nil
}

// Predict returns the prediction for t
func (p *Provider) Predict(t time.Time) (float64, error) {
	i, ok := p.byTime[t.UnixNano()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoPrediction, t.Format(time.RFC3339))
	}
	return p.values[i], nil
}

// Aligned returns the predictions for times, in order. Every timestamp must be covered.
func (p *Provider) Aligned(times []time.Time) ([]float64, error) {
	out := make([]float64, len(times))
	for i, t := range times {
		v, err := p.Predict(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Len returns the number of covered timestamps
func (p *Provider) Len() int {
	return len(p.values)
}

// FitAndPredict fits forecaster on the first fitLen points of data and
// returns a Provider covering every point: in-sample one-step-ahead fitted
// values for the fit window, forecasts for the remainder. A fitLen outside
// (0, len(data)] fits the whole series.
func FitAndPredict(forecaster Forecaster, data []DataPoint, fitLen int, config ForecastConfig) (*Provider, *ForecastResult, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("empty series")
	}
	if fitLen <= 0 || fitLen > len(data) {
		fitLen = len(data)
	}

	config.Horizon = len(data) - fitLen
	result, err := forecaster.Forecast(data[:fitLen], config)
	if err != nil {
		return nil, nil, err
	}
	if len(result.Fitted) != fitLen || len(result.Predictions) != config.Horizon {
		return nil, nil, fmt.Errorf("forecaster %s returned %d fitted and %d predicted values for %d+%d points",
			forecaster.Name(), len(result.Fitted), len(result.Predictions), fitLen, config.Horizon)
	}

	values := make([]float64, 0, len(data))
	values = append(values, result.Fitted...)
	for _, p := range result.Predictions {
		values = append(values, p.Value)
	}

	times := make([]time.Time, len(data))
	for i, dp := range data {
		times[i] = dp.Time
	}

	provider, err := NewProvider(times, values)
	if err != nil {
		return nil, nil, err
	}
	return provider, result, nil
}
