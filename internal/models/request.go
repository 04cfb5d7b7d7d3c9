package models

import (
	"github.com/soltixdb/brutlag/internal/analytics/anomaly"
)

// PointInput is one observation in a request body. Time accepts RFC3339,
// "2006-01-02" or "2006-01".
type PointInput struct {
	Time  string   `json:"time"`
	Value *float64 `json:"value"`
}

// BrutlagParams overrides the configured detector parameters. Nil fields keep the default.
type BrutlagParams struct {
	Period        *int     `json:"period,omitempty"`
	Gamma         *float64 `json:"gamma,omitempty"`
	ScalingFactor *float64 `json:"scaling_factor,omitempty"`
	WarmupSkip    *int     `json:"warmup_skip,omitempty"`
}

// Apply returns base with the supplied overrides. When Period is overridden
// but WarmupSkip is not, the warmup follows the new period.
func (p BrutlagParams) Apply(base anomaly.BrutlagConfig) anomaly.BrutlagConfig {
	cfg := base
	if p.Period != nil {
		cfg.Period = *p.Period
		cfg.WarmupSkip = *p.Period
	}
	if p.Gamma != nil {
		cfg.Gamma = *p.Gamma
	}
	if p.ScalingFactor != nil {
		cfg.ScalingFactor = *p.ScalingFactor
	}
	if p.WarmupSkip != nil {
		cfg.WarmupSkip = *p.WarmupSkip
	}
	return cfg
}

// DetectorParams picks the detector that produces the anomaly list of an
// analysis. The Brutlag parameters always drive the reported bands.
type DetectorParams struct {
	Algorithm string  `json:"algorithm,omitempty"` // brutlag, zscore
	Threshold float64 `json:"threshold,omitempty"` // zscore standard deviations
	BrutlagParams
}

// ForecastParams selects and tunes the forecaster. Zero values keep the configured defaults.
type ForecastParams struct {
	Method         string  `json:"method,omitempty"` // holt_winters, exponential
	Alpha          float64 `json:"alpha,omitempty"`
	Beta           float64 `json:"beta,omitempty"`
	Gamma          float64 `json:"gamma,omitempty"`
	SeasonalPeriod int     `json:"seasonal_period,omitempty"`
	Trend          string  `json:"trend,omitempty"`    // additive, none
	Seasonal       string  `json:"seasonal,omitempty"` // additive, multiplicative
	Damping        float64 `json:"damping,omitempty"`
}

// DetectRequest runs the detector on caller-supplied predictions
type DetectRequest struct {
	Actual    []float64 `json:"actual"`
	Predicted []float64 `json:"predicted"`
	Times     []string  `json:"times,omitempty"` // Optional, one per value
	BrutlagParams
}

// AnalyzeRequest fits a forecaster and runs the detector over a series
type AnalyzeRequest struct {
	Name      string       `json:"name"`
	Points    []PointInput `json:"points"`
	TrainSize *float64     `json:"train_size,omitempty"`
	Scale     float64      `json:"scale,omitempty"`
	ForecastParams
	Detector DetectorParams `json:"detector"`
	Publish  *bool         `json:"publish,omitempty"` // Default true
}

// DecomposeRequest splits a series into trend, seasonal and residual parts
type DecomposeRequest struct {
	Points []PointInput `json:"points"`
	Period int          `json:"period"`
	Model  string       `json:"model,omitempty"` // additive, multiplicative
}

// ForecastRequest predicts future values of a series
type ForecastRequest struct {
	Points     []PointInput `json:"points"`
	Horizon    int          `json:"horizon,omitempty"`
	Confidence float64      `json:"confidence,omitempty"`
	ForecastParams
}
