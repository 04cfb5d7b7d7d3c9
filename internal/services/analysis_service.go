package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soltixdb/brutlag/internal/analytics"
	"github.com/soltixdb/brutlag/internal/analytics/anomaly"
	"github.com/soltixdb/brutlag/internal/analytics/decompose"
	"github.com/soltixdb/brutlag/internal/analytics/forecast"
	"github.com/soltixdb/brutlag/internal/config"
	"github.com/soltixdb/brutlag/internal/dataset"
	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/metrics"
	"github.com/soltixdb/brutlag/internal/models"
	"github.com/soltixdb/brutlag/internal/queue"
	"github.com/soltixdb/brutlag/internal/reports"
	"github.com/soltixdb/brutlag/internal/utils"
)

// DefaultSeriesName is used when a request does not name its series
const DefaultSeriesName = "series"

// AnalysisService runs forecasting and Brutlag detection over series,
// stores the resulting reports and publishes anomaly events.
type AnalysisService struct {
	logger    *logging.Logger
	detector  config.DetectorConfig
	forecast  config.ForecastConfig
	dataset   config.DatasetConfig
	store     reports.Store
	publisher queue.Publisher
	subject   string
	metrics   *metrics.Metrics
}

// NewAnalysisService creates an AnalysisService. A nil publisher disables
// event publishing and nil metrics disables instrumentation.
func NewAnalysisService(
	logger *logging.Logger,
	cfg *config.Config,
	store reports.Store,
	publisher queue.Publisher,
	m *metrics.Metrics,
) *AnalysisService {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	return &AnalysisService{
		logger:    logger,
		detector:  cfg.Detector,
		forecast:  cfg.Forecast,
		dataset:   cfg.Dataset,
		store:     store,
		publisher: publisher,
		subject:   cfg.Queue.Subject,
		metrics:   m,
	}
}

// AnalyzeRequest describes one analysis run
type AnalyzeRequest struct {
	Series    string
	Data      analytics.TimeSeriesData
	TrainSize *float64 // nil uses the configured dataset.train_size, 0 fits the full series
	Scale     float64  // 0 uses the configured dataset.scale
	Forecast  models.ForecastParams
	Detector  models.DetectorParams
	Publish   bool
}

// NewAnalyzeRequest converts a decoded request body. Publishing defaults to on.
func NewAnalyzeRequest(body *models.AnalyzeRequest) (*AnalyzeRequest, error) {
	data, err := models.ToSeries(body.Points)
	if err != nil {
		return nil, NewServiceError(CodeInvalidInput, err.Error())
	}
	return &AnalyzeRequest{
		Series:    body.Name,
		Data:      data,
		TrainSize: body.TrainSize,
		Scale:     body.Scale,
		Forecast:  body.ForecastParams,
		Detector:  body.Detector,
		Publish:   body.Publish == nil || *body.Publish,
	}, nil
}

// Analyze fits the forecaster on the training portion, predicts every
// observed timestamp, runs the detector and stores the report.
func (s *AnalysisService) Analyze(ctx context.Context, req *AnalyzeRequest) (*reports.Report, error) {
	start := time.Now()
	report, err := s.analyze(ctx, req)
	s.observe("analyze", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Analysis completed",
		"report_id", report.ID,
		"series", report.Series,
		"method", report.Method,
		"points", report.Summary.Points,
		"anomalies", report.Summary.Anomalies,
		"latency_ms", time.Since(start).Milliseconds())
	return report, nil
}

func (s *AnalysisService) analyze(ctx context.Context, req *AnalyzeRequest) (*reports.Report, error) {
	series := req.Series
	if series == "" {
		series = DefaultSeriesName
	}

	ts, err := dataset.New(series, req.Data)
	if err != nil {
		return nil, invalidInput(err)
	}

	trainSize := s.dataset.TrainSize
	if req.TrainSize != nil {
		trainSize = *req.TrainSize
	}
	if trainSize == 0 {
		trainSize = 1
	}
	if err := ts.Split(trainSize); err != nil {
		return nil, invalidInput(err)
	}
	if ts.SplitIndex == 0 {
		return nil, invalidInput(fmt.Errorf("train_size %v leaves no points to fit on %d observations", trainSize, ts.Data.Len()))
	}

	scale := s.dataset.Scale
	if req.Scale != 0 {
		scale = req.Scale
	}
	if err := ts.Scale(scale); err != nil {
		return nil, invalidInput(err)
	}

	forecaster, method, opts, err := s.resolveForecast(req.Forecast)
	if err != nil {
		return nil, err
	}
	detector, algorithm, detectOpts, err := s.resolveDetector(req.Detector)
	if err != nil {
		return nil, err
	}

	provider, fit, err := forecast.FitAndPredict(forecaster, ts.Data, ts.SplitIndex, opts)
	if err != nil {
		return nil, forecastFailed(method, err)
	}
	times := ts.Data.Times()
	predicted, err := provider.Aligned(times)
	if err != nil {
		return nil, forecastFailed(method, err)
	}

	res, err := anomaly.Compute(ts.Data.Values(), predicted, detectOpts.Brutlag)
	if err != nil {
		return nil, invalidInput(err)
	}
	results, err := detector.Detect(ts.Data, predicted, detectOpts)
	if err != nil {
		return nil, invalidInput(err)
	}
	anomalies := anomaly.ToAnomalies(series, algorithm, ts.Data, predicted, results)

	report, err := reports.New(series, method, times, res, anomalies)
	if err != nil {
		return nil, err
	}
	report.Algorithm = algorithm
	report.Relabel()
	report.TrainSize = trainSize
	report.SplitIndex = ts.SplitIndex
	report.Model = &fit.ModelInfo

	if err := s.store.Save(ctx, report); err != nil {
		s.logger.Error("Failed to save report", "report_id", report.ID, "error", err)
		return nil, NewServiceErrorWithDetails(CodeStorageFailed, "Failed to save report",
			map[string]interface{}{"error": err.Error()})
	}

	if s.metrics != nil {
		s.metrics.ObserveDetection(series, report.Summary.Points, report.Summary.Anomalies)
	}
	if req.Publish {
		s.publishAnomalies(ctx, report)
	}
	return report, nil
}

// Detect runs the Brutlag procedure on caller-supplied predictions
func (s *AnalysisService) Detect(ctx context.Context, actual, predicted []float64, params models.BrutlagParams) (*anomaly.DetectionResult, error) {
	start := time.Now()
	res, err := anomaly.Compute(actual, predicted, params.Apply(s.detector.Brutlag()))
	if err != nil {
		err = invalidInput(err)
	}
	s.observe("detect", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveDetection(DefaultSeriesName, res.Len(), len(res.AnomalyIndices()))
	}
	return res, nil
}

// Decompose splits data into trend, seasonal and residual components
func (s *AnalysisService) Decompose(ctx context.Context, data analytics.TimeSeriesData, period int, model string) (*models.DecomposeResponse, error) {
	start := time.Now()
	resp, err := s.decompose(data, period, model)
	s.observe("decompose", err, time.Since(start))
	return resp, err
}

func (s *AnalysisService) decompose(data analytics.TimeSeriesData, period int, model string) (*models.DecomposeResponse, error) {
	if err := data.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	m, err := decompose.ParseModel(model)
	if err != nil {
		return nil, invalidInput(err)
	}
	if period == 0 {
		period = s.forecast.SeasonalPeriod
	}

	res, err := decompose.Decompose(data.Values(), period, m)
	if err != nil {
		return nil, invalidInput(err)
	}
	rows, err := res.Rows(data.Times())
	if err != nil {
		return nil, invalidInput(err)
	}

	return &models.DecomposeResponse{
		Model:    res.Model,
		Period:   res.Period,
		Strength: res.Strength(),
		Rows:     rows,
	}, nil
}

// Forecast fits the forecaster on the whole series and predicts horizon periods ahead
func (s *AnalysisService) Forecast(ctx context.Context, data analytics.TimeSeriesData, params models.ForecastParams, horizon int, confidence float64) (*models.ForecastResponse, error) {
	start := time.Now()
	resp, err := s.runForecast(data, params, horizon, confidence)
	s.observe("forecast", err, time.Since(start))
	return resp, err
}

func (s *AnalysisService) runForecast(data analytics.TimeSeriesData, params models.ForecastParams, horizon int, confidence float64) (*models.ForecastResponse, error) {
	if err := data.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	forecaster, method, opts, err := s.resolveForecast(params)
	if err != nil {
		return nil, err
	}
	if horizon > 0 {
		opts.Horizon = horizon
	}
	if confidence > 0 {
		opts.Confidence = confidence
	}

	result, err := forecaster.Forecast(data, opts)
	if err != nil {
		return nil, forecastFailed(method, err)
	}

	return &models.ForecastResponse{
		Method:      method,
		Predictions: result.Predictions,
		ModelInfo:   result.ModelInfo,
	}, nil
}

// GetReport loads a stored report
func (s *AnalysisService) GetReport(ctx context.Context, id string) (*reports.Report, error) {
	if err := reports.ValidateID(id); err != nil {
		return nil, invalidInput(err)
	}
	r, err := s.store.Get(ctx, id)
	if errors.Is(err, reports.ErrNotFound) {
		return nil, NewServiceError(CodeReportNotFound, fmt.Sprintf("report %s not found", id))
	}
	if err != nil {
		return nil, NewServiceErrorWithDetails(CodeStorageFailed, "Failed to load report",
			map[string]interface{}{"error": err.Error()})
	}
	return r, nil
}

// ListReports returns stored report summaries, newest first
func (s *AnalysisService) ListReports(ctx context.Context, limit int) ([]reports.Summary, error) {
	if limit <= 0 || limit > utils.MaxListedReports {
		limit = utils.MaxListedReports
	}
	summaries, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, NewServiceErrorWithDetails(CodeStorageFailed, "Failed to list reports",
			map[string]interface{}{"error": err.Error()})
	}
	return summaries, nil
}

// SeriesAnomalies returns stored anomalies of a series when the store indexes them
func (s *AnalysisService) SeriesAnomalies(ctx context.Context, series string, limit int) ([]anomaly.Anomaly, error) {
	finder, ok := s.store.(reports.AnomalyFinder)
	if !ok {
		return nil, NewServiceError(CodeNotSupported, "the configured report backend does not index anomalies")
	}
	if limit <= 0 || limit > utils.MaxListedReports {
		limit = utils.MaxListedReports
	}
	found, err := finder.SeriesAnomalies(ctx, series, limit)
	if err != nil {
		return nil, NewServiceErrorWithDetails(CodeStorageFailed, "Failed to query anomalies",
			map[string]interface{}{"error": err.Error()})
	}
	return found, nil
}

// resolveForecast merges request parameters over the configured defaults
func (s *AnalysisService) resolveForecast(params models.ForecastParams) (forecast.Forecaster, string, forecast.ForecastConfig, error) {
	fc := s.forecast
	if params.Method != "" {
		fc.Method = params.Method
	}
	if params.Alpha != 0 {
		fc.Alpha = params.Alpha
	}
	if params.Beta != 0 {
		fc.Beta = params.Beta
	}
	if params.Gamma != 0 {
		fc.Gamma = params.Gamma
	}
	if params.SeasonalPeriod != 0 {
		fc.SeasonalPeriod = params.SeasonalPeriod
	}
	if params.Trend != "" {
		fc.Trend = params.Trend
	}
	if params.Seasonal != "" {
		fc.Seasonal = params.Seasonal
	}
	if params.Damping != 0 {
		fc.Damping = params.Damping
	}

	forecaster, err := forecast.GetForecaster(fc.Method)
	if err != nil {
		return nil, "", forecast.ForecastConfig{}, NewServiceErrorWithDetails(CodeInvalidMethod, err.Error(),
			map[string]interface{}{"available_methods": forecast.ListForecasters()})
	}
	if err := fc.Validate(); err != nil {
		return nil, "", forecast.ForecastConfig{}, invalidInput(err)
	}
	return forecaster, fc.Method, fc.Options(), nil
}

// resolveDetector picks the registered detector and merges request
// parameters over the configured defaults
func (s *AnalysisService) resolveDetector(params models.DetectorParams) (anomaly.AnomalyDetector, string, anomaly.DetectorConfig, error) {
	dc := s.detector
	if params.Algorithm != "" {
		dc.Algorithm = params.Algorithm
	}
	if dc.Algorithm == "" {
		dc.Algorithm = "brutlag"
	}
	if params.Threshold != 0 {
		dc.Threshold = params.Threshold
	}

	detector, err := anomaly.GetDetector(dc.Algorithm)
	if err != nil {
		return nil, "", anomaly.DetectorConfig{}, NewServiceErrorWithDetails(CodeInvalidMethod, err.Error(),
			map[string]interface{}{"available_detectors": anomaly.ListDetectors()})
	}
	if dc.Threshold < 0 {
		return nil, "", anomaly.DetectorConfig{}, invalidInput(fmt.Errorf("threshold cannot be negative, got %v", dc.Threshold))
	}

	opts := dc.Options()
	opts.Brutlag = params.Apply(opts.Brutlag)
	return detector, dc.Algorithm, opts, nil
}

// publishAnomalies sends one event per anomaly. Failures are logged, not returned.
func (s *AnalysisService) publishAnomalies(ctx context.Context, report *reports.Report) {
	if len(report.Anomalies) == 0 {
		return
	}

	messages := make([]queue.BatchMessage, 0, len(report.Anomalies))
	for _, a := range report.Anomalies {
		data, err := json.Marshal(models.NewAnomalyEvent(report.ID, a, report.CreatedAt))
		if err != nil {
			s.logger.Warn("Failed to encode anomaly event", "report_id", report.ID, "index", a.Index, "error", err)
			continue
		}
		messages = append(messages, queue.BatchMessage{Subject: s.subject, Data: data})
	}

	pubCtx, cancel := context.WithTimeout(ctx, utils.PublishTimeout)
	defer cancel()

	published, err := s.publisher.PublishBatch(pubCtx, messages)
	if err == nil && published < len(messages) {
		err = fmt.Errorf("%d of %d events rejected", len(messages)-published, len(messages))
	}
	if err != nil {
		s.logger.Warn("Failed to publish anomaly events",
			"report_id", report.ID,
			"subject", s.subject,
			"published", published,
			"total", len(messages),
			"error", err)
		if s.metrics != nil {
			s.metrics.PublishFailures.Add(float64(len(messages) - published))
		}
		return
	}

	s.logger.Debug("Published anomaly events", "report_id", report.ID, "subject", s.subject, "count", published)
}

func (s *AnalysisService) observe(operation string, err error, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveAnalysis(operation, err, elapsed)
	}
}

func invalidInput(err error) *ServiceError {
	return NewServiceError(CodeInvalidInput, err.Error())
}

func forecastFailed(method string, err error) *ServiceError {
	return NewServiceErrorWithDetails(CodeForecastFailed, err.Error(), map[string]interface{}{"method": method})
}

// Ping checks the report store when it supports health checks
func (s *AnalysisService) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
