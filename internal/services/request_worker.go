package services

import (
	"context"
	"encoding/json"

	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/models"
	"github.com/soltixdb/brutlag/internal/subscriber"
	"github.com/soltixdb/brutlag/internal/utils"
)

// RequestWorker runs analysis requests that arrive on a queue subject. Each
// message is a JSON AnalyzeRequest, the same body POST /v1/analyze accepts.
type RequestWorker struct {
	logger     *logging.Logger
	service    *AnalysisService
	subscriber subscriber.Subscriber
	subject    string
}

// NewRequestWorker creates a worker consuming subject through sub
func NewRequestWorker(logger *logging.Logger, service *AnalysisService, sub subscriber.Subscriber, subject string) *RequestWorker {
	return &RequestWorker{
		logger:     logger.With("component", "request_worker", "subject", subject),
		service:    service,
		subscriber: sub,
		subject:    subject,
	}
}

// Start subscribes the worker. Messages are handled until ctx is cancelled
// or Close is called.
func (w *RequestWorker) Start(ctx context.Context) error {
	if err := w.subscriber.Subscribe(ctx, w.subject, w.Handle); err != nil {
		return err
	}
	w.logger.Info("Request worker started")
	return nil
}

// Handle runs one request. Malformed or rejected requests are logged and
// acknowledged; only failures a retry could fix are returned.
func (w *RequestWorker) Handle(ctx context.Context, subject string, data []byte) error {
	var body models.AnalyzeRequest
	if err := json.Unmarshal(data, &body); err != nil {
		w.logger.Warn("Discarding malformed analysis request", "error", err)
		return nil
	}

	req, err := NewAnalyzeRequest(&body)
	if err != nil {
		w.logger.Warn("Discarding invalid analysis request", "series", body.Name, "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, utils.DefaultRequestTimeout)
	defer cancel()

	report, err := w.service.Analyze(ctx, req)
	if err != nil {
		if !retryable(err) {
			w.logger.Warn("Discarding rejected analysis request", "series", req.Series, "code", ErrorCode(err), "error", err)
			return nil
		}
		return err
	}

	w.logger.Debug("Queued analysis stored", "report_id", report.ID, "anomalies", len(report.Anomalies))
	return nil
}

// Close stops the subscription and releases the broker connection
func (w *RequestWorker) Close() error {
	return w.subscriber.Close()
}

// retryable reports whether err came from the environment rather than the request
func retryable(err error) bool {
	switch ErrorCode(err) {
	case CodeInvalidInput, CodeInvalidMethod, CodeForecastFailed:
		return false
	default:
		return true
	}
}
