package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/brutlag/internal/analytics/anomaly"
	"github.com/soltixdb/brutlag/internal/config"
	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/middleware"
	"github.com/soltixdb/brutlag/internal/models"
	"github.com/soltixdb/brutlag/internal/queue"
	"github.com/soltixdb/brutlag/internal/reports"
	"github.com/soltixdb/brutlag/internal/services"
)

func newTestApp(t *testing.T) (*fiber.App, *reports.MemoryStore, *queue.MemoryPublisher) {
	t.Helper()

	logger := logging.NewNop()
	store := reports.NewMemoryStore()
	pub := queue.NewMemoryPublisher()
	h := New(logger, services.NewAnalysisService(logger, config.DefaultConfig(), store, pub, nil))

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logger)})
	app.Get("/health", h.Health)
	v1 := app.Group("/v1")
	v1.Post("/detect", h.Detect)
	v1.Post("/analyze", h.Analyze)
	v1.Post("/decompose", h.Decompose)
	v1.Post("/forecast", h.Forecast)
	v1.Get("/reports", h.ListReports)
	v1.Get("/reports/:id", h.GetReport)
	v1.Get("/reports/:id/export", h.ExportReport)
	v1.Get("/series/:name/anomalies", h.SeriesAnomalies)
	app.Use(h.NotFound)
	return app, store, pub
}

var seasonShape = []float64{5, 3, 0, -2, -4, -6, -5, -3, 0, 2, 4, 6}

// monthlyPoints returns n points of a trending seasonal series with a +1000
// spike at spikeAt (ignored when negative)
func monthlyPoints(n, spikeAt int) []map[string]interface{} {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]map[string]interface{}, n)
	for i := range points {
		v := 100 + 0.5*float64(i) + seasonShape[i%12]
		if i == spikeAt {
			v += 1000
		}
		points[i] = map[string]interface{}{
			"time":  start.AddDate(0, i, 0).Format("2006-01-02"),
			"value": v,
		}
	}
	return points
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	return errResp.Error.Code
}

func TestHandler_Detect(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/v1/detect", map[string]interface{}{
		"actual":         []float64{12, 8, 12, 8, 12, 100, -80, 8},
		"predicted":      []float64{10, 10, 10, 10, 10, 10, 10, 10},
		"times":          []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7"},
		"period":         2,
		"gamma":          0.3,
		"scaling_factor": 3,
		"warmup_skip":    4,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var out models.DetectResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, []int{5, 6}, out.AnomalyIndices)
	assert.Equal(t, 2, out.Config.Period)
	require.Len(t, out.Points, 8)
	assert.Equal(t, "t5", out.Points[5].Time)
	assert.Equal(t, anomaly.LabelAnomaly, out.Points[5].Label)
	assert.Equal(t, anomaly.LabelNormal, out.Points[7].Label)
}

func TestHandler_Detect_Errors(t *testing.T) {
	app, _, _ := newTestApp(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"length mismatch", map[string]interface{}{"actual": []float64{1, 2}, "predicted": []float64{1}}},
		{"times mismatch", map[string]interface{}{
			"actual": []float64{1, 2}, "predicted": []float64{1, 2}, "times": []string{"a"},
		}},
		{"empty series", map[string]interface{}{"actual": []float64{}, "predicted": []float64{}}},
		{"bad period", map[string]interface{}{"actual": []float64{1}, "predicted": []float64{1}, "period": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, "POST", "/v1/detect", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, services.CodeInvalidInput, errorCode(t, body))
		})
	}

	req := httptest.NewRequest("POST", "/v1/detect", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandler_AnalyzeAndReports(t *testing.T) {
	app, _, pub := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/v1/analyze", map[string]interface{}{
		"name":   "sales",
		"points": monthlyPoints(48, 40),
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	var report reports.Report
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, "sales", report.Series)
	assert.Equal(t, "/v1/reports/"+report.ID, resp.Header.Get("Location"))
	assert.Equal(t, 48, report.Summary.Points)
	assert.Positive(t, report.Summary.Anomalies)
	assert.Equal(t, report.Summary.Anomalies, pub.Pending("brutlag.anomalies"))

	t.Run("get", func(t *testing.T) {
		resp, body := doJSON(t, app, "GET", "/v1/reports/"+report.ID, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var got reports.Report
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, report.ID, got.ID)
		assert.Len(t, got.Points, 48)
	})

	t.Run("get downsampled", func(t *testing.T) {
		resp, body := doJSON(t, app, "GET", "/v1/reports/"+report.ID+"?downsampling=lttb&max_points=10", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var got reports.Report
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Less(t, len(got.Points), 48)
		assert.Equal(t, 48, got.Summary.Points)

		kept := map[int]bool{}
		for _, p := range got.Points {
			kept[p.Index] = true
		}
		for _, a := range report.Anomalies {
			assert.True(t, kept[a.Index], "anomaly %d should be kept", a.Index)
		}
	})

	t.Run("get bad downsampling", func(t *testing.T) {
		resp, _ := doJSON(t, app, "GET", "/v1/reports/"+report.ID+"?downsampling=avg", nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		resp, _ = doJSON(t, app, "GET", "/v1/reports/"+report.ID+"?max_points=1", nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list", func(t *testing.T) {
		resp, body := doJSON(t, app, "GET", "/v1/reports?limit=10", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var list models.ReportListResponse
		require.NoError(t, json.Unmarshal(body, &list))
		assert.Equal(t, 1, list.Count)
		assert.Equal(t, report.ID, list.Reports[0].ID)
	})

	t.Run("export csv", func(t *testing.T) {
		resp, body := doJSON(t, app, "GET", "/v1/reports/"+report.ID+"/export", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), report.ID+".csv")

		lines := strings.Split(strings.TrimSpace(string(body)), "\n")
		assert.Len(t, lines, 49)
		assert.Equal(t, strings.Join(reports.CSVHeader, ","), lines[0])
	})

	t.Run("export table", func(t *testing.T) {
		resp, body := doJSON(t, app, "GET", "/v1/reports/"+report.ID+"/export?format=table", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "sales:")
	})

	t.Run("export unknown format", func(t *testing.T) {
		resp, _ := doJSON(t, app, "GET", "/v1/reports/"+report.ID+"/export?format=xlsx", nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("series anomalies", func(t *testing.T) {
		resp, body := doJSON(t, app, "GET", "/v1/series/sales/anomalies", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out models.SeriesAnomaliesResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, "sales", out.Series)
		assert.Equal(t, report.Summary.Anomalies, out.Count)
	})
}

func TestHandler_Analyze_Errors(t *testing.T) {
	app, _, _ := newTestApp(t)

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   string
	}{
		{
			name:   "no points",
			body:   map[string]interface{}{"name": "x"},
			status: fiber.StatusBadRequest,
			code:   services.CodeInvalidInput,
		},
		{
			name:   "missing value",
			body:   map[string]interface{}{"points": []map[string]interface{}{{"time": "2020-01-01"}}},
			status: fiber.StatusBadRequest,
			code:   services.CodeInvalidInput,
		},
		{
			name:   "unknown method",
			body:   map[string]interface{}{"points": monthlyPoints(24, -1), "method": "arima"},
			status: fiber.StatusBadRequest,
			code:   services.CodeInvalidMethod,
		},
		{
			name:   "too few points to fit",
			body:   map[string]interface{}{"points": monthlyPoints(4, -1), "train_size": 0.5},
			status: fiber.StatusUnprocessableEntity,
			code:   services.CodeForecastFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, "POST", "/v1/analyze", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.Equal(t, tt.code, errorCode(t, body))
		})
	}
}

func TestHandler_ReportErrors(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, "GET", "/v1/reports/0b5c1c8e-3f0e-4d55-9a57-2f4c3f6d2a10", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, services.CodeReportNotFound, errorCode(t, body))

	resp, body = doJSON(t, app, "GET", "/v1/reports/nope", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, services.CodeInvalidInput, errorCode(t, body))

	resp, _ = doJSON(t, app, "GET", "/v1/reports?limit=-3", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, "GET", "/v1/reports?timezone=Not/AZone", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandler_ListReports_Empty(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, "GET", "/v1/reports", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"reports":[],"count":0}`, string(body))
}

func TestHandler_Decompose(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/v1/decompose", map[string]interface{}{
		"points": monthlyPoints(24, -1),
		"period": 12,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var out models.DecomposeResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 12, out.Period)
	require.Len(t, out.Rows, 24)
	assert.Nil(t, out.Rows[0].Trend)
	assert.NotNil(t, out.Rows[6].Trend)
}

func TestHandler_Forecast(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/v1/forecast", map[string]interface{}{
		"points":  monthlyPoints(36, -1),
		"horizon": 3,
		"method":  "exponential",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var out models.ForecastResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "exponential", out.Method)
	assert.Len(t, out.Predictions, 3)
}

func TestAnomaliesInTimezone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	in := []anomaly.Anomaly{{Time: "2024-03-15T00:00:00Z"}, {Time: "not a time"}}

	out := anomaliesInTimezone(in, tokyo)
	assert.Equal(t, "2024-03-15T09:00:00+09:00", out[0].Time)
	assert.Equal(t, "not a time", out[1].Time)
	assert.Equal(t, "2024-03-15T00:00:00Z", in[0].Time, "input must not be modified")

	assert.Equal(t, in, anomaliesInTimezone(in, nil))
}

func TestReportInTimezone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	ts := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	r := &reports.Report{
		CreatedAt: ts,
		Points:    []reports.Point{{Time: ts}},
		Anomalies: []anomaly.Anomaly{{Time: ts.Format(time.RFC3339)}},
		Summary:   reports.Summary{FirstAnomaly: &ts, LastAnomaly: &ts},
	}

	out := reportInTimezone(r, tokyo)
	assert.Equal(t, tokyo, out.Points[0].Time.Location())
	assert.Equal(t, tokyo, out.Summary.FirstAnomaly.Location())
	assert.Equal(t, "2024-03-15T09:00:00+09:00", out.Anomalies[0].Time)
	assert.Equal(t, time.UTC, r.Points[0].Time.Location(), "input must not be modified")
	assert.Same(t, r, reportInTimezone(r, nil))
}
