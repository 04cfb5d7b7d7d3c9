package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/soltixdb/brutlag/internal/aggregation"
	"github.com/soltixdb/brutlag/internal/config"
	"github.com/soltixdb/brutlag/internal/dataset"
	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/models"
	"github.com/soltixdb/brutlag/internal/reports"
	"github.com/soltixdb/brutlag/internal/services"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	input := flag.String("input", "", "CSV file with a time column and a value column")
	series := flag.String("series", "", "Series name (default: input file name)")
	trainSize := flag.Float64("train-size", 0, "Fraction of points used to fit the forecaster (default: dataset.train_size)")
	scale := flag.Float64("scale", 0, "Divide every value by this factor (default: dataset.scale)")
	method := flag.String("method", "", "Forecasting method: holt_winters, exponential")
	seasonalPeriod := flag.Int("seasonal-period", 0, "Forecaster season length")
	period := flag.Int("period", 0, "Detector period")
	gamma := flag.Float64("gamma", 0, "Detector deviation smoothing factor in (0, 1)")
	scalingFactor := flag.Float64("sf", 0, "Detector band scaling factor")
	warmup := flag.Int("warmup", 0, "Points never labelled anomalous (default: period)")
	detector := flag.String("detector", "", "Detector that lists anomalies: brutlag, zscore (default: detector.algorithm)")
	threshold := flag.Float64("threshold", 0, "Standard deviations for the zscore detector (default: detector.threshold)")
	output := flag.String("output", "", "Write per-point results to this CSV file")
	format := flag.String("format", "table", "Terminal output: table, json")
	save := flag.Bool("save", false, "Store the report in the configured report backend")
	decomposePeriod := flag.Int("decompose", 0, "Also print the seasonal strength for this period")
	resample := flag.String("resample", "", "Roll rows up into buckets first: 1h, 1d, 1M, 1y (default: dataset.resample)")
	aggFunc := flag.String("agg", "", "Bucket reduction: sum, avg, min, max, count, first, last (default: dataset.aggregation)")

	flag.Parse()

	if *input == "" {
		log.Fatal("Error: -input parameter is required")
	}
	if *format != "table" && *format != "json" {
		log.Fatalf("Error: unknown format %q, use table or json\n", *format)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v\n", err)
	}
	logger := logging.NewNop()
	if cfg.Logging.Level == "debug" {
		logger = logging.NewDevelopment()
	}

	ts, err := dataset.LoadCSV(*input, dataset.Options{
		TimeColumn:  cfg.Dataset.TimeColumn,
		ValueColumn: cfg.Dataset.ValueColumn,
		TimeLayout:  cfg.Dataset.TimeLayout,
	})
	if err != nil {
		log.Fatalf("Error reading dataset: %v\n", err)
	}
	if *series == "" {
		*series = ts.Name
	}

	if *resample == "" {
		*resample = cfg.Dataset.Resample
	}
	if *aggFunc == "" {
		*aggFunc = cfg.Dataset.Aggregation
	}
	if *resample != "" {
		level, err := aggregation.ParseLevel(*resample)
		if err != nil {
			log.Fatalf("Error: %v\n", err)
		}
		fn, err := aggregation.ParseFunction(*aggFunc)
		if err != nil {
			log.Fatalf("Error: %v\n", err)
		}
		loc, err := cfg.Dataset.Location()
		if err != nil {
			log.Fatalf("Error: %v\n", err)
		}
		if err := ts.Resample(level, fn, loc); err != nil {
			log.Fatalf("Error resampling %s: %v\n", *input, err)
		}
	}

	// Only flags given on the command line override the configuration
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	req := &services.AnalyzeRequest{
		Series:   *series,
		Data:     ts.Data,
		Scale:    *scale,
		Forecast: models.ForecastParams{Method: *method, SeasonalPeriod: *seasonalPeriod},
		Detector: models.DetectorParams{Algorithm: *detector, Threshold: *threshold},
	}
	if set["train-size"] {
		req.TrainSize = trainSize
	}
	if set["period"] {
		req.Detector.Period = period
	}
	if set["gamma"] {
		req.Detector.Gamma = gamma
	}
	if set["sf"] {
		req.Detector.ScalingFactor = scalingFactor
	}
	if set["warmup"] {
		req.Detector.WarmupSkip = warmup
	}

	var store reports.Store = reports.NewMemoryStore()
	if *save {
		if err := cfg.EnsureDirectories(); err != nil {
			log.Fatalf("Error creating report directory: %v\n", err)
		}
		store, err = reports.Open(cfg.Reports, logger)
		if err != nil {
			log.Fatalf("Error opening report store: %v\n", err)
		}
	}
	defer func() { _ = store.Close() }()

	service := services.NewAnalysisService(logger, cfg, store, nil, nil)
	ctx := context.Background()

	report, err := service.Analyze(ctx, req)
	if err != nil {
		log.Fatalf("Error analyzing %s: %v\n", *input, err)
	}

	if *format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("Error writing report: %v\n", err)
		}
	} else if err := reports.WriteTable(os.Stdout, report); err != nil {
		log.Fatalf("Error writing report: %v\n", err)
	}

	if *decomposePeriod > 0 {
		dec, err := service.Decompose(ctx, ts.Data, *decomposePeriod, "")
		if err != nil {
			log.Fatalf("Error decomposing series: %v\n", err)
		}
		fmt.Fprintf(os.Stderr, "Seasonal strength (period %d): %.3f\n", dec.Period, dec.Strength)
	}

	if *output != "" {
		if err := writeCSV(*output, report); err != nil {
			log.Fatalf("Error exporting to CSV: %v\n", err)
		}
		fmt.Fprintf(os.Stderr, "Successfully exported to: %s\n", *output)
	}
	if *save {
		fmt.Fprintf(os.Stderr, "Saved report %s\n", report.ID)
	}
}

func writeCSV(path string, report *reports.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := reports.WriteCSV(f, report); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
